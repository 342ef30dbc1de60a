// Package config loads node settings. Sources, lowest precedence first:
// built-in defaults, an optional YAML file, a .env file, then MEDCHAIN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"medchain/core/identity"
)

// Store backends.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

type Config struct {
	DataDir        string        `yaml:"data_dir"`
	StoreBackend   string        `yaml:"store_backend"`
	ChainFile      string        `yaml:"chain_file"`
	ListenAddr     string        `yaml:"listen_addr"`
	RecordsDir     string        `yaml:"records_dir"`
	MaxAttempts    uint64        `yaml:"pow_max_attempts"`
	SolveTimeout   time.Duration `yaml:"pow_solve_timeout"`
	IdentifierMode string        `yaml:"identifier_mode"`
	IdentifierSalt string        `yaml:"identifier_salt"`
	JWTSecret      string        `yaml:"jwt_secret"`
	DEK            string        `yaml:"dek"`
	LogLevel       string        `yaml:"log_level"`
	LogPretty      bool          `yaml:"log_pretty"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DataDir:        "data",
		StoreBackend:   BackendFile,
		ChainFile:      "blockchain.json",
		ListenAddr:     ":8080",
		RecordsDir:     "data",
		SolveTimeout:   30 * time.Second,
		IdentifierMode: string(identity.ModePlaintext),
		LogLevel:       "info",
	}
}

// ChainPath is where the file backend keeps its snapshot.
func (c Config) ChainPath() string {
	return filepath.Join(c.DataDir, c.ChainFile)
}

// LevelDBPath is the database directory for the leveldb backend.
func (c Config) LevelDBPath() string {
	return filepath.Join(c.DataDir, "medchain_db")
}

// Load builds a Config. yamlPath may be empty; MEDCHAIN_CONFIG is used then.
// A missing .env file is not an error.
func Load(yamlPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}

	cfg := Default()
	if yamlPath == "" {
		yamlPath = os.Getenv("MEDCHAIN_CONFIG")
	}
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"MEDCHAIN_DATA_DIR":        &cfg.DataDir,
		"MEDCHAIN_STORE_BACKEND":   &cfg.StoreBackend,
		"MEDCHAIN_CHAIN_FILE":      &cfg.ChainFile,
		"MEDCHAIN_LISTEN_ADDR":     &cfg.ListenAddr,
		"MEDCHAIN_RECORDS_DIR":     &cfg.RecordsDir,
		"MEDCHAIN_IDENTIFIER_MODE": &cfg.IdentifierMode,
		"MEDCHAIN_IDENTIFIER_SALT": &cfg.IdentifierSalt,
		"MEDCHAIN_JWT_SECRET":      &cfg.JWTSecret,
		"MEDCHAIN_DEK":             &cfg.DEK,
		"MEDCHAIN_LOG_LEVEL":       &cfg.LogLevel,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("MEDCHAIN_POW_MAX_ATTEMPTS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: MEDCHAIN_POW_MAX_ATTEMPTS: %w", err)
		}
		cfg.MaxAttempts = n
	}
	if v, ok := os.LookupEnv("MEDCHAIN_POW_SOLVE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MEDCHAIN_POW_SOLVE_TIMEOUT: %w", err)
		}
		cfg.SolveTimeout = d
	}
	if v, ok := os.LookupEnv("MEDCHAIN_LOG_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: MEDCHAIN_LOG_PRETTY: %w", err)
		}
		cfg.LogPretty = b
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendLevelDB, BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	mode, err := identity.ParseMode(c.IdentifierMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if mode == identity.ModeHashed && c.IdentifierSalt == "" {
		return errors.New("config: hashed identifier mode requires MEDCHAIN_IDENTIFIER_SALT")
	}
	if c.DEK != "" && c.StoreBackend != BackendLevelDB {
		return errors.New("config: at-rest encryption is only supported by the leveldb backend")
	}
	if c.SolveTimeout < 0 {
		return errors.New("config: solve timeout must not be negative")
	}
	return nil
}
