// Package node assembles the chain store, ledger and service from a Config.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"

	"medchain/core/access"
	"medchain/core/audit"
	"medchain/core/config"
	"medchain/core/identity"
	"medchain/core/ledger"
	"medchain/core/logging"
	"medchain/core/notify"
	"medchain/core/pow"
	"medchain/core/records"
	"medchain/core/storage"
	"medchain/core/validation"
)

// Node owns everything that must be closed on shutdown.
type Node struct {
	Config  config.Config
	Store   storage.ChainStore
	Ledger  *ledger.Ledger
	Service *access.Service

	identDB *leveldb.DB
}

// OpenStore opens the chain store selected by cfg.
func OpenStore(cfg config.Config) (storage.ChainStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), nil
	case config.BackendLevelDB:
		c, err := storage.NewCipher(cfg.DEK)
		if err != nil {
			return nil, err
		}
		return storage.NewLevelStore(cfg.LevelDBPath(), c)
	default:
		return storage.NewFileStore(cfg.ChainPath())
	}
}

// OpenStoreReadOnly opens the configured snapshot for offline reading. It
// never creates directories or databases.
func OpenStoreReadOnly(cfg config.Config) (storage.ChainStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return nil, fmt.Errorf("node: the memory backend has no snapshot to read")
	case config.BackendLevelDB:
		c, err := storage.NewCipher(cfg.DEK)
		if err != nil {
			return nil, err
		}
		return storage.OpenLevelStoreReadOnly(cfg.LevelDBPath(), c)
	default:
		return storage.OpenFileStore(cfg.ChainPath()), nil
	}
}

// Open builds a running node. A store that cannot be read is fatal; a chain
// that loads but fails validation is reported and served as is.
func Open(cfg config.Config, log zerolog.Logger) (*Node, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	engine := pow.NewEngine(pow.DefaultDifficulty,
		pow.WithMaxAttempts(cfg.MaxAttempts),
		pow.WithLogger(logging.Component(log, "pow")))

	l, err := ledger.Open(store, engine,
		ledger.WithSolveTimeout(cfg.SolveTimeout),
		ledger.WithLogger(logging.Component(log, "ledger")))
	if err != nil {
		store.Close()
		return nil, err
	}

	n := &Node{Config: cfg, Store: store, Ledger: l}

	for _, v := range validation.New(engine).Diagnose(l.Snapshot()) {
		log.Warn().Uint64("index", v.Index).Str("check", v.Check).Str("detail", v.Detail).Msg("loaded chain failed validation")
	}

	resolver, err := n.resolver(cfg)
	if err != nil {
		n.Close()
		return nil, err
	}

	n.Service = access.New(l,
		access.WithResolver(resolver),
		access.WithRecords(records.NewFileStore(cfg.RecordsDir)),
		access.WithAuditLogger(audit.NewLogAuditLogger(log)),
		access.WithNotifier(notify.NewLogNotifier(log)),
		access.WithLogger(logging.Component(log, "projector")),
	)
	log.Info().
		Str("backend", cfg.StoreBackend).
		Str("identifiers", cfg.IdentifierMode).
		Int("blocks", l.Len()).
		Int("difficulty", engine.Difficulty()).
		Msg("node ready")
	return n, nil
}

func (n *Node) resolver(cfg config.Config) (*identity.Resolver, error) {
	mode, err := identity.ParseMode(cfg.IdentifierMode)
	if err != nil {
		return nil, err
	}
	if mode != identity.ModeHashed {
		return identity.NewResolver(mode, nil, nil), nil
	}

	var table identity.SideTable
	switch s := n.Store.(type) {
	case *storage.LevelStore:
		table = identity.NewLevelTable(s.DB())
	case *storage.MemoryStore:
		table = identity.NewMemoryTable()
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := leveldb.OpenFile(filepath.Join(cfg.DataDir, "identity_db"), nil)
		if err != nil {
			return nil, fmt.Errorf("open identity table: %w", err)
		}
		n.identDB = db
		table = identity.NewLevelTable(db)
	}
	return identity.NewResolver(mode, identity.NewHasher(cfg.IdentifierSalt), table), nil
}

// Close releases the store and side table.
func (n *Node) Close() error {
	if n.identDB != nil {
		n.identDB.Close()
	}
	return n.Store.Close()
}
