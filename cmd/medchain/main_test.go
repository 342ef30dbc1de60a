package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medchain/core/config"
)

func TestRunStopsWithContext(t *testing.T) {
	for name, secret := range map[string]string{"open": "", "jwt": "main-test-secret"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.RecordsDir = cfg.DataDir
			cfg.StoreBackend = config.BackendMemory
			cfg.ListenAddr = "127.0.0.1:0"
			cfg.JWTSecret = secret

			var buf bytes.Buffer
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			require.NoError(t, run(ctx, cfg, zerolog.New(&buf)))

			if secret == "" {
				assert.Contains(t, buf.String(), "unauthenticated")
			} else {
				assert.NotContains(t, buf.String(), "unauthenticated")
			}
		})
	}
}

func TestRunReportsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.StoreBackend = config.BackendLevelDB
	cfg.DEK = "not-base64"

	err := run(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
