package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"medchain/api/server"
	"medchain/core/audit"
	"medchain/core/auth"
	"medchain/core/config"
	"medchain/core/logging"
	"medchain/core/node"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		boot := logging.New("info", false, os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	log.Info().Str("version", server.NodeVersion()).Msg("starting medchain node")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("medchain node stopped")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("medchain node stopped")
}

// run opens the node and serves the API until ctx is done.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	n, err := node.Open(cfg, log)
	if err != nil {
		return err
	}
	defer n.Close()

	opts := []server.Option{server.WithLogger(logging.Component(log, "api"))}
	if cfg.JWTSecret != "" {
		opts = append(opts, server.WithVerifier(auth.NewVerifier(cfg.JWTSecret, audit.NewLogAuditLogger(log))))
	} else {
		log.Warn().Msg("MEDCHAIN_JWT_SECRET not set, API is unauthenticated")
	}
	return server.NewServer(n.Service, cfg.ListenAddr, opts...).Run(ctx)
}
