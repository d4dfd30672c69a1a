package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/config"
	"github.com/logwell/logwell/internal/database"
	"github.com/logwell/logwell/internal/keyring"
	"github.com/logwell/logwell/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration invalid, refusing to start")
	}

	// The keyring re-checks the secret so nothing can construct a
	// server that would issue unverifiable keys.
	kr, err := keyring.New(cfg.Auth.KeySecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("keyring init failed")
	}

	nrApp, err := cfg.Observability.NewApplication()
	if err != nil {
		logger.Fatal().Err(err).Msg("observability init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger, nrApp)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool failed")
	}
	defer pool.Close()

	srv := server.New(cfg, pool, kr, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
