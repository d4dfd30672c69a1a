// Package database builds the pgx pool and runs schema migrations.
package database

import (
	"context"
	"embed"
	"io/fs"
	"time"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/tern/v2/migrate"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/config"
)

//go:embed migrations/*.sql
var migrationsDir embed.FS

const versionTable = "schema_version"

// NewPool opens a pgxpool against cfg. Query tracing goes through
// zerolog; when a New Relic app is provided its tracer takes over.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger, nrApp *newrelic.Application) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "parse database config", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
	}
	if nrApp != nil {
		pcfg.ConnConfig.Tracer = nrpgx5.NewTracer()
	} else {
		pcfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(logger),
			LogLevel: tracelog.LogLevelWarn,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfiguration, "create database pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindConfiguration, "ping database", err)
	}
	return pool, nil
}

// RunMigrations applies the embedded migrations with tern.
func RunMigrations(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "connect for migrations", err)
	}
	defer conn.Close(ctx)

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "create migrator", err)
	}
	sub, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "open migrations", err)
	}
	if err := migrator.LoadMigrations(sub); err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "load migrations", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return apperr.Wrap(apperr.KindConfiguration, "apply migrations", err)
	}
	return nil
}
