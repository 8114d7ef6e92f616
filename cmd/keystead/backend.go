// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/keystead/keystead/internal/auth"
	authpg "github.com/keystead/keystead/internal/auth/postgres"
	authsqlite "github.com/keystead/keystead/internal/auth/sqlite"
	"github.com/keystead/keystead/internal/config"
	"github.com/keystead/keystead/internal/store"
)

// Backend bundles the repositories of one database.
type Backend struct {
	Accounts auth.AccountRepository
	Sessions auth.SessionRepository
	Ping     func(ctx context.Context) error
	Close    func()
}

// openBackend connects to the configured database.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := store.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		lock := new(sync.Mutex)
		return &Backend{
			Accounts: authsqlite.NewAccountRepository(db, lock),
			Sessions: authsqlite.NewSessionRepository(db, lock),
			Ping:     db.PingContext,
			Close:    func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := migrateUp(cfg.URL, logger); err != nil {
				return nil, err
			}
		} else {
			warnPendingMigrations(cfg.URL, logger)
		}

		pool, err := store.ConnectPostgres(ctx, cfg.URL, store.ConnectOptions{
			Attempts: cfg.ConnectAttempts,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Accounts: authpg.NewAccountRepository(pool),
			Sessions: authpg.NewSessionRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil
	}

	return nil, oops.Code("CONFIG_INVALID").With("key", "database.driver").Errorf("unsupported driver %q", cfg.Driver)
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator, logger)

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err == nil {
		logger.Info("database migrated", "version", version)
	}
	return nil
}

// warnPendingMigrations logs when the schema is behind. Failures are logged
// and otherwise ignored; the connection attempt that follows reports them.
func warnPendingMigrations(databaseURL string, logger *slog.Logger) {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		logger.Warn("could not check migrations", "error", err)
		return
	}
	defer closeMigrator(migrator, logger)

	pending, err := migrator.PendingMigrations()
	if err != nil {
		logger.Warn("could not check migrations", "error", err)
		return
	}
	if len(pending) > 0 {
		logger.Warn("database has pending migrations, run 'keystead migrate up'", "pending", pending)
	}
}

func closeMigrator(m *store.Migrator, logger *slog.Logger) {
	if err := m.Close(); err != nil {
		logger.Warn("failed to close migrator", "error", err)
	}
}
