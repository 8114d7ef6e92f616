// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keystead/keystead/internal/config"
	"github.com/keystead/keystead/internal/store"
)

// migrator is the subset of *store.Migrator the migrate command drives.
type migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// migratorFactory is swapped in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage PostgreSQL schema migrations",
		Long: `Apply, roll back or inspect the PostgreSQL schema. The SQLite driver
creates its schema on open and needs no migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				cmd.Println("Database is up to date")
				return nil
			}
			cmd.Printf("Applying %d migration(s)...\n", len(pending))
			if err := m.Up(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			name, err := store.MigrationName(version)
			if err != nil {
				return err
			}
			if name == "" {
				name = "none"
			}
			cmd.Printf("version: %d (%s)\n", version, name)
			if dirty {
				cmd.Println("state: dirty (run 'keystead migrate force <version>' after fixing the schema)")
			}
			pending, err := m.PendingMigrations()
			if err != nil {
				return err
			}
			cmd.Printf("pending: %d\n", len(pending))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		}),
	})

	return cmd
}

func withMigrator(run func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return oops.Code("CONFIG_INVALID").
				With("key", "database.driver").
				Errorf("migrations apply to the postgres driver only, got %q", cfg.Database.Driver)
		}
		if err := cfg.ValidateDatabase(); err != nil {
			return err
		}

		m, err := migratorFactory(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				cmd.PrintErrf("warning: %v\n", closeErr)
			}
		}()
		return run(cmd, m, args)
	}
}

// parseForceVersion reads a migration version. Like fmt.Sscanf it stops at
// the first non-digit, so "3abc" is 3.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
