// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"net/url"
	"path/filepath"

	"github.com/samber/oops"
	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/keystead/keystead/internal/xdg"
)

//go:embed sqlite/schema.sql
var sqliteSchema string

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies the schema. Foreign keys are enforced and writers wait up to five
// seconds for a lock.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := xdg.EnsureDir(dir); err != nil {
			return nil, oops.Code("DB_OPEN_FAILED").With("path", path).Wrap(err)
		}
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").With("path", path).Wrap(err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_OPEN_FAILED").With("path", path).With("operation", "ping").Wrap(err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_SCHEMA_FAILED").With("path", path).Wrap(err)
	}
	return db, nil
}
