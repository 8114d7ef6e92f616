// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package sqlite implements the auth repositories on an embedded SQLite
// database.
package sqlite

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/keystead/keystead/internal/auth"
	"github.com/keystead/keystead/internal/store"
)

// translateAccountError converts a constraint violation into the store's
// domain errors. It returns nil when err is not a recognized violation.
func translateAccountError(err error) error {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return nil
	}
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return auth.ErrDuplicateAccount
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return store.AccountUniqueError(liteErr.Error())
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return store.AccountConstraintError(liteErr.Error(), "")
	}
	return nil
}
