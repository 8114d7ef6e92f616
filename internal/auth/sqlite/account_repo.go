// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keystead/keystead/internal/auth"
)

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	db        *sql.DB
	writeLock *sync.Mutex
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository. Repositories built
// from the same database should share writeLock; nil allocates a new one.
func NewAccountRepository(db *sql.DB, writeLock *sync.Mutex) *AccountRepository {
	if writeLock == nil {
		writeLock = new(sync.Mutex)
	}
	return &AccountRepository{db: db, writeLock: writeLock}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if err := auth.ValidateAccount(account); err != nil {
		return err
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.PasswordHash,
		account.CreatedAt.UnixMicro(),
	)
	if err == nil {
		return nil
	}
	if domainErr := translateAccountError(err); domainErr != nil {
		return domainErr
	}
	return oops.Code("ACCOUNT_CREATE_FAILED").
		With("operation", "insert account").
		With("account_id", account.ID.String()).
		Wrap(err)
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	var (
		idStr     string
		account   auth.Account
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM accounts WHERE email = ?`,
		auth.NormalizeEmail(email),
	).Scan(&idStr, &account.Username, &account.Email, &account.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}
	account.ID = id
	account.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &account, nil
}
