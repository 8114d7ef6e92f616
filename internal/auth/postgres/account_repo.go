// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keystead/keystead/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account. A unique violation on email or username
// becomes auth.ErrDuplicateAccount; a check violation becomes an
// *auth.ValidationError.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if err := auth.ValidateAccount(account); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
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
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`, auth.NormalizeEmail(email))

	var (
		idStr     string
		account   auth.Account
		createdAt time.Time
	)
	err := row.Scan(&idStr, &account.Username, &account.Email, &account.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	account.CreatedAt = createdAt.UTC()
	return &account, nil
}
