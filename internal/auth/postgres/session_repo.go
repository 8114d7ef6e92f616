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

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool Pool
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores an authenticated session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	if session.Identity == nil {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("session has no identity")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, token_hash, account_id, username, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		session.ID.String(),
		session.TokenHash,
		session.Identity.AccountID.String(),
		session.Identity.Username,
		session.Identity.Email,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("account_id", session.Identity.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by the hash of its token.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, token_hash, account_id, username, email, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr, accountIDStr  string
		session              auth.Session
		identity             auth.Identity
		createdAt, expiresAt time.Time
	)
	err := row.Scan(&idStr, &session.TokenHash, &accountIDStr, &identity.Username, &identity.Email, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "parse session id").With("id", idStr).Wrap(err)
	}
	if identity.AccountID, err = ulid.Parse(accountIDStr); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "parse account id").With("id", accountIDStr).Wrap(err)
	}
	session.Identity = &identity
	session.CreatedAt = createdAt.UTC()
	session.ExpiresAt = expiresAt.UTC()
	return &session, nil
}

// DeleteByTokenHash removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}
