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

// SessionRepository implements auth.SessionRepository using SQLite.
type SessionRepository struct {
	db        *sql.DB
	writeLock *sync.Mutex
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository. See NewAccountRepository
// for the meaning of writeLock.
func NewSessionRepository(db *sql.DB, writeLock *sync.Mutex) *SessionRepository {
	if writeLock == nil {
		writeLock = new(sync.Mutex)
	}
	return &SessionRepository{db: db, writeLock: writeLock}
}

// Create stores an authenticated session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	if session.Identity == nil {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("session has no identity")
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token_hash, account_id, username, email, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(),
		session.TokenHash,
		session.Identity.AccountID.String(),
		session.Identity.Username,
		session.Identity.Email,
		session.CreatedAt.UnixMicro(),
		session.ExpiresAt.UnixMicro(),
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
	var (
		idStr, accountIDStr  string
		session              auth.Session
		identity             auth.Identity
		createdAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token_hash, account_id, username, email, created_at, expires_at FROM sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&idStr, &session.TokenHash, &accountIDStr, &identity.Username, &identity.Email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
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
	session.CreatedAt = time.UnixMicro(createdAt).UTC()
	session.ExpiresAt = time.UnixMicro(expiresAt).UTC()
	return &session, nil
}

// DeleteByTokenHash removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMicro())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "count deleted sessions").
			Wrap(err)
	}
	return n, nil
}
