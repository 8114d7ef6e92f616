// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // lifetime of an authenticated session
)

// Identity is the copy of an account a session carries once authenticated.
// It never includes the password hash.
type Identity struct {
	AccountID ulid.ULID
	Username  string
	Email     string
}

// Session is the explicit per-request session object. It is either anonymous
// (Identity == nil) or authenticated with exactly one identity.
//
// Token is the plaintext token issued to the client. It is only set on the
// request in which the token was issued and is never persisted.
type Session struct {
	ID        ulid.ULID
	TokenHash string
	Token     string
	Identity  *Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewAnonymousSession returns a session without identity.
func NewAnonymousSession() *Session {
	return &Session{}
}

// IsAuthenticated reports whether an identity is attached.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Identity != nil
}

// IsAnonymous reports whether no identity is attached.
func (s *Session) IsAnonymous() bool {
	return !s.IsAuthenticated()
}

// IsExpiredAt returns true if the session would be expired at the given time.
// Anonymous sessions never expire.
func (s *Session) IsExpiredAt(t time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !t.Before(s.ExpiresAt)
}

func (s *Session) reset() {
	*s = Session{}
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored in the database.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session record persistence.
type SessionRepository interface {
	// Create stores a new authenticated session record.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns ErrNotFound if no record matches.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session record. Removing a record that
	// does not exist is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes every record expired at now and returns the
	// count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore is the session substrate the flows depend on.
type SessionStore interface {
	// Load resolves a client token to a session. Unknown, empty and expired
	// tokens resolve to an anonymous session.
	Load(ctx context.Context, token string) (*Session, error)

	// Attach makes identity the session's identity. The write is durable
	// when Attach returns nil.
	Attach(ctx context.Context, session *Session, identity Identity) error

	// Destroy clears the session's identity and removes its record.
	// Destroying an anonymous or already destroyed session is a no-op.
	Destroy(ctx context.Context, session *Session) error
}

// PersistentSessionStore keeps authenticated sessions in a SessionRepository.
// Anonymous sessions live only in memory for the duration of a request.
type PersistentSessionStore struct {
	repo   SessionRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

var _ SessionStore = (*PersistentSessionStore)(nil)

// SessionStoreOption configures a PersistentSessionStore.
type SessionStoreOption func(*PersistentSessionStore)

// WithSessionClock overrides the store's time source.
func WithSessionClock(now func() time.Time) SessionStoreOption {
	return func(s *PersistentSessionStore) { s.now = now }
}

// WithSessionLogger sets the logger used for best-effort cleanup failures.
func WithSessionLogger(logger *slog.Logger) SessionStoreOption {
	return func(s *PersistentSessionStore) { s.logger = logger }
}

// NewSessionStore creates a PersistentSessionStore. A non-positive ttl
// selects DefaultSessionTTL.
func NewSessionStore(repo SessionRepository, ttl time.Duration, opts ...SessionStoreOption) (*PersistentSessionStore, error) {
	if repo == nil {
		return nil, oops.Code("SESSION_STORE_INVALID").Errorf("session repository is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &PersistentSessionStore{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load implements SessionStore.
func (s *PersistentSessionStore) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return NewAnonymousSession(), nil
	}
	sess, err := s.repo.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewAnonymousSession(), nil
		}
		return nil, oops.Code("SESSION_LOAD_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	if sess.IsExpiredAt(s.now()) {
		return NewAnonymousSession(), nil
	}
	return sess, nil
}

// Attach implements SessionStore. A fresh token and record are issued on
// every attach and any previous record of the session is removed.
func (s *PersistentSessionStore) Attach(ctx context.Context, session *Session, identity Identity) error {
	if session == nil {
		return oops.Code("SESSION_ATTACH_FAILED").Errorf("session is nil")
	}

	token, hash, err := GenerateSessionToken()
	if err != nil {
		return oops.Code("SESSION_ATTACH_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	now := s.now().UTC()
	id := identity
	next := &Session{
		ID:        ulid.Make(),
		TokenHash: hash,
		Identity:  &id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, next); err != nil {
		return oops.Code("SESSION_ATTACH_FAILED").
			With("operation", "persist session").
			With("account_id", identity.AccountID.String()).
			Wrap(err)
	}

	if previous := session.TokenHash; previous != "" {
		if err := s.repo.DeleteByTokenHash(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "failed to remove rotated session",
				"session_id", session.ID.String(),
				"error", err)
		}
	}

	*session = *next
	session.Token = token
	return nil
}

// Destroy implements SessionStore. The in-memory session is anonymous after
// Destroy returns, even when removing the record fails.
func (s *PersistentSessionStore) Destroy(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	hash := session.TokenHash
	sessionID := session.ID
	session.reset()

	if hash == "" {
		return nil
	}
	if err := s.repo.DeleteByTokenHash(ctx, hash); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}

// PurgeExpired removes expired session records.
func (s *PersistentSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
