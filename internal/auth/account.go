// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxUsernameLength bounds the username stored with an account.
const MaxUsernameLength = 64

// emailRegex is intentionally loose: one @, no whitespace, a dot in the domain.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account is a registered identity. PasswordHash holds the encoded secret
// produced by a PasswordHasher and is never the plaintext password.
type Account struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewAccount creates an Account with a fresh ID.
// username and email are normalized; passwordHash must not be empty.
func NewAccount(username, email, passwordHash string) (*Account, error) {
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &Account{
		ID:           ulid.Make(),
		Username:     strings.TrimSpace(username),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Identity returns the snapshot of the account that a session carries.
func (a *Account) Identity() Identity {
	return Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Email:     a.Email,
	}
}

// NormalizeEmail trims and lower-cases an email so that lookups and the
// uniqueness constraint agree on a single spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateAccount checks the fields a store persists. Adapters call it before
// writing and return the *ValidationError unchanged.
func ValidateAccount(a *Account) error {
	switch {
	case a.Username == "":
		return &ValidationError{Field: "username", Detail: "username is required"}
	case utf8.RuneCountInString(a.Username) > MaxUsernameLength:
		return &ValidationError{Field: "username", Detail: "username must be at most 64 characters"}
	case a.Email == "":
		return &ValidationError{Field: "email", Detail: "email is required"}
	case !emailRegex.MatchString(a.Email):
		return &ValidationError{Field: "email", Detail: "please use a valid email address"}
	case a.PasswordHash == "":
		return &ValidationError{Field: "passwordHash", Detail: "password hash is required"}
	}
	return nil
}

// AccountRepository is the Account Store contract the flows depend on.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateAccount when the email
	// or username is taken and *ValidationError when a field is rejected.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by its normalized email.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)
}
