// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// DefaultBcryptCost is the work factor used for new bcrypt secrets.
const DefaultBcryptCost = 10

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher turns a plaintext password into a self-describing secret and
// checks candidates against it. Hash is deliberately slow.
type PasswordHasher interface {
	// Hash produces a salted secret for the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the secret.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on a
	// malformed secret.
	Verify(password, secret string) (bool, error)
}

// NewHasher returns a DispatchHasher that hashes with the named algorithm and
// verifies any supported secret format.
func NewHasher(algorithm string, bcryptCost int) (*DispatchHasher, error) {
	bc, err := NewBcryptHasher(bcryptCost)
	if err != nil {
		return nil, err
	}
	ag := NewArgon2idHasher()

	var primary PasswordHasher
	switch algorithm {
	case AlgorithmBcrypt, "":
		primary = bc
	case AlgorithmArgon2id:
		primary = ag
	default:
		return nil, oops.Code("AUTH_UNKNOWN_HASHER").
			With("algorithm", algorithm).
			Errorf("unknown password hasher %q", algorithm)
	}

	return &DispatchHasher{primary: primary, bcrypt: bc, argon2id: ag}, nil
}

// DispatchHasher hashes with a primary algorithm and routes verification by
// the secret's prefix, so accounts created under a previous configuration
// keep working.
type DispatchHasher struct {
	primary  PasswordHasher
	bcrypt   *BcryptHasher
	argon2id *Argon2idHasher
}

// Hash hashes with the primary algorithm.
func (h *DispatchHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password) //nolint:wrapcheck // primary hashers return oops errors
}

// Verify dispatches on the secret format.
func (h *DispatchHasher) Verify(password, secret string) (bool, error) {
	switch {
	case strings.HasPrefix(secret, "$argon2id$"):
		return h.argon2id.Verify(password, secret)
	case isBcryptSecret(secret):
		return h.bcrypt.Verify(password, secret)
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unrecognized secret format")
	}
}

func isBcryptSecret(secret string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(secret, p) {
			return true
		}
	}
	return false
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt secret; bcrypt generates the salt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	secret, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("algorithm", AlgorithmBcrypt).Wrap(err)
	}
	return string(secret), nil
}

// Verify compares in constant time via bcrypt.CompareHashAndPassword.
// Candidates longer than MaxPasswordBytes never match: bcrypt would compare
// only their first 72 bytes.
func (h *BcryptHasher) Verify(password, secret string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(secret), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", AlgorithmBcrypt).Wrap(err)
	}
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id secret in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in the secret.
func (h *Argon2idHasher) Verify(password, secret string) (bool, error) {
	parts := strings.Split(secret, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	if threads == 0 || threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
