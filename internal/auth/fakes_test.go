// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/keystead/keystead/internal/auth"
)

// memAccounts is an in-memory AccountRepository keyed by email.
type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]auth.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: make(map[string]auth.Account)}
}

func (m *memAccounts) Create(_ context.Context, a *auth.Account) error {
	if err := auth.ValidateAccount(a); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return auth.ErrDuplicateAccount
	}
	m.byEmail[a.Email] = *a
	return nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &a, nil
}

func (m *memAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

// memSessions is an in-memory SessionRepository keyed by token hash.
type memSessions struct {
	mu     sync.Mutex
	byHash map[string]auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byHash: make(map[string]auth.Session)}
}

func (m *memSessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[s.TokenHash] = *s
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byHash, hash)
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.byHash {
		if s.IsExpiredAt(now) {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}
