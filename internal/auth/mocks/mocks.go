// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package mocks provides testify mocks of the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/keystead/keystead/internal/auth"
)

var (
	_ auth.AccountRepository = (*MockAccountRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.SessionStore      = (*MockSessionStore)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
	_ auth.SessionPurger     = (*MockSessionPurger)(nil)
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if fn, ok := args.Get(0).(func(context.Context, string) (*auth.Account, error)); ok {
		return fn(ctx, email)
	}
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockSessionStore is a mock of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a mock that asserts its expectations on cleanup.
func NewMockSessionStore(t testingT) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionStore) Load(ctx context.Context, token string) (*auth.Session, error) {
	args := m.Called(ctx, token)
	session, _ := args.Get(0).(*auth.Session)
	return session, args.Error(1)
}

func (m *MockSessionStore) Attach(ctx context.Context, session *auth.Session, identity auth.Identity) error {
	args := m.Called(ctx, session, identity)
	return args.Error(0)
}

func (m *MockSessionStore) Destroy(ctx context.Context, session *auth.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, secret string) (bool, error) {
	args := m.Called(password, secret)
	return args.Bool(0), args.Error(1)
}

// MockSessionPurger is a mock of auth.SessionPurger.
type MockSessionPurger struct {
	mock.Mock
}

// NewMockSessionPurger creates a mock that asserts its expectations on cleanup.
func NewMockSessionPurger(t testingT) *MockSessionPurger {
	m := &MockSessionPurger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionPurger) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
