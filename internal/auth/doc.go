// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package auth implements account registration, login and logout.
//
// # Domain Types
//
// Account holds a username, a normalized email and a password secret
// produced by a PasswordHasher. Accounts are created with NewAccount and
// never mutated afterwards.
//
// Session is passed explicitly into every flow. It is either anonymous or
// carries exactly one Identity, a copy of the account taken at login.
//
// # Flows
//
// Service runs the three flows:
//   - Register - validates the form, hashes the password, creates the account
//   - Login - looks up the account, verifies the password, attaches the session
//   - Logout - destroys the session
//
// Every flow returns either a result or a *Failure whose Kind is one of a
// closed set. Use KindOf to switch on the outcome.
//
// # Storage
//
// AccountRepository and SessionRepository are implemented by the postgres
// and sqlite subpackages. Adapters report ErrNotFound, ErrDuplicateAccount
// and *ValidationError instead of driver errors.
package auth
