// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Account Store and session repository adapters.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAccount is returned by AccountRepository.Create when the
	// store's uniqueness constraint on email (or username) rejects the write.
	ErrDuplicateAccount = errors.New("account already exists")
)

// ValidationError is returned by AccountRepository.Create when the store
// rejects a field of the account. Detail is safe to show to the user.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// Kind classifies the outcome of a failed flow.
type Kind string

// The closed set of failure kinds a flow can report.
const (
	KindMissingFields      Kind = "MISSING_FIELDS"
	KindPasswordTooShort   Kind = "PASSWORD_TOO_SHORT"
	KindPasswordTooWeak    Kind = "PASSWORD_TOO_WEAK"
	KindPasswordTooLong    Kind = "PASSWORD_TOO_LONG"
	KindDuplicateAccount   Kind = "DUPLICATE_ACCOUNT"
	KindInvalidAccountData Kind = "INVALID_ACCOUNT_DATA"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindStoreUnavailable   Kind = "STORE_UNAVAILABLE"
)

// User-facing messages. The credentials message is shared by the unknown
// email and wrong password cases.
const (
	MsgSignupMissingFields = "All fields need to be filled."
	MsgLoginMissingFields  = "Please enter both, email and password to login."
	MsgPasswordTooShort    = "Password needs to be at least 6 characters."
	MsgPasswordTooWeak     = "Password needs to have at least 6 chars and must contain at least one number, one lowercase and one uppercase letter."
	MsgPasswordTooLong     = "Password must be at most 72 bytes."
	MsgDuplicateAccount    = "Hey, you already have an account registered with us!"
	MsgInvalidCredentials  = "User not found and/or incorrect password."
	MsgStoreUnavailable    = "Something went wrong. Please try again later."
)

// Failure is the tagged error every flow returns. Message is the text the
// presentation layer shows; Err carries the underlying cause, if any.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Expected reports whether the failure is a user error that should be shown
// on the originating form rather than handled as an unexpected fault.
func (f *Failure) Expected() bool {
	return f.Kind != KindStoreUnavailable
}

func fail(kind Kind, msg string) *Failure {
	return &Failure{Kind: kind, Message: msg}
}

func unavailable(err error) *Failure {
	return &Failure{Kind: KindStoreUnavailable, Message: MsgStoreUnavailable, Err: err}
}

// KindOf returns the failure kind carried by err. Errors that are not a
// *Failure are unexpected and report KindStoreUnavailable. A nil error has
// no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindStoreUnavailable
}

// AsFailure extracts the *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}
