// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import "unicode/utf8"

// Password policy constraints.
const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt can hash without truncation.
	MaxPasswordBytes = 72
)

// CheckPassword applies the registration password policy in order: minimum
// length, then complexity, then the byte limit. It returns nil or a *Failure.
func CheckPassword(password string) *Failure {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fail(KindPasswordTooShort, MsgPasswordTooShort)
	}
	if !isStrong(password) {
		return fail(KindPasswordTooWeak, MsgPasswordTooWeak)
	}
	if len(password) > MaxPasswordBytes {
		return fail(KindPasswordTooLong, MsgPasswordTooLong)
	}
	return nil
}

// isStrong reports whether password has an ASCII digit, lowercase and
// uppercase letter.
func isStrong(password string) bool {
	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		}
	}
	return digit && lower && upper
}
