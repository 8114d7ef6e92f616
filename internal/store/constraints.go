// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package store

import (
	"strings"

	"github.com/keystead/keystead/internal/auth"
)

// accountConstraints maps the CHECK constraints both schemas declare on the
// accounts table to the field each one guards.
var accountConstraints = map[string]auth.ValidationError{
	"accounts_username_length":       {Field: "username", Detail: "username must be between 1 and 64 characters"},
	"accounts_email_format":          {Field: "email", Detail: "please use a valid email address"},
	"accounts_email_lower":           {Field: "email", Detail: "email must be lower case"},
	"accounts_password_hash_present": {Field: "passwordHash", Detail: "password hash is required"},
}

// MsgUsernameTaken is the detail reported when another account holds the
// requested username.
const MsgUsernameTaken = "username is already taken"

// AccountUniqueError maps a unique violation on accounts. A taken username
// is a validation error on the username field; any other key (email, id)
// means the account already exists. The name may be the bare index name or
// a driver message that mentions the column.
func AccountUniqueError(name string) error {
	if strings.Contains(name, "username") {
		return &auth.ValidationError{Field: "username", Detail: MsgUsernameTaken}
	}
	return auth.ErrDuplicateAccount
}

// AccountConstraintError returns the validation error for a violated accounts
// constraint. The name may be the bare constraint name or a driver message
// that mentions it. When nothing matches, fallbackField names the rejected
// column, or "account" if it is empty.
func AccountConstraintError(name, fallbackField string) *auth.ValidationError {
	if verr, ok := accountConstraints[name]; ok {
		return &verr
	}
	for constraint, verr := range accountConstraints {
		if strings.Contains(name, constraint) {
			return &verr
		}
	}
	if fallbackField == "" {
		fallbackField = "account"
	}
	return &auth.ValidationError{Field: fallbackField, Detail: "invalid value"}
}
