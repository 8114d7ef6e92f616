// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers for the oops codes and context keys the repositories,
// stores and commands attach to their errors. A wrapped chain reports the
// innermost code, so a repository error surfaced through the CLI still
// matches the repository's code.

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oe, ok := oops.AsOops(err)
	require.Truef(t, ok, "want an oops error, got %T: %v", err, err)
	return oe
}

// AssertErrorCode fails t unless err carries code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equalf(t, code, requireOops(t, err).Code(), "error: %v", err)
}

// AssertErrorContext fails t unless err carries key with value in its context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	got, ok := requireOops(t, err).Context()[key]
	require.Truef(t, ok, "context key %q missing from %v", key, err)
	assert.Equal(t, value, got)
}
