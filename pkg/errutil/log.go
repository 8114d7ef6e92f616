// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package errutil renders oops errors for logs and tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with any extra attrs.
// If an oops error is anywhere in the chain, its code and context are
// logged as separate attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			attrs = append(attrs, "context", octx)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
