// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package store opens and prepares the databases behind the account and
// session repositories.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectAttempts is how many times ConnectPostgres pings before
// giving up.
const DefaultConnectAttempts = 5

// ConnectOptions tunes ConnectPostgres.
type ConnectOptions struct {
	// Attempts is the number of pings made before giving up.
	Attempts int
	// BaseDelay is the first backoff delay; it doubles on each retry.
	BaseDelay time.Duration
	Logger    *slog.Logger
}

// ConnectPostgres opens a pgx pool and waits for the server to answer a
// ping, retrying with exponential backoff.
func ConnectPostgres(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database URL is required")
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultConnectAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.NewExponential(opts.BaseDelay)
	backoff = retry.WithCappedDuration(5*time.Second, backoff)
	backoff = retry.WithMaxRetries(uint64(opts.Attempts-1), backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			opts.Logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"max_attempts", opts.Attempts,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}

	return pool, nil
}
