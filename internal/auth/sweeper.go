// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/keystead/keystead/internal/observability"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 15 * time.Minute

// SessionPurger removes expired session records.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionSweeper periodically purges expired sessions.
type SessionSweeper struct {
	purger   SessionPurger
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionSweeper creates a sweeper. A non-positive interval selects
// DefaultSweepInterval.
func NewSessionSweeper(purger SessionPurger, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		purger:   purger,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce executes a single purge cycle.
func (w *SessionSweeper) RunOnce(ctx context.Context) error {
	purged, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		observability.RecordSessionsPurged(purged)
		w.logger.InfoContext(ctx, "purged expired sessions", "count", purged)
	}
	return nil
}

// Start begins periodic purging in the background.
func (w *SessionSweeper) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the sweeper and waits for the running cycle to finish.
func (w *SessionSweeper) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *SessionSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.RunOnce(ctx); err != nil {
		w.logger.ErrorContext(ctx, "session sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "session sweep failed", "error", err)
			}
		}
	}
}
