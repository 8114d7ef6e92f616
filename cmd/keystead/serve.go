// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keystead/keystead/internal/auth"
	"github.com/keystead/keystead/internal/config"
	"github.com/keystead/keystead/internal/logging"
	"github.com/keystead/keystead/internal/observability"
	"github.com/keystead/keystead/internal/web"
)

// readinessTimeout bounds the database ping behind /healthz/readiness.
const readinessTimeout = 2 * time.Second

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// BackendOpener connects to the account store.
	// Default: openBackend
	BackendOpener func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Backend, error)

	// Ready is called with the bound addresses once every server is
	// listening. metricsAddr is empty when the metrics server is disabled.
	Ready func(webAddr, metricsAddr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the account web server, the metrics and health server and
the expired session sweeper. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, nil)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendOpener == nil {
		deps.BackendOpener = openBackend
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger := logging.SetDefault("keystead", version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting keystead",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
		"hasher", cfg.Auth.Hasher,
	)

	backend, err := deps.BackendOpener(ctx, cfg.Database, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	defer backend.Close()

	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionStore(backend.Sessions, cfg.Auth.SessionTTL, auth.WithSessionLogger(logger))
	if err != nil {
		return err
	}
	service, err := auth.NewServiceWithLogger(backend.Accounts, sessions, hasher, logger)
	if err != nil {
		return err
	}
	handler, err := web.NewHandler(service, sessions, web.CookieOptions{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sweeper := auth.NewSessionSweeper(sessions, cfg.Auth.SessionSweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	webServer := web.NewServer(cfg.HTTP.Addr, handler.Routes(), cfg.HTTP.ReadHeaderTimeout, logger)
	webErr, err := webServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, webErr, "web", logger)

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func(ctx context.Context) bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, readinessTimeout)
			defer pingCancel()
			return backend.Ping(pingCtx) == nil
		}, logger)
		obsErr, err := obsServer.Start()
		if err != nil {
			stopServer(webServer.Stop, cfg.HTTP.ShutdownTimeout, "web", logger)
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErr, "observability", logger)
	}

	if deps.Ready != nil {
		var metricsAddr string
		if obsServer != nil {
			metricsAddr = obsServer.Addr()
		}
		deps.Ready(webServer.Addr(), metricsAddr)
	}
	logger.Info("keystead ready", "http_addr", webServer.Addr())

	<-ctx.Done()
	logger.Info("shutting down")

	stopServer(webServer.Stop, cfg.HTTP.ShutdownTimeout, "web", logger)
	if obsServer != nil {
		stopServer(obsServer.Stop, cfg.HTTP.ShutdownTimeout, "observability", logger)
	}

	logger.Info("shutdown complete")
	return nil
}

func stopServer(stop func(context.Context) error, timeout time.Duration, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

