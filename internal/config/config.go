// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package config loads keystead configuration. Values are layered:
// built-in defaults, then an optional YAML file, then command-line flags.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/keystead/keystead/internal/auth"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseURLEnv is consulted when database.url is not configured.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
}

// HTTPConfig configures the public web server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health server. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig selects and locates the Account Store.
type DatabaseConfig struct {
	Driver          string `koanf:"driver"`
	URL             string `koanf:"url"`
	Path            string `koanf:"path"`
	ConnectAttempts int    `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// AuthConfig tunes hashing and sessions.
type AuthConfig struct {
	Hasher               string        `koanf:"hasher"`
	BcryptCost           int           `koanf:"bcrypt_cost"`
	SessionTTL           time.Duration `koanf:"session_ttl"`
	SessionSweepInterval time.Duration `koanf:"session_sweep_interval"`
	CookieName           string        `koanf:"cookie_name"`
	CookieSecure         bool          `koanf:"cookie_secure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              "127.0.0.1:8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Path:            "keystead.db",
			ConnectAttempts: 5,
		},
		Auth: AuthConfig{
			Hasher:               auth.AlgorithmBcrypt,
			BcryptCost:           auth.DefaultBcryptCost,
			SessionTTL:           auth.DefaultSessionTTL,
			SessionSweepInterval: auth.DefaultSweepInterval,
			CookieName:           "keystead_session",
		},
	}
}

// RegisterFlags adds one flag per configuration key to fs. Flag names are
// the dotted keys, e.g. --http.addr.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http.addr", d.HTTP.Addr, "web server listen address")
	fs.Duration("http.read_header_timeout", d.HTTP.ReadHeaderTimeout, "time allowed to read request headers")
	fs.Duration("http.shutdown_timeout", d.HTTP.ShutdownTimeout, "graceful shutdown deadline")
	fs.String("metrics.addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log.format", d.Log.Format, "log format (json or text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database.driver", d.Database.Driver, "account store driver (postgres or sqlite)")
	fs.String("database.url", d.Database.URL, "PostgreSQL URL (default: $DATABASE_URL)")
	fs.String("database.path", d.Database.Path, "SQLite database file")
	fs.Int("database.connect_attempts", d.Database.ConnectAttempts, "PostgreSQL connection attempts at startup")
	fs.Bool("database.auto_migrate", d.Database.AutoMigrate, "apply pending PostgreSQL migrations at startup")
	fs.String("auth.hasher", d.Auth.Hasher, "password hasher for new secrets (bcrypt or argon2id)")
	fs.Int("auth.bcrypt_cost", d.Auth.BcryptCost, "bcrypt work factor")
	fs.Duration("auth.session_ttl", d.Auth.SessionTTL, "lifetime of an authenticated session")
	fs.Duration("auth.session_sweep_interval", d.Auth.SessionSweepInterval, "interval between expired session purges")
	fs.String("auth.cookie_name", d.Auth.CookieName, "session cookie name")
	fs.Bool("auth.cookie_secure", d.Auth.CookieSecure, "mark the session cookie Secure")
}

// Load builds the configuration from the YAML file at path (skipped when
// empty) and the flags in fs (nil for none). Only flags the user set
// override file values. getenv supplies the DATABASE_URL fallback. The
// result is not validated; commands validate the sections they use.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "decode config").
			Wrap(err)
	}

	if cfg.Database.URL == "" && getenv != nil {
		cfg.Database.URL = getenv(DatabaseURLEnv)
	}
	return &cfg, nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks that the configuration is usable by keystead serve.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", "http.shutdown_timeout must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	return c.ValidateAuth()
}

// ValidateDatabase checks the database section.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database.url or %s is required for the postgres driver", DatabaseURLEnv)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return invalid("database.path", "database.path is required for the sqlite driver")
		}
	default:
		return invalid("database.driver", "database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	return nil
}

// ValidateAuth checks the auth section.
func (c *Config) ValidateAuth() error {
	switch c.Auth.Hasher {
	case auth.AlgorithmBcrypt, auth.AlgorithmArgon2id:
	default:
		return invalid("auth.hasher", "auth.hasher must be %q or %q, got %q", auth.AlgorithmBcrypt, auth.AlgorithmArgon2id, c.Auth.Hasher)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return invalid("auth.bcrypt_cost", "auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.SessionTTL <= 0 {
		return invalid("auth.session_ttl", "auth.session_ttl must be positive")
	}
	if c.Auth.SessionSweepInterval <= 0 {
		return invalid("auth.session_sweep_interval", "auth.session_sweep_interval must be positive")
	}
	if c.Auth.CookieName == "" {
		return invalid("auth.cookie_name", "auth.cookie_name is required")
	}
	return nil
}
