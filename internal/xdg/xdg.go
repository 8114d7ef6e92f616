// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package xdg provides XDG Base Directory paths for Keystead.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "keystead"

// ConfigFileName is the file looked up in ConfigDir when no --config is given.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for keystead.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir(getenv func(string) string) string {
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns ConfigDir/config.yaml when that file exists,
// or "" when it does not.
func DefaultConfigFile(getenv func(string) string) (string, error) {
	path := filepath.Join(ConfigDir(getenv), ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", oops.Code("CONFIG_STAT_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("DIR_CREATE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
