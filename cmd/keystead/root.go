// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keystead/keystead/internal/config"
	"github.com/keystead/keystead/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the keystead CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keystead",
		Short: "Keystead - account registration, login and sessions",
		Long: `Keystead serves account signup, login and logout pages backed by
PostgreSQL or SQLite, with server-side sessions.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashCmd())

	return cmd
}

// loadConfig reads the config file named by --config, or
// $XDG_CONFIG_HOME/keystead/config.yaml when present, and applies the flags
// the user set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.DefaultConfigFile(os.Getenv)
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.Load(path, cmd.Flags(), os.Getenv)
}
