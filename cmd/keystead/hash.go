// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/keystead/keystead/internal/auth"
)

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Hash a password read from stdin",
		Long: `Read one password line from stdin and print its secret using the
configured hasher. The password must satisfy the signup policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateAuth(); err != nil {
				return err
			}
			hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			return runHash(cmd.InOrStdin(), cmd, hasher)
		},
	}
}

func runHash(in io.Reader, cmd *cobra.Command, hasher auth.PasswordHasher) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return oops.Code("HASH_INPUT_FAILED").Wrap(err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return oops.Code("HASH_INPUT_EMPTY").Errorf("no password on stdin")
	}
	if failure := auth.CheckPassword(password); failure != nil {
		return failure
	}

	secret, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), secret)
	return err
}
