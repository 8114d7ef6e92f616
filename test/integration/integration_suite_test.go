// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

//go:build integration

// Package integration provides end-to-end tests for keystead against a real
// PostgreSQL server.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/keystead/keystead/internal/store"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

var (
	suiteCtx  context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
)

var _ = BeforeSuite(func() {
	suiteCtx = context.Background()

	var err error
	container, err = postgres.Run(suiteCtx,
		"postgres:16-alpine",
		postgres.WithDatabase("keystead_test"),
		postgres.WithUsername("keystead"),
		postgres.WithPassword("keystead"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(suiteCtx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.ConnectPostgres(suiteCtx, connStr, store.ConnectOptions{})
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(suiteCtx)
	}
})
