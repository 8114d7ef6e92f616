// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystead/keystead/pkg/errutil"
)

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("invalid://url")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestNewMigrator_PostgresqlScheme(t *testing.T) {
	// Fails to connect, but the scheme itself must be understood.
	_, err := NewMigrator("postgresql://127.0.0.1:1/keystead?connect_timeout=1")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
	assert.NotContains(t, err.Error(), "unknown driver")
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgres://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}

type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	stepsCalled    bool
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Steps(_ int) error {
	m.stepsCalled = true
	return m.stepsErr
}
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestMigrator_UpDown(t *testing.T) {
	tests := []struct {
		name    string
		mock    *mockMigrate
		run     func(*Migrator) error
		wantErr string
	}{
		{"up", &mockMigrate{}, (*Migrator).Up, ""},
		{"up no change", &mockMigrate{upErr: migrate.ErrNoChange}, (*Migrator).Up, ""},
		{"up error", &mockMigrate{upErr: errors.New("database locked")}, (*Migrator).Up, "MIGRATION_UP_FAILED"},
		{"down", &mockMigrate{}, (*Migrator).Down, ""},
		{"down no change", &mockMigrate{downErr: migrate.ErrNoChange}, (*Migrator).Down, ""},
		{"down error", &mockMigrate{downErr: errors.New("constraint violation")}, (*Migrator).Down, "MIGRATION_DOWN_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.mock})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantErr)
		})
	}
}

func TestMigrator_Steps(t *testing.T) {
	t.Run("zero does not call migrate", func(t *testing.T) {
		mm := &mockMigrate{}
		require.NoError(t, (&Migrator{m: mm}).Steps(0))
		assert.False(t, mm.stepsCalled)
	})

	t.Run("no change is success", func(t *testing.T) {
		require.NoError(t, (&Migrator{m: &mockMigrate{stepsErr: migrate.ErrNoChange}}).Steps(1))
	})

	t.Run("error carries steps", func(t *testing.T) {
		err := (&Migrator{m: &mockMigrate{stepsErr: errors.New("boom")}}).Steps(-1)
		errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_FAILED")
		errutil.AssertErrorContext(t, err, "steps", -1)
	})
}

func TestMigrator_Version(t *testing.T) {
	t.Run("reports version and dirty", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.True(t, dirty)
	})

	t.Run("nil version is zero", func(t *testing.T) {
		v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), v)
		assert.False(t, dirty)
	})

	t.Run("error", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("no table")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Force(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Force(1))

	err := (&Migrator{m: &mockMigrate{}}).Force(-1)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")

	err = (&Migrator{m: &mockMigrate{forceErr: errors.New("locked")}}).Force(1)
	errutil.AssertErrorCode(t, err, "MIGRATION_FORCE_FAILED")
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mock      *mockMigrate
		component string
	}{
		{"source", &mockMigrate{closeSourceErr: errors.New("src")}, "source"},
		{"database", &mockMigrate{closeDbErr: errors.New("db")}, "database"},
		{"both", &mockMigrate{closeSourceErr: errors.New("src"), closeDbErr: errors.New("db")}, "both"},
	}

	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.mock}).Close()
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}
}

func TestMigrator_PendingMigrations(t *testing.T) {
	all, err := MigrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	latest := all[len(all)-1]

	pending, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).PendingMigrations()
	require.NoError(t, err)
	assert.Equal(t, all, pending)

	pending, err = (&Migrator{m: &mockMigrate{versionVal: latest}}).PendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = (&Migrator{m: &mockMigrate{versionErr: errors.New("down")}}).PendingMigrations()
	require.Error(t, err)
}

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	ups, downs := 0, 0
	for _, entry := range entries {
		name := entry.Name()
		assert.True(t, pattern.MatchString(name), "file %s should match NNNNNN_name.(up|down).sql", name)
		if regexp.MustCompile(`\.up\.sql$`).MatchString(name) {
			ups++
		} else {
			downs++
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrationName(t *testing.T) {
	name, err := MigrationName(1)
	require.NoError(t, err)
	assert.Equal(t, "000001_create_accounts", name)

	name, err = MigrationName(2)
	require.NoError(t, err)
	assert.Equal(t, "000002_create_sessions", name)

	name, err = MigrationName(999)
	require.NoError(t, err)
	assert.Empty(t, name)
}
