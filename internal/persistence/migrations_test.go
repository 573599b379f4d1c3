package persistence

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		raw, err := fs.ReadFile(migrationFS, migrationsDir+"/"+entry.Name())
		require.NoError(t, err)
		body := string(raw)
		assert.True(t, strings.HasPrefix(body, "-- +goose Up"), entry.Name())
		assert.Contains(t, body, "-- +goose Down", entry.Name())
	}
}

func TestSessionsMigrationKeepsTokenUnique(t *testing.T) {
	raw, err := fs.ReadFile(migrationFS, migrationsDir+"/00002_create_sessions.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "token      TEXT NOT NULL UNIQUE")
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	called := false
	orig := gooseUp
	gooseUp = func(context.Context, *sql.DB, string) error {
		called = true
		return nil
	}
	t.Cleanup(func() { gooseUp = orig })

	require.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
	assert.False(t, called)
}
