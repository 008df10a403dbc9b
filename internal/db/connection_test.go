package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "meta.db")

	conn, err := Open(ctx, &config.DatabaseConfig{Path: path})
	require.NoError(t, err)

	var one int
	require.NoError(t, conn.DB.NewRaw("SELECT 1").Scan(ctx, &one))
	assert.Equal(t, 1, one)

	require.NoError(t, conn.Close())
}

func TestOpen_SQLiteLockedByAnotherConnection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "meta.db")}

	first, err := Open(ctx, cfg)
	require.NoError(t, err)

	_, err = Open(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use by another process")

	// Read-only access does not need the lock
	reader, err := Open(ctx, cfg, WithoutLock())
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	require.NoError(t, first.Close())

	second, err := Open(ctx, cfg, WithDebug(true))
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_PostgresWithoutPassword(t *testing.T) {
	t.Setenv(config.EnvPrefix+"_DATABASE_PASSWORD", "")

	_, err := Open(context.Background(), &config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     "localhost",
		User:     "pvp",
		Database: "meta",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build connection string")
}
