// Package storetest provides a migrated SQLite store for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
)

// New opens a fresh SQLite database in a temporary directory, applies all
// migrations and closes it when the test ends
func New(t *testing.T) *store.BunStore {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Open(ctx, &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, database.MigrateUp(ctx, conn.DB))

	return store.New(conn.DB)
}
