package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/store/storetest"
)

func TestRepository_LoadRestoresState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := storetest.New(t)
	repo := source.NewRepository(s)

	reg, err := source.NewRegistry(
		&source.Descriptor{ID: "gm", Name: "Game master", Kind: source.KindGamemaster, Priority: 10, Active: true},
		&source.Descriptor{ID: "rk", Name: "Rankings", Kind: source.KindRankings, Priority: 8, Active: true},
	)
	require.NoError(t, err)

	// First boot writes rows for every configured source
	require.NoError(t, repo.Load(ctx, reg))

	updated := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	d, err := reg.MarkUpdated("gm", "etag-42", updated)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, d))

	// A restart builds a fresh registry from configuration
	restarted, err := source.NewRegistry(
		&source.Descriptor{ID: "gm", Name: "Game master", Kind: source.KindGamemaster, Priority: 10, Active: true},
		&source.Descriptor{ID: "rk", Name: "Rankings", Kind: source.KindRankings, Priority: 8, Active: true},
	)
	require.NoError(t, err)
	require.NoError(t, repo.Load(ctx, restarted))

	gm, _ := restarted.Get("gm")
	assert.Equal(t, "etag-42", gm.LastKnownVersionMarker)
	require.NotNil(t, gm.LastUpdatedAt)
	assert.True(t, updated.Equal(*gm.LastUpdatedAt))

	rk, _ := restarted.Get("rk")
	assert.Empty(t, rk.LastKnownVersionMarker)
	assert.Nil(t, rk.LastUpdatedAt)
}

func TestRepository_LoadKeepsUnconfiguredRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := storetest.New(t)
	repo := source.NewRepository(s)

	old, err := source.NewRegistry(&source.Descriptor{ID: "retired", Kind: source.KindTiers, Active: true})
	require.NoError(t, err)
	require.NoError(t, repo.Load(ctx, old))

	current, err := source.NewRegistry(&source.Descriptor{ID: "gm", Kind: source.KindGamemaster, Active: true})
	require.NoError(t, err)
	require.NoError(t, repo.Load(ctx, current))

	var n int
	_, err = s.Get(ctx, &n, "SELECT count(*) FROM sources")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRepository_SaveError(t *testing.T) {
	t.Parallel()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := store.New(bun.NewDB(sqldb, sqlitedialect.New()))

	mock.ExpectExec("INSERT INTO sources").WillReturnError(errors.New("database is locked"))

	err = source.NewRepository(s).Save(context.Background(), &source.Descriptor{ID: "gm"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save source gm")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SaveActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name       string
		seed       bool
		wantMarker string
	}{
		{name: "keeps update state of existing row", seed: true, wantMarker: "etag-42"},
		{name: "writes missing row in full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := storetest.New(t)
			repo := source.NewRepository(s)
			reg, err := source.NewRegistry(&source.Descriptor{ID: "rk", Name: "Rankings", Kind: source.KindRankings, Priority: 8})
			require.NoError(t, err)
			stale, _ := reg.Get("rk")

			if tt.seed {
				d, err := reg.MarkUpdated("rk", "etag-42", time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC))
				require.NoError(t, err)
				require.NoError(t, repo.Save(ctx, d))
			}

			stale.Active = true
			require.NoError(t, repo.SaveActive(ctx, stale))

			var row database.Source
			found, err := s.Get(ctx, &row, "SELECT * FROM sources WHERE id = ?", "rk")
			require.NoError(t, err)
			require.True(t, found)
			assert.True(t, row.Active)
			assert.Equal(t, tt.wantMarker, row.LastKnownVersionMarker)
			assert.Equal(t, "Rankings", row.Name)
		})
	}
}

func TestRepository_SaveActiveError(t *testing.T) {
	t.Parallel()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := store.New(bun.NewDB(sqldb, sqlitedialect.New()))

	mock.ExpectExec("UPDATE sources SET active").WillReturnError(errors.New("database is locked"))

	err = source.NewRepository(s).SaveActive(context.Background(), &source.Descriptor{ID: "gm", Active: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save active flag of source gm")
	require.NoError(t, mock.ExpectationsWereMet())
}
