package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/ingest"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/store/storetest"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

const gamemasterPayload = `{
  "pokemon": [
    {"speciesId": "medicham", "speciesName": "Medicham", "dex": 308, "types": ["fighting", "psychic"],
     "baseStats": {"atk": 121, "def": 152, "hp": 155},
     "fastMoves": ["COUNTER", "PSYCHO_CUT"], "chargedMoves": ["ICE_PUNCH", "DYNAMIC_PUNCH"]},
    {"speciesId": "azumarill", "speciesName": "Azumarill", "dex": 184, "types": ["water", "fairy"],
     "baseStats": {"atk": 112, "def": 152, "hp": 225},
     "fastMoves": ["BUBBLE"], "chargedMoves": ["ICE_BEAM", "PLAY_ROUGH"]}
  ],
  "moves": [
    {"moveId": "COUNTER", "name": "Counter", "type": "fighting", "power": 8, "energyGain": 7, "cooldown": 1000},
    {"moveId": "ICE_PUNCH", "name": "Ice Punch", "type": "ice", "power": 55, "energy": 40, "cooldown": 500}
  ]
}`

const rankingsPayload = `[
  {"speciesId": "azumarill", "rating": 720, "score": 95.1, "moveset": ["BUBBLE", "ICE_BEAM", "PLAY_ROUGH"]},
  {"speciesId": "registeel", "rating": 701, "score": 94.3, "moveset": ["LOCK_ON", "FOCUS_BLAST"]},
  {"speciesId": "medicham", "rating": 690, "score": 93.8, "moveset": ["COUNTER", "ICE_PUNCH"]}
]`

const tiersPayload = `[
  {"tier": "S", "pokemon": ["medicham", "azumarill"]},
  {"tier": "A", "pokemon": ["lanturn"]}
]`

var fetchedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newIngester(t *testing.T, opts ...ingest.Option) *ingest.Ingester {
	t.Helper()
	ing, err := ingest.New(opts...)
	require.NoError(t, err)
	return ing
}

func sourceOf(kind source.Kind) *source.Descriptor {
	return &source.Descriptor{
		ID:     string(kind) + "-great",
		Kind:   kind,
		Scope:  source.Scope{League: "great"},
		Active: true,
	}
}

func docOf(kind source.Kind, body string) *feed.Document {
	return &feed.Document{Kind: kind, Body: []byte(body), VersionMarker: "v1", FetchedAt: fetchedAt}
}

func TestIngester_Gamemaster(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.New(t)
	ing := newIngester(t)
	src := sourceOf(source.KindGamemaster)

	res, err := ing.Apply(ctx, st, src, docOf(source.KindGamemaster, gamemasterPayload))
	require.NoError(t, err)
	assert.Equal(t, ingest.Result{Added: 4}, res)

	var medicham database.Pokemon
	found, err := st.Get(ctx, &medicham, "SELECT * FROM pokemon WHERE species_id = ?", "medicham")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 308, medicham.Dex)
	assert.Equal(t, "fighting,psychic", medicham.Types)
	assert.Equal(t, "COUNTER,PSYCHO_CUT", medicham.FastMoves)
	assert.InDelta(t, 121.0, medicham.Attack, 0.001)

	var counter database.Move
	found, err = st.Get(ctx, &counter, "SELECT * FROM moves WHERE move_id = ?", "COUNTER")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 7, counter.EnergyGain)

	res, err = ing.Apply(ctx, st, src, docOf(source.KindGamemaster, gamemasterPayload))
	require.NoError(t, err)
	assert.Equal(t, ingest.Result{Modified: 4}, res)

	n, err := ingest.CountPokemon(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngester_RankingsSkipsUnknownSpecies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.New(t)
	ing := newIngester(t)

	_, err := ing.Apply(ctx, st, sourceOf(source.KindGamemaster), docOf(source.KindGamemaster, gamemasterPayload))
	require.NoError(t, err)

	res, err := ing.Apply(ctx, st, sourceOf(source.KindRankings), docOf(source.KindRankings, rankingsPayload))
	require.NoError(t, err)
	assert.Equal(t, ingest.Result{Added: 2, Skipped: 1}, res)

	var rows []database.Ranking
	require.NoError(t, st.All(ctx, &rows, "SELECT * FROM rankings ORDER BY rank"))
	require.Len(t, rows, 2)
	assert.Equal(t, "azumarill", rows[0].SpeciesID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, ingest.DefaultCup, rows[0].Cup)
	assert.Equal(t, "medicham", rows[1].SpeciesID)
	assert.Equal(t, 3, rows[1].Rank, "rank is the payload position")
	assert.Equal(t, "COUNTER,ICE_PUNCH", rows[1].Moveset)
}

func TestIngester_Tiers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.New(t)
	ing := newIngester(t)

	_, err := ing.Apply(ctx, st, sourceOf(source.KindGamemaster), docOf(source.KindGamemaster, gamemasterPayload))
	require.NoError(t, err)

	res, err := ing.Apply(ctx, st, sourceOf(source.KindTiers), docOf(source.KindTiers, tiersPayload))
	require.NoError(t, err)
	assert.Equal(t, ingest.Result{Added: 2, Skipped: 1}, res)

	res, err = ing.Apply(ctx, st, sourceOf(source.KindTiers),
		docOf(source.KindTiers, `[{"tier": "A", "pokemon": ["medicham"]}]`))
	require.NoError(t, err)
	assert.Equal(t, ingest.Result{Modified: 1}, res)

	var tier database.Tier
	found, err := st.Get(ctx, &tier, "SELECT * FROM tiers WHERE league = ? AND species_id = ?", "great", "medicham")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A", tier.Tier)
}

func TestIngester_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind source.Kind
		body string
	}{
		{name: "invalid json", kind: source.KindRankings, body: `[{"speciesId":`},
		{name: "gamemaster missing moves", kind: source.KindGamemaster, body: `{"pokemon": []}`},
		{name: "rankings not an array", kind: source.KindRankings, body: `{"speciesId": "medicham"}`},
		{name: "ranking without species", kind: source.KindRankings, body: `[{"rating": 700}]`},
		{name: "tier without pokemon", kind: source.KindTiers, body: `[{"tier": "S"}]`},
		{name: "unknown kind", kind: source.Kind("raids"), body: `[]`},
	}

	ing := newIngester(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := storetest.New(t)
			_, err := ing.Apply(context.Background(), st, sourceOf(tt.kind), docOf(tt.kind, tt.body))
			var parseErr *syncerr.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, string(tt.kind), parseErr.Kind)
		})
	}
}

type failingRoutine struct{}

func (failingRoutine) Apply(ctx context.Context, q store.Querier, _ *source.Descriptor, _ *feed.Document) (ingest.Result, error) {
	_, err := q.Run(ctx, "INSERT INTO tiers (league, species_id, tier, updated_at) VALUES (?, ?, ?, ?)",
		"great", "medicham", "S", fetchedAt)
	if err != nil {
		return ingest.Result{}, err
	}
	return ingest.Result{Added: 1}, syncerr.NewPersistenceError("insert tier", errors.New("disk full"))
}

func TestIngester_FailedRoutineLeavesNoRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.New(t)
	ing := newIngester(t, ingest.WithRoutine(source.KindTiers, failingRoutine{}))

	_, err := ing.Apply(ctx, st, sourceOf(source.KindTiers), docOf(source.KindTiers, tiersPayload))
	var persistErr *syncerr.PersistenceError
	require.ErrorAs(t, err, &persistErr)

	var count int
	_, err = st.Get(ctx, &count, "SELECT COUNT(*) FROM tiers")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngester_WriteFailureIsPersistenceError(t *testing.T) {
	t.Parallel()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	st := store.New(bun.NewDB(sqldb, sqlitedialect.New()))
	t.Cleanup(func() { _ = st.Close() })

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM pokemon").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("SELECT id FROM tiers").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO tiers").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	ing := newIngester(t)
	_, err = ing.Apply(context.Background(), st, sourceOf(source.KindTiers),
		docOf(source.KindTiers, `[{"tier": "S", "pokemon": ["medicham"]}]`))

	var persistErr *syncerr.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "insert tier", persistErr.Op)
	assert.Contains(t, err.Error(), "database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

type prefixedSpecies struct {
	ingest.DefaultKeyPolicy
}

func (p prefixedSpecies) SpeciesKey(entry gjson.Result) string {
	return "pvp_" + p.DefaultKeyPolicy.SpeciesKey(entry)
}

func TestIngester_WithKeyPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.New(t)
	ing := newIngester(t, ingest.WithKeyPolicy(prefixedSpecies{}))

	_, err := ing.Apply(ctx, st, sourceOf(source.KindGamemaster), docOf(source.KindGamemaster, gamemasterPayload))
	require.NoError(t, err)

	var id int64
	found, err := st.Get(ctx, &id, "SELECT id FROM pokemon WHERE species_id = ?", "pvp_medicham")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDefaultKeyPolicy(t *testing.T) {
	t.Parallel()

	p := ingest.DefaultKeyPolicy{}
	assert.Equal(t, "marowak_alolan", p.SpeciesKey(gjson.Parse(`{"speciesId": " Marowak_Alolan "}`)))
	assert.Equal(t, "lanturn", p.SpeciesKey(gjson.Parse(`"Lanturn"`)))
	assert.Equal(t, "ICE_BEAM", p.MoveKey(gjson.Parse(`{"moveId": "ice_beam"}`)))
	assert.Empty(t, p.MoveKey(gjson.Parse(`{}`)))
}
