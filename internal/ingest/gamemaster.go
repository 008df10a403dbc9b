package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

// gamemasterRoutine upserts moves, then species
type gamemasterRoutine struct {
	keys KeyPolicy
}

func (r *gamemasterRoutine) Apply(ctx context.Context, q store.Querier, _ *source.Descriptor, doc *feed.Document) (Result, error) {
	var res Result
	at := doc.FetchedAt

	for i, entry := range gjson.GetBytes(doc.Body, "moves").Array() {
		key := r.keys.MoveKey(entry)
		if key == "" {
			return res, syncerr.NewParseError(string(source.KindGamemaster), fmt.Errorf("moves[%d]: empty move key", i))
		}
		if err := moveUpsert(key, entry, at).apply(ctx, q, &res); err != nil {
			return res, err
		}
	}

	for i, entry := range gjson.GetBytes(doc.Body, "pokemon").Array() {
		key := r.keys.SpeciesKey(entry)
		if key == "" {
			return res, syncerr.NewParseError(string(source.KindGamemaster), fmt.Errorf("pokemon[%d]: empty species key", i))
		}
		if err := pokemonUpsert(key, entry, at).apply(ctx, q, &res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func moveUpsert(key string, e gjson.Result, at time.Time) *upsert {
	name := e.Get("name").String()
	typ := e.Get("type").String()
	power := e.Get("power").Int()
	energy := e.Get("energy").Int()
	gain := e.Get("energyGain").Int()
	cooldown := e.Get("cooldown").Int()

	return &upsert{
		entity: "move",
		lookup: store.Statement{Query: "SELECT id FROM moves WHERE move_id = ?", Args: []any{key}},
		insert: store.Statement{
			Query: `INSERT INTO moves (move_id, name, type, power, energy, energy_gain, cooldown, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{key, name, typ, power, energy, gain, cooldown, at},
		},
		update: func(id int64) store.Statement {
			return store.Statement{
				Query: `UPDATE moves SET name = ?, type = ?, power = ?, energy = ?, energy_gain = ?,
cooldown = ?, updated_at = ? WHERE id = ?`,
				Args: []any{name, typ, power, energy, gain, cooldown, at, id},
			}
		},
	}
}

func pokemonUpsert(key string, e gjson.Result, at time.Time) *upsert {
	name := e.Get("speciesName").String()
	dex := e.Get("dex").Int()
	types := joinStrings(e.Get("types"))
	atk := e.Get("baseStats.atk").Float()
	def := e.Get("baseStats.def").Float()
	hp := e.Get("baseStats.hp").Float()
	fast := joinStrings(e.Get("fastMoves"))
	charged := joinStrings(e.Get("chargedMoves"))

	return &upsert{
		entity: "pokemon",
		lookup: store.Statement{Query: "SELECT id FROM pokemon WHERE species_id = ?", Args: []any{key}},
		insert: store.Statement{
			Query: `INSERT INTO pokemon
(species_id, dex, name, types, attack, defense, stamina, fast_moves, charged_moves, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Args: []any{key, dex, name, types, atk, def, hp, fast, charged, at},
		},
		update: func(id int64) store.Statement {
			return store.Statement{
				Query: `UPDATE pokemon SET dex = ?, name = ?, types = ?, attack = ?, defense = ?, stamina = ?,
fast_moves = ?, charged_moves = ?, updated_at = ? WHERE id = ?`,
				Args: []any{dex, name, types, atk, def, hp, fast, charged, at, id},
			}
		},
	}
}

// joinStrings flattens a JSON string array into a comma separated column
func joinStrings(arr gjson.Result) string {
	items := arr.Array()
	out := make([]string, 0, len(items))
	for _, v := range items {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ",")
}
