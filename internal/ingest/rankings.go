package ingest

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

// DefaultCup is the cup of a rankings source without one in its scope
const DefaultCup = "all"

// rankingsRoutine upserts one ranked list. The rank is the entry's position
// in the payload.
type rankingsRoutine struct {
	keys KeyPolicy
}

func (r *rankingsRoutine) Apply(ctx context.Context, q store.Querier, src *source.Descriptor, doc *feed.Document) (Result, error) {
	var res Result
	league := src.Scope.League
	cup := src.Scope.Cup
	if cup == "" {
		cup = DefaultCup
	}

	for i, entry := range gjson.ParseBytes(doc.Body).Array() {
		key := r.keys.SpeciesKey(entry)
		if key == "" {
			return res, syncerr.NewParseError(string(source.KindRankings), fmt.Errorf("[%d]: empty species key", i))
		}

		if err := requireSpecies(ctx, q, key); err != nil {
			if err := skipOrFail(src, err, &res); err != nil {
				return res, err
			}
			continue
		}

		rank := i + 1
		score := entry.Get("score").Float()
		rating := entry.Get("rating").Int()
		moveset := joinStrings(entry.Get("moveset"))
		at := doc.FetchedAt

		u := &upsert{
			entity: "ranking",
			lookup: store.Statement{
				Query: "SELECT id FROM rankings WHERE league = ? AND cup = ? AND species_id = ?",
				Args:  []any{league, cup, key},
			},
			insert: store.Statement{
				Query: `INSERT INTO rankings (league, cup, species_id, rank, score, rating, moveset, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				Args: []any{league, cup, key, rank, score, rating, moveset, at},
			},
			update: func(id int64) store.Statement {
				return store.Statement{
					Query: "UPDATE rankings SET rank = ?, score = ?, rating = ?, moveset = ?, updated_at = ? WHERE id = ?",
					Args:  []any{rank, score, rating, moveset, at, id},
				}
			},
		}
		if err := u.apply(ctx, q, &res); err != nil {
			return res, err
		}
	}

	return res, nil
}
