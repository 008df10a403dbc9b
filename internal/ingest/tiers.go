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

// tiersRoutine upserts a tier list given as groups of species per tier
type tiersRoutine struct {
	keys KeyPolicy
}

func (r *tiersRoutine) Apply(ctx context.Context, q store.Querier, src *source.Descriptor, doc *feed.Document) (Result, error) {
	var res Result
	league := src.Scope.League
	at := doc.FetchedAt

	for gi, group := range gjson.ParseBytes(doc.Body).Array() {
		tier := group.Get("tier").String()

		for pi, member := range group.Get("pokemon").Array() {
			key := r.keys.SpeciesKey(member)
			if key == "" {
				return res, syncerr.NewParseError(string(source.KindTiers),
					fmt.Errorf("[%d].pokemon[%d]: empty species key", gi, pi))
			}

			if err := requireSpecies(ctx, q, key); err != nil {
				if err := skipOrFail(src, err, &res); err != nil {
					return res, err
				}
				continue
			}

			u := &upsert{
				entity: "tier",
				lookup: store.Statement{
					Query: "SELECT id FROM tiers WHERE league = ? AND species_id = ?",
					Args:  []any{league, key},
				},
				insert: store.Statement{
					Query: "INSERT INTO tiers (league, species_id, tier, updated_at) VALUES (?, ?, ?, ?)",
					Args:  []any{league, key, tier, at},
				},
				update: func(id int64) store.Statement {
					return store.Statement{
						Query: "UPDATE tiers SET tier = ?, updated_at = ? WHERE id = ?",
						Args:  []any{tier, at, id},
					}
				},
			}
			if err := u.apply(ctx, q, &res); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}
