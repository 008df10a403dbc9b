// Package ingest applies fetched payloads to the store. There is one
// routine per source kind; each validates the payload shape, then upserts
// entries by natural key and counts what it added, modified and skipped.
package ingest

import (
	"context"
	"fmt"

	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

// Result counts the rows touched by one routine run
type Result struct {
	Added    int
	Modified int
	Skipped  int
}

// Routine applies a payload of one kind through q
type Routine interface {
	Apply(ctx context.Context, q store.Querier, src *source.Descriptor, doc *feed.Document) (Result, error)
}

// Ingester dispatches payloads to the routine of their kind and runs each
// in its own transaction
type Ingester struct {
	routines map[source.Kind]Routine
	schemas  schemas
	keys     KeyPolicy
}

// Option configures an Ingester
type Option func(*Ingester)

// WithKeyPolicy replaces the natural key policy of the built-in routines
func WithKeyPolicy(p KeyPolicy) Option {
	return func(i *Ingester) {
		i.keys = p
	}
}

// WithRoutine registers or replaces the routine of a kind
func WithRoutine(kind source.Kind, r Routine) Option {
	return func(i *Ingester) {
		i.routines[kind] = r
	}
}

// New creates an Ingester with the gamemaster, rankings and tiers routines
func New(opts ...Option) (*Ingester, error) {
	sch, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	i := &Ingester{
		routines: make(map[source.Kind]Routine),
		schemas:  sch,
		keys:     DefaultKeyPolicy{},
	}
	for _, opt := range opts {
		opt(i)
	}

	defaults := map[source.Kind]Routine{
		source.KindGamemaster: &gamemasterRoutine{keys: i.keys},
		source.KindRankings:   &rankingsRoutine{keys: i.keys},
		source.KindTiers:      &tiersRoutine{keys: i.keys},
	}
	for kind, r := range defaults {
		if _, ok := i.routines[kind]; !ok {
			i.routines[kind] = r
		}
	}
	return i, nil
}

// Apply validates doc and runs the routine for src's kind inside a single
// transaction. Any error rolls the transaction back.
func (i *Ingester) Apply(ctx context.Context, st store.Store, src *source.Descriptor, doc *feed.Document) (Result, error) {
	r, ok := i.routines[src.Kind]
	if !ok {
		return Result{}, syncerr.NewParseError(string(src.Kind), fmt.Errorf("no update routine for kind %s", src.Kind))
	}

	if _, builtin := i.schemas[src.Kind]; builtin {
		if err := i.schemas.validate(src.Kind, doc.Body); err != nil {
			return Result{}, syncerr.NewParseError(string(src.Kind), err)
		}
	}

	var res Result
	err := st.RunInTx(ctx, func(ctx context.Context, q store.Querier) error {
		var err error
		res, err = r.Apply(ctx, q, src, doc)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// CountPokemon returns the number of stored species
func CountPokemon(ctx context.Context, q store.Querier) (int, error) {
	var n int
	if _, err := q.Get(ctx, &n, "SELECT COUNT(*) FROM pokemon"); err != nil {
		return 0, fmt.Errorf("failed to count pokemon: %w", err)
	}
	return n, nil
}
