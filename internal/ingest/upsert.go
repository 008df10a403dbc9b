package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

// upsert looks up a row by natural key and updates it when found, else
// inserts it
type upsert struct {
	entity string
	lookup store.Statement
	insert store.Statement
	update func(id int64) store.Statement
}

func (u *upsert) apply(ctx context.Context, q store.Querier, res *Result) error {
	var id int64
	found, err := q.Get(ctx, &id, u.lookup.Query, u.lookup.Args...)
	if err != nil {
		return syncerr.NewPersistenceError("lookup "+u.entity, err)
	}

	if found {
		stmt := u.update(id)
		if _, err := q.Run(ctx, stmt.Query, stmt.Args...); err != nil {
			return syncerr.NewPersistenceError("update "+u.entity, err)
		}
		res.Modified++
		return nil
	}

	if _, err := q.Run(ctx, u.insert.Query, u.insert.Args...); err != nil {
		return syncerr.NewPersistenceError("insert "+u.entity, err)
	}
	res.Added++
	return nil
}

// requireSpecies returns a NotFoundError when the species is not stored yet
func requireSpecies(ctx context.Context, q store.Querier, speciesID string) error {
	var id int64
	found, err := q.Get(ctx, &id, "SELECT id FROM pokemon WHERE species_id = ?", speciesID)
	if err != nil {
		return syncerr.NewPersistenceError("lookup pokemon", err)
	}
	if !found {
		return &syncerr.NotFoundError{Entity: "pokemon", Key: speciesID}
	}
	return nil
}

// skipOrFail counts a NotFoundError as skipped and returns any other error
func skipOrFail(src *source.Descriptor, err error, res *Result) error {
	var nf *syncerr.NotFoundError
	if errors.As(err, &nf) {
		slog.Warn("Skipping entry", "source", src.ID, "entity", nf.Entity, "key", nf.Key)
		res.Skipped++
		return nil
	}
	return err
}
