package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
)

const upsertSourceSQL = `INSERT INTO sources
	(id, name, kind, priority, active, last_checked_at, last_updated_at, last_known_version_marker)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	kind = EXCLUDED.kind,
	priority = EXCLUDED.priority,
	active = EXCLUDED.active,
	last_checked_at = EXCLUDED.last_checked_at,
	last_updated_at = EXCLUDED.last_updated_at,
	last_known_version_marker = EXCLUDED.last_known_version_marker`

const updateActiveSQL = `UPDATE sources SET active = ? WHERE id = ?`

// Repository persists source state across restarts
type Repository struct {
	q store.Querier
}

// NewRepository creates a repository over q
func NewRepository(q store.Querier) *Repository {
	return &Repository{q: q}
}

// Save writes the descriptor's state row
func (r *Repository) Save(ctx context.Context, d *Descriptor) error {
	_, err := r.q.Run(ctx, upsertSourceSQL,
		d.ID, d.Name, string(d.Kind), d.Priority, d.Active,
		d.LastCheckedAt, d.LastUpdatedAt, d.LastKnownVersionMarker,
	)
	if err != nil {
		return fmt.Errorf("failed to save source %s: %w", d.ID, err)
	}
	return nil
}

// SaveActive writes only the active flag so a concurrent Save of the
// update state is never overwritten. A missing row is written in full.
func (r *Repository) SaveActive(ctx context.Context, d *Descriptor) error {
	res, err := r.q.Run(ctx, updateActiveSQL, d.Active, d.ID)
	if err != nil {
		return fmt.Errorf("failed to save active flag of source %s: %w", d.ID, err)
	}
	if res.Changes == 0 {
		return r.Save(ctx, d)
	}
	return nil
}

// Load restores persisted state into the registry and writes a row for
// every configured source. Rows of sources no longer configured are kept
// so their audit history stays resolvable.
func (r *Repository) Load(ctx context.Context, reg *Registry) error {
	var rows []database.Source
	if err := r.q.All(ctx, &rows, "SELECT * FROM sources ORDER BY id"); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	for _, row := range rows {
		err := reg.Restore(row.ID, State{
			LastCheckedAt:          row.LastCheckedAt,
			LastUpdatedAt:          row.LastUpdatedAt,
			LastKnownVersionMarker: row.LastKnownVersionMarker,
		})
		if errors.Is(err, ErrNotFound) {
			slog.Debug("Persisted source is not configured", "source", row.ID)
			continue
		}
		if err != nil {
			return err
		}
	}

	for _, d := range reg.List() {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
