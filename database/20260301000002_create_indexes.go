package database

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_update_audit_source_status ON update_audit(source_id, status, id)",
			"CREATE INDEX IF NOT EXISTS idx_update_audit_date_bucket ON update_audit(date_bucket)",
			"CREATE INDEX IF NOT EXISTS idx_rankings_league_cup_rank ON rankings(league, cup, rank)",
		}
		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_rankings_league_cup_rank",
			"DROP INDEX IF EXISTS idx_update_audit_date_bucket",
			"DROP INDEX IF EXISTS idx_update_audit_source_status",
		}
		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}
		return nil
	})
}
