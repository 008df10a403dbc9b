package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/uptrace/bun"
)

func init() {

	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range Models() {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := Models()
		slices.Reverse(models)
		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}
		return nil
	})
}
