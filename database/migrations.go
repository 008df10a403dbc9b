// Package database provides the table models and schema migrations of the
// metadata store.
package database

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema migration. Each migration registers itself
// from a file named <timestamp>_<comment>.go so bun can derive its name.
var Migrations = migrate.NewMigrations()
