// Package store implements the relational store contract used by the update
// pipeline on top of bun.
//
// Queries use bun's '?' placeholders so the same statements run unchanged on
// SQLite and PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Result reports the outcome of a write statement
type Result struct {
	// Changes is the number of rows affected by the statement
	Changes int64
}

// Statement is one parameterized statement of a batch
type Statement struct {
	Query string
	Args  []any
}

// Querier runs reads and writes against the store or an open transaction
type Querier interface {
	// Get scans the first row of query into dest. It reports false when the
	// query returned no rows.
	Get(ctx context.Context, dest any, query string, args ...any) (bool, error)

	// All scans every row of query into dest, which must be a pointer to a slice
	All(ctx context.Context, dest any, query string, args ...any) error

	// Run executes a write statement
	Run(ctx context.Context, query string, args ...any) (Result, error)
}

// Store is a Querier that can also group statements into transactions
type Store interface {
	Querier

	// Transaction executes all statements atomically
	Transaction(ctx context.Context, stmts []Statement) error

	// RunInTx runs fn inside a transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error

	// Close releases the underlying database handle
	Close() error
}

type querier struct {
	db bun.IDB
}

// BunStore is the bun-backed Store
type BunStore struct {
	querier
	db *bun.DB
}

// New wraps db as a Store
func New(db *bun.DB) *BunStore {
	return &BunStore{
		querier: querier{db: db},
		db:      db,
	}
}

// DB returns the underlying bun handle
func (s *BunStore) DB() *bun.DB {
	return s.db
}

func (q *querier) Get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := q.db.NewRaw(query, args...).Scan(ctx, dest)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (q *querier) All(ctx context.Context, dest any, query string, args ...any) error {
	err := q.db.NewRaw(query, args...).Scan(ctx, dest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (q *querier) Run(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return Result{Changes: n}, nil
}

// Transaction executes all statements atomically
func (s *BunStore) Transaction(ctx context.Context, stmts []Statement) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt.Query, stmt.Args...); err != nil {
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// RunInTx runs fn inside a transaction
func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &querier{db: tx})
	})
}

// Close releases the underlying database handle
func (s *BunStore) Close() error {
	return s.db.Close()
}
