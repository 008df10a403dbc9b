// Package db opens the bun database handle backing the store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/lib/pq" // Registers the postgres driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
)

const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
	lockSuffix             = ".lock"
)

// Connection wraps the bun handle and, for SQLite, the writer lock held on
// the database file
type Connection struct {
	DB   *bun.DB
	lock *flock.Flock
}

// Option configures how the connection is opened
type Option func(*openConfig)

type openConfig struct {
	debug    bool
	skipLock bool
}

// WithDebug logs every query through bundebug
func WithDebug(debug bool) Option {
	return func(c *openConfig) {
		c.debug = debug
	}
}

// WithoutLock skips the SQLite writer lock. Read-only commands use it so they
// can run next to a serving process.
func WithoutLock() Option {
	return func(c *openConfig) {
		c.skipLock = true
	}
}

// Open creates a database connection from the provided configuration
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*Connection, error) {
	oc := &openConfig{}
	for _, opt := range opts {
		opt(oc)
	}

	var (
		conn *Connection
		err  error
	)
	switch cfg.GetDriver() {
	case config.DriverSQLite:
		conn, err = openSQLite(ctx, cfg.GetPath(), oc.skipLock)
	case config.DriverPostgres:
		conn, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.GetDriver())
	}
	if err != nil {
		return nil, err
	}

	if oc.debug {
		conn.DB.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return conn, nil
}

func openSQLite(ctx context.Context, path string, skipLock bool) (*Connection, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn := &Connection{}
	if !skipLock {
		lock := flock.New(path + lockSuffix)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire database lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("database %s is in use by another process", path)
		}
		conn.lock = lock
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		conn.unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes every statement, including transactions
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		conn.unlock()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	slog.Info("Database opened", "driver", config.DriverSQLite, "path", path)
	conn.DB = db
	return conn, nil
}

func openPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*Connection, error) {
	dsn, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = defaultMaxOpenConns
	}
	connMaxLifetime := defaultConnMaxLifetime
	if cfg.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
		}
		connMaxLifetime = d
	}
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetConnMaxLifetime(connMaxLifetime)

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection established",
		"driver", config.DriverPostgres, "host", cfg.Host, "database", cfg.Database)

	return &Connection{DB: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (c *Connection) unlock() {
	if c.lock == nil {
		return
	}
	if err := c.lock.Unlock(); err != nil {
		slog.Error("Failed to release database lock", "error", err)
	}
	c.lock = nil
}

// Close closes the database and releases the writer lock
func (c *Connection) Close() error {
	defer c.unlock()
	if c.DB == nil {
		return nil
	}
	slog.Info("Closing database connection")
	return c.DB.Close()
}
