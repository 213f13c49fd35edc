package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver, registered as "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/tourexplorer/booking-engine/internal/config"
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	connectionURL := cfg.URL
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	// pgx defaults to the extended protocol, which breaks behind transaction poolers
	if driver == "pgx" && !strings.Contains(connectionURL, "default_query_exec_mode") {
		separator := "?"
		if strings.Contains(connectionURL, "?") {
			separator = "&"
		}
		connectionURL = connectionURL + separator + "default_query_exec_mode=simple_protocol"
	}

	db, err := sqlx.Connect(driver, connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

const createLocalCacheTable = `CREATE TABLE IF NOT EXISTS local_cache (cache_key TEXT PRIMARY KEY, payload JSONB NOT NULL DEFAULT '[]'::jsonb, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`

// EnsureSchema creates the local cache table if it does not exist
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, createLocalCacheTable); err != nil {
		return fmt.Errorf("failed to create local_cache table: %w", err)
	}
	return nil
}

// OpenCacheStore opens the local cache. Without a database URL the cache
// lives in memory and the returned connection is nil.
func OpenCacheStore(ctx context.Context, cfg config.DatabaseConfig) (CacheStore, *PostgresDB, error) {
	if cfg.URL == "" {
		return NewMemoryCacheStore(), nil, nil
	}

	db, err := NewConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return NewPostgresCacheStore(db), db, nil
}
