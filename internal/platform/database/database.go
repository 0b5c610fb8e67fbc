// Package database opens the audit database for one of the supported drivers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"calculation/internal/platform/config"
)

// DB is a *sql.DB tagged with the driver it was opened with, so stores can
// pick the right SQL dialect.
type DB struct {
	*sql.DB
	Driver string
}

// Open connects and pings the configured database.
// Returns nil if no DSN is configured.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if cfg.Driver == config.DriverSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent audit workers
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	return &DB{DB: sqlDB, Driver: cfg.Driver}, nil
}

// Health checks if the database connection is healthy.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}
