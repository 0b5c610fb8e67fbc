// Package sqlstore persists audit records in a SQL database. The same queries
// run on PostgreSQL (lib/pq or pgx) and SQLite; only placeholders and the
// schema differ per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"calculation/internal/audit"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS request_audit (
	id           BIGSERIAL PRIMARY KEY,
	request_time TIMESTAMPTZ NOT NULL,
	endpoint     VARCHAR(255) NOT NULL,
	incoming     VARCHAR(2048) NOT NULL,
	result       VARCHAR(4096) NOT NULL,
	success      BOOLEAN NOT NULL
)`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS request_audit (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	request_time DATETIME NOT NULL,
	endpoint     TEXT NOT NULL,
	incoming     TEXT NOT NULL,
	result       TEXT NOT NULL,
	success      BOOLEAN NOT NULL
)`

// Store implements audit.Store on database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// New creates a store for a database opened with the given driver name
// ("postgres", "pgx" or "sqlite").
func New(db *sql.DB, driver string) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	switch driver {
	case "postgres", "pgx":
		return &Store{db: db, dialect: dialectPostgres}, nil
	case "sqlite":
		return &Store{db: db, dialect: dialectSQLite}, nil
	default:
		return nil, fmt.Errorf("unsupported audit database driver %q", driver)
	}
}

// Migrate creates the audit table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == dialectSQLite {
		schema = sqliteSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", classify(err))
	}
	return nil
}

// Insert writes one record and returns the database-assigned ID.
func (s *Store) Insert(ctx context.Context, record audit.Record) (int64, error) {
	query := s.rebind(`
		INSERT INTO request_audit (request_time, endpoint, incoming, result, success)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		record.RequestTime.UTC(),
		record.Endpoint,
		record.Incoming,
		record.Result,
		record.Success,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit record: %w", classify(err))
	}
	return id, nil
}

// FindPage returns one page ordered by ascending ID plus the total row count.
func (s *Store) FindPage(ctx context.Context, page, size int) ([]audit.Record, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_audit`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit records: %w", classify(err))
	}
	if size <= 0 || page < 0 || int64(page) >= audit.PageCount(total, size) {
		return []audit.Record{}, total, nil
	}
	offset := int64(page) * int64(size)
	expected := min(int64(size), total-offset)

	query := s.rebind(`
		SELECT id, request_time, endpoint, incoming, result, success
		FROM request_audit
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`)
	rows, err := s.db.QueryContext(ctx, query, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit records: %w", classify(err))
	}
	defer rows.Close()

	records := make([]audit.Record, 0, expected)
	for rows.Next() {
		var (
			rec         audit.Record
			requestTime time.Time
		)
		if err := rows.Scan(&rec.ID, &requestTime, &rec.Endpoint, &rec.Incoming, &rec.Result, &rec.Success); err != nil {
			return nil, 0, fmt.Errorf("scan audit record: %w", err)
		}
		rec.RequestTime = requestTime.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit records: %w", classify(err))
	}
	return records, total, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// classify annotates PostgreSQL server errors with their SQLSTATE so logs
// show which class of failure occurred.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return err
}
