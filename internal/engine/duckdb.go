// Package engine executes compiled SQL against the DuckDB warehouse and
// returns fully materialized result sets.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"cpg-insights/internal/domain"
)

// DuckDB executes queries against a DuckDB database through database/sql.
// Safe for concurrent use; the underlying pool handles connection reuse.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) a DuckDB database at path. An empty path opens an
// in-memory database.
func Open(path string, logger *slog.Logger) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDB{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection pool (used by tests and seeding).
func NewWithDB(db *sql.DB, logger *slog.Logger) *DuckDB {
	return &DuckDB{db: db, logger: logger}
}

// DB exposes the underlying pool for schema setup and seeding.
func (e *DuckDB) DB() *sql.DB { return e.db }

// Close releases the connection pool.
func (e *DuckDB) Close() error { return e.db.Close() }

// Execute runs a SELECT and materializes every row. Result sets here are
// aggregates bounded by LIMIT, so buffering is fine.
func (e *DuckDB) Execute(ctx context.Context, query string) (*domain.QueryResult, error) {
	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.ErrExecution(err, "query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, domain.ErrExecution(err, "read result columns")
	}

	result := &domain.QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, domain.ErrExecution(err, "scan row")
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrExecution(err, "iterate rows")
	}
	result.RowCount = len(result.Rows)

	if e.logger != nil {
		e.logger.Debug("query executed",
			"rows", result.RowCount,
			"duration", time.Since(start))
	}
	return result, nil
}
