// Package store implements the relational persistence layer (§6): agents,
// positions, watchlists, trades, regimes, recommendations, activities,
// agent run summaries, and the metrics rollup tables, over
// database/sql + modernc.org/sqlite. Grounded on store/strategy.go's
// *sql.DB-wrapping-struct-per-table style (CREATE TABLE IF NOT EXISTS in an
// initTables step, plain `?`-placeholder SQL, JSON-encoded nested fields).
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) the sqlite database at path and applies
// pragmas suited to a single-process writer with many concurrent readers
// (the scheduler's cycles vs the HTTP API, per §5's two-pool note).
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}
