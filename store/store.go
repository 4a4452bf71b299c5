// Package store provides the SQLite journal of sorting runs and their verdicts.
package store

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// Journal is a SQLite database recording every run and every image verdict.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal at dbPath and runs migrations.
//
// Arguments:
//   - dbPath: The database file. ":memory:" keeps the journal in memory.
//
// Returns:
//   - *Journal: The journal.
//   - error: An error if the database cannot be opened or migrated.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Workers record concurrently; one connection keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	j := &Journal{db: db, path: dbPath}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// runMigrations executes all database migrations.
func (j *Journal) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_dir TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			human INTEGER NOT NULL DEFAULT 0,
			non_human INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS verdicts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			destination TEXT NOT NULL DEFAULT '',
			is_human INTEGER NOT NULL,
			reasons TEXT NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_verdicts_run_id ON verdicts(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := j.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
