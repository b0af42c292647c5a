// Package runlog keeps a SQLite ledger of ingestion runs.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	collection  TEXT NOT NULL,
	source      TEXT NOT NULL,
	reset       INTEGER NOT NULL DEFAULT 0,
	upserted    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	duplicates  INTEGER NOT NULL DEFAULT 0,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_collection ON runs (collection);
`

// Run is one finished ingestion.
type Run struct {
	ID         int64     `json:"id"`
	Collection string    `json:"collection"`
	Source     string    `json:"source"`
	Reset      bool      `json:"reset"`
	Upserted   int       `json:"upserted"`
	Skipped    int       `json:"skipped"`
	Duplicates int       `json:"duplicates"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

type Ledger struct {
	db *sql.DB
}

// Open creates the ledger file and its parent directory when missing.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a run and returns its id.
func (l *Ledger) Record(ctx context.Context, r Run) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (collection, source, reset, upserted, skipped, duplicates, started_at, finished_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Collection, r.Source, r.Reset, r.Upserted, r.Skipped, r.Duplicates,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano), r.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

// List returns up to limit runs, newest first. limit <= 0 returns all runs.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, collection, source, reset, upserted, skipped, duplicates, started_at, finished_at, error
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Collection, &r.Source, &r.Reset, &r.Upserted, &r.Skipped, &r.Duplicates, &started, &finished, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at of run %d: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at of run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
