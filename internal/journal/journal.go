// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a SQLite history of upload and sync runs and the
// per-file outcome of each.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Kind names the command that produced a run.
type Kind string

const (
	KindUpload Kind = "upload"
	KindSync   Kind = "sync"
)

// DefaultLimit is the number of runs listed when no limit is given.
const DefaultLimit = 20

// Run is one recorded command execution.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       Kind      `json:"kind" yaml:"kind"`
	Store      string    `json:"store" yaml:"store"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Total      int       `json:"total" yaml:"total"`
	OK         int       `json:"ok" yaml:"ok"`
	Failed     int       `json:"failed" yaml:"failed"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Pending    int       `json:"pending" yaml:"pending"`
}

// Outcome is the recorded result of one file in a run.
type Outcome struct {
	Path      string `json:"path" yaml:"path"`
	Status    string `json:"status" yaml:"status"`
	RemoteID  string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Journal is the run history database.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path and ensures the schema exists.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			store TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			pending INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_store ON runs(store, started_at)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			remote_id TEXT,
			operation TEXT,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its outcomes in one transaction. An empty run ID
// is assigned a new UUID. It returns the run ID.
func (j *Journal) Record(ctx context.Context, run Run, outcomes []Outcome) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, store, started_at, finished_at, total, ok, failed, skipped, pending)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Store,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Total, run.OK, run.Failed, run.Skipped, run.Pending,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, seq, path, status, remote_id, operation, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, i, o.Path, o.Status, o.RemoteID, o.Operation, o.Error); err != nil {
			return "", fmt.Errorf("inserting outcome for %s: %w", o.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// Runs lists runs newest first. An empty store lists runs for every store.
// A non-positive limit uses DefaultLimit.
func (j *Journal) Runs(ctx context.Context, store string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, store, started_at, finished_at, total, ok, failed, skipped, pending
		 FROM runs
		 WHERE ? = '' OR store = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`, store, store, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                 Run
			kind              string
			started, finished string
		)
		if err := rows.Scan(&r.ID, &kind, &r.Store, &started, &finished,
			&r.Total, &r.OK, &r.Failed, &r.Skipped, &r.Pending); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Kind = Kind(kind)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outcomes returns the outcomes of one run in recorded order.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT path, status, COALESCE(remote_id, ''), COALESCE(operation, ''), COALESCE(error, '')
		 FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	out := []Outcome{}
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Path, &o.Status, &o.RemoteID, &o.Operation, &o.Error); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
