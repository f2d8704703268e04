package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/portalpilot/internal/config"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the journal location inside the cache directory.
func DefaultDBPath() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "history.db"), nil
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		username TEXT NOT NULL,
		engine TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		final_state TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		step TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		at DATETIME NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BeginRun inserts a new run
func (s *Store) BeginRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, url, username, engine, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.URL, r.Username, r.Engine, r.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordStep appends a step outcome to a run. Seq is assigned by the store.
func (s *Store) RecordStep(rec StepRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO steps (run_id, seq, step, outcome, detail, at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM steps WHERE run_id = ?), ?, ?, ?, ?)
	`, rec.RunID, rec.RunID, rec.Step, rec.Outcome, rec.Detail, rec.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}
	return nil
}

// FinishRun records the final state of a run
func (s *Store) FinishRun(id, finalState, errMsg string, at time.Time) error {
	res, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, final_state = ?, error = ? WHERE id = ?
	`, at.UTC(), finalState, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, url, username, engine, started_at, finished_at, final_state, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.URL, &r.Username, &r.Engine, &r.StartedAt, &finished, &r.FinalState, &r.Error); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSteps returns the steps of a run in order
func (s *Store) RunSteps(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(`
		SELECT run_id, seq, step, outcome, detail, at
		FROM steps
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Step, &rec.Outcome, &rec.Detail, &rec.At); err != nil {
			return nil, err
		}
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}
