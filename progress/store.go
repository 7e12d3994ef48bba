// Package progress persists per-run progress notes so a run's trail
// survives the process. The engine records one note per step through its
// tracker hook; operators inspect them after the fact. Conversation turns
// do not belong here: the buffer owns those and they die with the run.
package progress

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded progress note.
type Entry struct {
	RunID     string
	Step      int
	Note      string
	CreatedAt time.Time
}

// Store persists progress notes in SQLite. All public methods are safe for
// concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore opens or creates a progress store at the given database path.
// The schema is created automatically on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_progress (
		run_id     TEXT NOT NULL,
		step       INTEGER NOT NULL,
		note       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, step)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record upserts the note for one step of a run. Recording the same step
// twice keeps the newer note.
func (s *Store) Record(runID string, step int, note string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_progress (run_id, step, note, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, step) DO UPDATE
		 SET note = excluded.note, created_at = excluded.created_at`,
		runID, step, note, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record %s step %d: %w", runID, step, err)
	}
	return nil
}

// Notes returns all notes for a run in step order. Returns an empty
// (non-nil) slice when the run has none.
func (s *Store) Notes(runID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT run_id, step, note, created_at FROM run_progress
		 WHERE run_id = ? ORDER BY step`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("notes %s: %w", runID, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.RunID, &e.Step, &e.Note, &created); err != nil {
			return nil, fmt.Errorf("scan %s: %w", runID, err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s step %d: %w", runID, e.Step, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent note for a run, or nil when the run has
// none.
func (s *Store) Latest(runID string) (*Entry, error) {
	var e Entry
	var created string
	err := s.db.QueryRow(
		`SELECT run_id, step, note, created_at FROM run_progress
		 WHERE run_id = ? ORDER BY step DESC LIMIT 1`,
		runID,
	).Scan(&e.RunID, &e.Step, &e.Note, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", runID, err)
	}
	e.CreatedAt, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s step %d: %w", runID, e.Step, err)
	}
	return &e, nil
}

// Runs returns the distinct run ids with recorded notes, most recently
// active first.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT run_id, MAX(created_at) AS last FROM run_progress
		 GROUP BY run_id ORDER BY last DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id, last string
		if err := rows.Scan(&id, &last); err != nil {
			return nil, fmt.Errorf("scan runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Purge removes all notes for a run. No error is returned if the run has
// none.
func (s *Store) Purge(runID string) error {
	_, err := s.db.Exec(`DELETE FROM run_progress WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("purge %s: %w", runID, err)
	}
	return nil
}
