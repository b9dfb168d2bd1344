// Package sidecarstate persists the TEI sidecar driver's last-known
// health across process restarts, so an operator can inspect sidecar
// history after a crash without re-deriving it from logs.
package sidecarstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database recording sidecar health transitions.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, running migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating sidecar state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sidecar state db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sidecar state db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running sidecar state migrations: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory database, useful for testing.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory sidecar state db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running sidecar state migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS sidecar_health (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    state TEXT NOT NULL,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    detail TEXT NOT NULL DEFAULT '',
    recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sidecar_health_recorded ON sidecar_health(recorded_at);
`

// Record appends one health observation.
func (s *Store) Record(state string, consecutiveFailures int, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO sidecar_health (state, consecutive_failures, detail) VALUES (?, ?, ?)`,
		state, consecutiveFailures, detail,
	)
	if err != nil {
		return fmt.Errorf("record sidecar health: %w", err)
	}
	return nil
}

// Health is one recorded sidecar health observation.
type Health struct {
	State               string
	ConsecutiveFailures int
	Detail              string
}

// Last returns the most recently recorded health observation, or
// ok=false if none has been recorded yet.
func (s *Store) Last() (Health, bool, error) {
	var h Health
	row := s.db.QueryRow(
		`SELECT state, consecutive_failures, detail FROM sidecar_health ORDER BY id DESC LIMIT 1`,
	)
	err := row.Scan(&h.State, &h.ConsecutiveFailures, &h.Detail)
	if err == sql.ErrNoRows {
		return Health{}, false, nil
	}
	if err != nil {
		return Health{}, false, fmt.Errorf("query last sidecar health: %w", err)
	}
	return h, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
