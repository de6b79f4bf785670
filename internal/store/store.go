// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists acquisition history in SQLite: every provider
// attempt and every terminal outcome, keyed by DOI.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hoanganhduc/getscipapers-sub000/pkg/types"
)

const dbFile = "acquisitions.db"

// Attempt is one recorded provider attempt.
type Attempt struct {
	ID        int64
	DOI       string
	Provider  string
	Kind      types.OutcomeKind
	FilePath  string
	SizeBytes int64
	Reason    string
	At        time.Time
}

// Store manages the acquisition history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at
// historyDir/acquisitions.db, creating the schema if needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.HistoryDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doi TEXT NOT NULL,
			provider TEXT,
			kind TEXT NOT NULL,
			file_path TEXT,
			size_bytes INTEGER,
			reason TEXT,
			at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_doi ON attempts(doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordAttempt appends one provider attempt to the history.
func (s *Store) RecordAttempt(doi string, out types.DownloadOutcome) error {
	_, err := s.db.Exec(
		`INSERT INTO attempts (doi, provider, kind, file_path, size_bytes, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doi, out.Provider, string(out.Kind), out.FilePath, out.SizeBytes, out.Reason,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// History returns all attempts for a DOI, oldest first.
func (s *Store) History(doi string) ([]Attempt, error) {
	rows, err := s.db.Query(
		`SELECT id, doi, provider, kind, file_path, size_bytes, reason, at
		 FROM attempts WHERE doi = ? ORDER BY id`, doi)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Recent returns the most recent attempts across all DOIs, newest
// first, capped at limit.
func (s *Store) Recent(limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, doi, provider, kind, file_path, size_bytes, reason, at
		 FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Status reports the latest attempt kind per DOI for the given DOIs; a
// DOI with no history is absent from the map.
func (s *Store) Status(dois []string) (map[string]types.OutcomeKind, error) {
	out := make(map[string]types.OutcomeKind, len(dois))
	for _, d := range dois {
		var kind string
		err := s.db.QueryRow(
			`SELECT kind FROM attempts WHERE doi = ? ORDER BY id DESC LIMIT 1`, d).Scan(&kind)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying status for %s: %w", d, err)
		}
		out[d] = types.OutcomeKind(kind)
	}
	return out, nil
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var kind, at string
		if err := rows.Scan(&a.ID, &a.DOI, &a.Provider, &kind, &a.FilePath, &a.SizeBytes, &a.Reason, &at); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.Kind = types.OutcomeKind(kind)
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			a.At = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
