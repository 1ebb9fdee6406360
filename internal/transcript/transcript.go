// Package transcript records the queries a host ran and what came back, in
// a SQLite database.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"termbridge/internal/logging"
)

// Entry is one recorded query.
type Entry struct {
	ID        int64
	SessionID string
	Query     string
	// Answers holds each solution rendered as text, in engine order.
	Answers  []string
	Err      string
	Duration time.Duration
	At       time.Time
}

// Store is a transcript database.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS transcript (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	query TEXT NOT NULL,
	answers_json TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id);
CREATE INDEX IF NOT EXISTS idx_transcript_created ON transcript(created_at);
`

// Open opens or creates the transcript at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	s := &Store{db: db, path: path, log: logging.Get(logging.CategoryTranscript)}
	s.log.Debug("transcript opened", zap.String("path", path))
	return s, nil
}

// Record appends e. A zero At is set to now. The new row id is returned.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	answers := e.Answers
	if answers == nil {
		answers = []string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return 0, fmt.Errorf("failed to encode answers: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript (session_id, query, answers_json, error, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Query, string(data), e.Err, int64(e.Duration), e.At.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to record query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read row id: %w", err)
	}
	s.log.Debug("query recorded", zap.Int64("id", id), zap.String("session", e.SessionID))
	return id, nil
}

// Recent returns up to limit entries, newest first. A limit below one
// returns nothing.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, answers_json, error, duration_ns, created_at
		 FROM transcript ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Session returns every entry recorded for sessionID, oldest first.
func (s *Store) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, answers_json, error, duration_ns, created_at
		 FROM transcript WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			answers  string
			duration int64
			at       int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &answers, &e.Err, &duration, &at); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &e.Answers); err != nil {
			return nil, fmt.Errorf("entry %d: bad answers: %w", e.ID, err)
		}
		e.Duration = time.Duration(duration)
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
