// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     history
// Description: SQLite session history store
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Session records one completed dictation: what the recognizer produced,
// what correction (if any) replaced it, and where it was typed.
type Session struct {
	ID          string    `json:"id"`
	TraceID     string    `json:"trace_id"`
	StartedAt   time.Time `json:"started_at"`
	Transcript  string    `json:"transcript"`
	Corrected   string    `json:"corrected,omitempty"`
	AppName     string    `json:"app_name,omitempty"`
	WindowTitle string    `json:"window_title,omitempty"`
	ASRMs       int64     `json:"asr_ms"`
	LLMMs       int64     `json:"llm_ms,omitempty"`
}

// Filter selects sessions for Query
type Filter struct {
	AppName   string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Config holds the history section of the client configuration
type Config struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// DefaultConfig keeps history off; dictated text is sensitive and opt-in
// persistence is the safer default.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Path:    "./data/history.db",
	}
}

// Store persists dictation sessions
type Store interface {
	Record(ctx context.Context, session *Session) error
	SetCorrection(ctx context.Context, traceID, corrected string, llmMs int64) error
	Query(ctx context.Context, filter Filter) ([]*Session, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteStore implements Store using SQLite in WAL mode
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the history database
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		trace_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		transcript TEXT NOT NULL,
		corrected TEXT,
		app_name TEXT,
		window_title TEXT,
		asr_ms INTEGER NOT NULL DEFAULT 0,
		llm_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_trace_id ON sessions(trace_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_app_name ON sessions(app_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one session
func (s *SQLiteStore) Record(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, trace_id, started_at, transcript, corrected, app_name, window_title, asr_ms, llm_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.TraceID, session.StartedAt, session.Transcript, session.Corrected,
		session.AppName, session.WindowTitle, session.ASRMs, session.LLMMs)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SetCorrection attaches the replacement text to an already recorded
// session. A correction cancelled by a new session simply never calls this.
func (s *SQLiteStore) SetCorrection(ctx context.Context, traceID, corrected string, llmMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET corrected = ?, llm_ms = ? WHERE trace_id = ?
	`, corrected, llmMs, traceID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no session with trace id %q", traceID)
	}
	return nil
}

// Query returns sessions matching the filter, newest first
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, trace_id, started_at, transcript, corrected, app_name, window_title, asr_ms, llm_ms FROM sessions WHERE 1=1"
	var args []interface{}

	if filter.AppName != "" {
		query += " AND app_name = ?"
		args = append(args, filter.AppName)
	}
	if !filter.StartTime.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		query += " AND started_at <= ?"
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY started_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var corrected, appName, windowTitle sql.NullString
		if err := rows.Scan(&sess.ID, &sess.TraceID, &sess.StartedAt, &sess.Transcript,
			&corrected, &appName, &windowTitle, &sess.ASRMs, &sess.LLMMs); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.Corrected = corrected.String
		sess.AppName = appName.String
		sess.WindowTitle = windowTitle.String
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Prune deletes sessions older than the given age and returns the count
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NopStore discards everything; used when history is disabled
type NopStore struct{}

func (NopStore) Record(context.Context, *Session) error                     { return nil }
func (NopStore) SetCorrection(context.Context, string, string, int64) error { return nil }
func (NopStore) Query(context.Context, Filter) ([]*Session, error)          { return nil, nil }
func (NopStore) Prune(context.Context, time.Duration) (int64, error)        { return 0, nil }
func (NopStore) Close() error                                               { return nil }

// Open returns the configured store, a NopStore when history is disabled
func Open(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return NopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}
