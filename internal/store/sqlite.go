package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/echomentor/backend/internal/model/session"
)

// SQLiteStore implements SessionStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and initializes
// the schema.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode allows readers to proceed while the single writer commits.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite does not support multiple concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		timestamp  INTEGER NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		profile    TEXT NOT NULL DEFAULT '',
		duration   INTEGER NOT NULL DEFAULT 0,
		status     TEXT NOT NULL DEFAULT 'created',
		tags       TEXT NOT NULL DEFAULT '[]',
		title      TEXT NOT NULL DEFAULT 'Untitled Session'
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// Create inserts a new session record, applying the same defaults the
// original persistence API applied (empty transcript, zero duration,
// created status, untitled).
func (s *SQLiteStore) Create(ctx context.Context, rec session.Session) (session.Session, error) {
	if rec.ID == "" {
		return session.Session{}, fmt.Errorf("%w: id is required", ErrInvalidSession)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = session.StatusCreated
	}
	if !rec.Status.Valid() {
		return session.Session{}, fmt.Errorf("%w: unknown status %q", ErrInvalidSession, rec.Status)
	}
	if rec.Title == "" {
		rec.Title = "Untitled Session"
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, timestamp, transcript, profile, duration, status, tags, title)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Unix(), rec.Transcript, rec.Profile, rec.Duration, string(rec.Status), string(tags), rec.Title,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return session.Session{}, ErrAlreadyExists
		}
		return session.Session{}, fmt.Errorf("failed to insert session: %w", err)
	}

	return rec, nil
}

// Get fetches one session by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (session.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, transcript, profile, duration, status, tags, title
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// List returns all sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, transcript, profile, duration, status, tags, title
		 FROM sessions ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListCompletedSince returns completed sessions from cutoff (unix seconds)
// onward, newest first.
func (s *SQLiteStore) ListCompletedSince(ctx context.Context, cutoff int64) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, transcript, profile, duration, status, tags, title
		 FROM sessions WHERE status = ? AND timestamp >= ? ORDER BY timestamp DESC`,
		string(session.StatusComplete), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Update applies a partial update. Status may only move forward; any status
// change on a completed session other than staying complete is rejected.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch session.Patch) (session.Session, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return session.Session{}, fmt.Errorf("%w: unknown status %q", ErrInvalidSession, *patch.Status)
		}
		if !current.Status.CanTransitionTo(*patch.Status) {
			return session.Session{}, ErrStatusRegression
		}
	} else if current.Status == session.StatusComplete && !patch.Empty() {
		// A completed session is immutable.
		return session.Session{}, ErrStatusRegression
	}

	if patch.Transcript != nil {
		current.Transcript = *patch.Transcript
	}
	if patch.Duration != nil {
		current.Duration = *patch.Duration
	}
	if patch.Profile != nil {
		current.Profile = *patch.Profile
	}
	if patch.Timestamp != nil {
		current.Timestamp = *patch.Timestamp
	}
	if patch.Status != nil {
		current.Status = *patch.Status
	}
	if patch.Tags != nil {
		current.Tags = patch.Tags
	}
	if patch.Title != nil {
		current.Title = *patch.Title
	}

	tags, err := json.Marshal(current.Tags)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET timestamp = ?, transcript = ?, profile = ?, duration = ?, status = ?, tags = ?, title = ?
		 WHERE id = ?`,
		current.Timestamp.Unix(), current.Transcript, current.Profile, current.Duration,
		string(current.Status), string(tags), current.Title, id,
	)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to update session: %w", err)
	}

	return current, nil
}

// Delete removes a session record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.Session, error) {
	var (
		rec    session.Session
		ts     int64
		status string
		tags   string
	)

	err := row.Scan(&rec.ID, &ts, &rec.Transcript, &rec.Profile, &rec.Duration, &status, &tags, &rec.Title)
	if err == sql.ErrNoRows {
		return session.Session{}, ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.Timestamp = time.Unix(ts, 0).UTC()
	rec.Status = session.Status(status)
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return session.Session{}, fmt.Errorf("failed to decode tags: %w", err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	return rec, nil
}

func collectSessions(rows *sql.Rows) ([]session.Session, error) {
	var out []session.Session
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, nil
}
