// Package sqlite provides a SQLite-backed SessionStore, suitable for
// single-node deployments that need sessions to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prospectly/queryagent/store"
)

// SessionStore implements store.SessionStore on SQLite.
type SessionStore struct {
	db *sql.DB
}

// Options configures the SQLite connection.
type Options struct {
	Path string // database file path, ":memory:" for in-memory
}

// NewSessionStore opens the database and creates the schema if needed.
func NewSessionStore(opts Options) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &SessionStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			round INTEGER NOT NULL,
			state TEXT,
			metadata TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS session_rounds (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			data TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_session_rounds_session
			ON session_rounds(session_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save creates or replaces a session record.
func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	stateJSON, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, round, state, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			round = excluded.round,
			state = excluded.state,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, session.ID, session.Status, session.Round, string(stateJSON), string(metadataJSON), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a session by id.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, round, state, metadata, created_at, updated_at
		FROM sessions WHERE id = ?
	`, sessionID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return session, nil
}

// List returns all stored sessions.
func (s *SessionStore) List(ctx context.Context) ([]*store.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, round, state, metadata, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its round history.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_rounds WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete rounds: %w", err)
	}
	return nil
}

// AppendRound appends one round record to the session's history.
func (s *SessionStore) AppendRound(ctx context.Context, sessionID string, round any) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_rounds (session_id, data) VALUES (?, ?)
	`, sessionID, string(data))
	if err != nil {
		return fmt.Errorf("failed to append round: %w", err)
	}
	return nil
}

// Rounds returns the session's round history in append order.
func (s *SessionStore) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM session_rounds WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rounds: %w", err)
	}
	defer rows.Close()

	var rounds []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rounds = append(rounds, json.RawMessage(data))
	}
	return rounds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*store.Session, error) {
	var session store.Session
	var stateJSON, metadataJSON string

	err := row.Scan(&session.ID, &session.Status, &session.Round, &stateJSON, &metadataJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if stateJSON != "" {
		if err := json.Unmarshal([]byte(stateJSON), &session.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &session, nil
}

var _ store.SessionStore = (*SessionStore)(nil)
