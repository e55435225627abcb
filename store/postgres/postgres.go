// Package postgres provides a PostgreSQL-backed SessionStore on pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prospectly/queryagent/store"
)

// DBPool is the subset of pgxpool.Pool the store needs. Declared as an
// interface so tests can substitute pgxmock.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SessionStore implements store.SessionStore on PostgreSQL.
type SessionStore struct {
	pool DBPool
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
}

// NewSessionStore creates a Postgres session store with its own pool.
func NewSessionStore(ctx context.Context, opts Options) (*SessionStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &SessionStore{pool: pool}, nil
}

// NewSessionStoreWithPool wraps an existing pool. Useful for tests.
func NewSessionStoreWithPool(pool DBPool) *SessionStore {
	return &SessionStore{pool: pool}
}

// InitSchema creates the tables if they don't exist.
func (s *SessionStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			round INTEGER NOT NULL,
			state JSONB,
			metadata JSONB,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_rounds (
			seq BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			data JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_rounds table: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *SessionStore) Close() {
	s.pool.Close()
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, status, round, state, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			round = EXCLUDED.round,
			state = EXCLUDED.state,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`, session.ID, session.Status, session.Round, stateJSON, metadataJSON, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load retrieves a session by id.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*store.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, status, round, state, metadata, created_at, updated_at
		FROM sessions WHERE id = $1
	`, sessionID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
		}
		return nil, err
	}
	return session, nil
}

// List returns all stored sessions.
func (s *SessionStore) List(ctx context.Context) ([]*store.Session, error) {
	rows, err := s.pool.Query(ctx, `
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
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_rounds WHERE session_id = $1`, sessionID); err != nil {
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_rounds (session_id, data) VALUES ($1, $2)
	`, sessionID, data)
	if err != nil {
		return fmt.Errorf("failed to append round: %w", err)
	}
	return nil
}

// Rounds returns the session's round history in append order.
func (s *SessionStore) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM session_rounds WHERE session_id = $1 ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rounds: %w", err)
	}
	defer rows.Close()

	var rounds []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rounds = append(rounds, json.RawMessage(data))
	}
	return rounds, rows.Err()
}

func scanSession(row pgx.Row) (*store.Session, error) {
	var session store.Session
	var stateJSON, metadataJSON []byte

	err := row.Scan(&session.ID, &session.Status, &session.Round, &stateJSON, &metadataJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &session.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &session, nil
}

var _ store.SessionStore = (*SessionStore)(nil)
