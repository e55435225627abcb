// Package store defines session persistence for the query pipeline. A
// session record carries opaque pipeline state plus an append-only round
// history, so a UI can resume a run across page reloads or process
// restarts. Backends live in the subpackages: memory, redis, sqlite,
// postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by Load when no record exists for the id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one persisted pipeline session. State is opaque to the store;
// the pipeline layer decides its shape.
type Session struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Round     int            `json:"round"`
	State     any            `json:"state"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SessionStore is the persistence contract: document get/set keyed by
// session id, with list-append semantics for round history.
type SessionStore interface {
	// Save creates or replaces a session record.
	Save(ctx context.Context, session *Session) error

	// Load retrieves a session by id.
	Load(ctx context.Context, sessionID string) (*Session, error)

	// List returns all stored sessions.
	List(ctx context.Context) ([]*Session, error)

	// Delete removes a session and its round history.
	Delete(ctx context.Context, sessionID string) error

	// AppendRound appends one round record to the session's history.
	AppendRound(ctx context.Context, sessionID string, round any) error

	// Rounds returns the session's round history in append order.
	Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error)
}
