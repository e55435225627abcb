// Package memory provides an in-memory SessionStore, the default for tests
// and single-process runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/prospectly/queryagent/store"
)

// SessionStore keeps sessions in process memory. Safe for concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
	rounds   map[string][]json.RawMessage
}

// NewSessionStore creates an empty in-memory store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*store.Session),
		rounds:   make(map[string][]json.RawMessage),
	}
}

// Save creates or replaces a session record.
func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	// round-trip through JSON so the stored state is detached from the
	// caller's mutable pipeline objects, same as a real backend
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var detached store.Session
	if err := json.Unmarshal(data, &detached); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &detached
	return nil
}

// Load retrieves a session by id.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}

	copied := *session
	return &copied, nil
}

// List returns all stored sessions.
func (s *SessionStore) List(ctx context.Context) ([]*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*store.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

// Delete removes a session and its round history.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.rounds, sessionID)
	return nil
}

// AppendRound appends one round record to the session's history.
func (s *SessionStore) AppendRound(ctx context.Context, sessionID string, round any) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[sessionID] = append(s.rounds[sessionID], data)
	return nil
}

// Rounds returns the session's round history in append order.
func (s *SessionStore) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rounds[sessionID]), nil
}

var _ store.SessionStore = (*SessionStore)(nil)
