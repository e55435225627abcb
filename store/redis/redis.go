// Package redis provides a Redis-backed SessionStore. Sessions are stored
// as JSON strings, round history as a Redis list, and an index set tracks
// the known session ids.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prospectly/queryagent/store"
)

// SessionStore implements store.SessionStore on Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "queryagent:"
	TTL      time.Duration // expiration for sessions, default 0 (none)
}

// NewSessionStore creates a Redis session store.
func NewSessionStore(opts Options) *SessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "queryagent:"
	}

	return &SessionStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *SessionStore) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s", s.prefix, id)
}

func (s *SessionStore) roundsKey(id string) string {
	return fmt.Sprintf("%ssession:%s:rounds", s.prefix, id)
}

func (s *SessionStore) indexKey() string {
	return s.prefix + "sessions"
}

// Save creates or replaces a session record.
func (s *SessionStore) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), session.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves a session by id.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*store.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// List returns all stored sessions. Sessions whose keys have expired are
// skipped.
func (s *SessionStore) List(ctx context.Context) ([]*store.Session, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []*store.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	var sessions []*store.Session
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var session store.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

// Delete removes a session and its round history.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.Del(ctx, s.roundsKey(sessionID))
	pipe.SRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AppendRound pushes one round record onto the session's history list.
func (s *SessionStore) AppendRound(ctx context.Context, sessionID string, round any) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.roundsKey(sessionID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.roundsKey(sessionID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append round: %w", err)
	}
	return nil
}

// Rounds returns the session's round history in append order.
func (s *SessionStore) Rounds(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	values, err := s.client.LRange(ctx, s.roundsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read rounds: %w", err)
	}

	rounds := make([]json.RawMessage, len(values))
	for i, v := range values {
		rounds[i] = json.RawMessage(v)
	}
	return rounds, nil
}

var _ store.SessionStore = (*SessionStore)(nil)
