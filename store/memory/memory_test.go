package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/queryagent/store"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	session := &store.Session{
		ID:     "sess-1",
		Status: "generating",
		Round:  2,
		State:  map[string]any{"stage": "generating"},
	}

	require.NoError(t, s.Save(ctx, session))

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", loaded.ID)
	assert.Equal(t, "generating", loaded.Status)
	assert.Equal(t, 2, loaded.Round)

	state, ok := loaded.State.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "generating", state["stage"])
}

func TestLoadMissing(t *testing.T) {
	s := NewSessionStore()
	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Session{ID: "a"}))
	require.NoError(t, s.Save(ctx, &store.Session{ID: "b"}))

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, s.Delete(ctx, "a"))
	sessions, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, "b", sessions[0].ID)
}

func TestAppendRoundOrder(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Session{ID: "sess-1"}))
	require.NoError(t, s.AppendRound(ctx, "sess-1", map[string]int{"round": 0, "generated": 10}))
	require.NoError(t, s.AppendRound(ctx, "sess-1", map[string]int{"round": 1, "generated": 8}))

	rounds, err := s.Rounds(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	var first map[string]int
	require.NoError(t, json.Unmarshal(rounds[0], &first))
	assert.Equal(t, 0, first["round"])

	var second map[string]int
	require.NoError(t, json.Unmarshal(rounds[1], &second))
	assert.Equal(t, 1, second["round"])
}

func TestSaveDetachesState(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	state := map[string]any{"stage": "pass1"}
	require.NoError(t, s.Save(ctx, &store.Session{ID: "sess-1", State: state}))

	// mutating the caller's state after Save must not affect the store
	state["stage"] = "mutated"

	loaded, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "pass1", loaded.State.(map[string]any)["stage"])
}
