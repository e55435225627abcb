package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/queryagent/store"
)

func TestSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	now := time.Now()
	session := &store.Session{
		ID:        "sess-1",
		Status:    "generating",
		Round:     1,
		State:     map[string]any{"stage": "generating"},
		Metadata:  map[string]any{"seed": "q"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	stateJSON, _ := json.Marshal(session.State)
	metadataJSON, _ := json.Marshal(session.Metadata)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(session.ID, session.Status, session.Round, stateJSON, metadataJSON, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	now := time.Now()
	stateJSON := []byte(`{"stage": "pass2"}`)
	metadataJSON := []byte(`{"seed": "q"}`)

	rows := pgxmock.NewRows([]string{"id", "status", "round", "state", "metadata", "created_at", "updated_at"}).
		AddRow("sess-1", "pass2_validating", 0, stateJSON, metadataJSON, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, round, state, metadata, created_at, updated_at")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	session, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "pass2_validating", session.Status)

	state, ok := session.State.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pass2", state["stage"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, round, state, metadata, created_at, updated_at")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestAppendRound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	round := map[string]int{"round": 0, "generated": 10}
	data, _ := json.Marshal(round)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_rounds")).
		WithArgs("sess-1", data).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendRound(context.Background(), "sess-1", round))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRounds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	rows := pgxmock.NewRows([]string{"data"}).
		AddRow([]byte(`{"round": 0}`)).
		AddRow([]byte(`{"round": 1}`))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM session_rounds")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	rounds, err := s.Rounds(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, rounds, 2)

	var rec map[string]int
	require.NoError(t, json.Unmarshal(rounds[1], &rec))
	assert.Equal(t, 1, rec["round"])
}

func TestDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewSessionStoreWithPool(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_rounds")).
		WithArgs("sess-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
