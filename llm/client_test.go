package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/queryagent/search"
)

func testPersona() *search.Persona {
	return &search.Persona{
		JobTitles:       []string{"CTO"},
		SeniorityLevels: []string{"executive"},
		Industries:      []string{"fintech"},
	}
}

func newTestClient(t *testing.T, backend Backend) *Client {
	t.Helper()
	c, err := NewClient(ClientOptions{
		Backend:      backend,
		Model:        "test-model",
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBackend(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.Error(t, err)
}

func TestCallRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		if calls.Add(1) < 3 {
			return nil, &openai.APIError{HTTPStatusCode: 503}
		}
		return &Completion{Content: "ok", TotalTokens: 7}, nil
	})

	c := newTestClient(t, backend)
	out, err := c.Call(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 7, c.TokensUsed())
}

func TestCallExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		calls.Add(1)
		return nil, &openai.APIError{HTTPStatusCode: 500, Message: "upstream down"}
	})

	c := newTestClient(t, backend)
	_, err := c.Call(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load())
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, c.LastError(), "upstream down")
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		calls.Add(1)
		return nil, &openai.APIError{HTTPStatusCode: 401}
	})

	c := newTestClient(t, backend)
	_, err := c.Call(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenAccountingAccumulates(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: "x", TotalTokens: 10}, nil
	})

	c := newTestClient(t, backend)
	for range 3 {
		_, err := c.Call(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Equal(t, 30, c.TokensUsed())

	c.Reset()
	assert.Equal(t, 0, c.TokensUsed())
	assert.Empty(t, c.LastError())
}

func TestCancelSettlesInFlightCall(t *testing.T) {
	started := make(chan struct{})
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := newTestClient(t, backend)

	done := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "p")
		done <- err
	}()

	<-started
	c.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("call did not settle after Cancel")
	}
	assert.False(t, c.IsLoading())
}

func TestCallerContextCancellationIsNotAborted(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := newTestClient(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.Call(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrAborted))
}

func TestGenerateQueries(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: "Here you go:\n```json\n[{\"query\": \"q1\", \"reasoning\": \"r1\"}, {\"query\": \"\", \"reasoning\": \"dropped\"}]\n```"}, nil
	})

	c := newTestClient(t, backend)
	queries, err := c.GenerateQueries(context.Background(), testPersona(), "seed", nil, nil)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "q1", queries[0].Query)
}

func TestGenerateQueriesEmptyArrayFails(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: "[]"}, nil
	})

	c := newTestClient(t, backend)
	_, err := c.GenerateQueries(context.Background(), testPersona(), "seed", nil, nil)
	assert.ErrorIs(t, err, ErrNoQueriesGenerated)
}

func TestGenerateQueriesMalformedResponse(t *testing.T) {
	var calls atomic.Int32
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		calls.Add(1)
		return &Completion{Content: "I cannot help with that."}, nil
	})

	c := newTestClient(t, backend)
	_, err := c.GenerateQueries(context.Background(), testPersona(), "seed", nil, nil)

	var merr *MalformedResponseError
	assert.ErrorAs(t, err, &merr)
	// parse failures are not retried
	assert.Equal(t, int32(1), calls.Load())
}

func TestScoreQueryPass1(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: `{"score": 82, "breakdown": {"expectedYield": 33, "personaRelevance": 29, "queryUniqueness": 20}, "reasoning": "solid"}`}, nil
	})

	c := newTestClient(t, backend)
	score, err := c.ScoreQueryPass1(context.Background(), "q", testPersona(), "ctx")
	require.NoError(t, err)
	assert.Equal(t, 82.0, score.Score)
	assert.Equal(t, 33.0, score.Breakdown.ExpectedYield)
}

func TestScoreQueryPass1OutOfBounds(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: `{"score": 140, "breakdown": {"expectedYield": 60, "personaRelevance": 50, "queryUniqueness": 30}, "reasoning": "overshot"}`}, nil
	})

	c := newTestClient(t, backend)
	_, err := c.ScoreQueryPass1(context.Background(), "q", testPersona(), "")

	var merr *MalformedResponseError
	assert.ErrorAs(t, err, &merr)
}

func TestScoreResultsPass2(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: `{"score": 75, "relevantCount": 3, "breakdown": {"resultRelevance": 40, "qualitySignal": 22, "diversity": 13}, "reasoning": "good sample", "topMatches": [1, 3]}`}, nil
	})

	sample := []search.Result{
		{URL: "a", Title: "A"},
		{URL: "b", Title: "B"},
		{URL: "c", Title: "C"},
	}

	c := newTestClient(t, backend)
	score, err := c.ScoreResultsPass2(context.Background(), "q", sample, testPersona())
	require.NoError(t, err)
	assert.Equal(t, 3, score.RelevantCount)
	assert.Equal(t, []int{1, 3}, score.TopMatches)
}

func TestScoreResultsPass2TopMatchOutOfRange(t *testing.T) {
	backend := BackendFunc(func(ctx context.Context, prompt, model string) (*Completion, error) {
		return &Completion{Content: `{"score": 75, "relevantCount": 1, "breakdown": {"resultRelevance": 40, "qualitySignal": 22, "diversity": 13}, "reasoning": "r", "topMatches": [5]}`}, nil
	})

	c := newTestClient(t, backend)
	_, err := c.ScoreResultsPass2(context.Background(), "q", []search.Result{{URL: "a"}}, testPersona())

	var merr *MalformedResponseError
	assert.ErrorAs(t, err, &merr)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"bare array", `[1, 2]`, `[1, 2]`},
		{"code block", "Sure:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"object with array field", `Result: {"a": [1, 2]} trailing`, `{"a": [1, 2]}`},
		{"prose then array", `Here are the items: [{"q": "x"}]`, `[{"q": "x"}]`},
		{"no json", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
