package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prospectly/queryagent/log"
	"github.com/prospectly/queryagent/prompt"
	"github.com/prospectly/queryagent/search"
)

// ErrAborted marks a call that was cut short by Cancel. Cancellation is not
// a failure; callers distinguish it with errors.Is.
var ErrAborted = errors.New("llm request aborted")

// Defaults for the retry and batch behavior.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 8 * time.Second
	DefaultConcurrency  = 3
)

// Client wraps a Backend with retry/backoff, token accounting, response
// parsing, and cancellation. Safe for concurrent use.
type Client struct {
	backend      Backend
	model        string
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       log.Logger

	mu          sync.Mutex
	abortCtx    context.Context
	abortCancel context.CancelFunc
	lastErr     string

	tokensUsed atomic.Int64
	inflight   atomic.Int64
	loading    atomic.Bool
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Backend      Backend
	Model        string // default model identifier passed to the backend
	MaxAttempts  int    // default 3
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Logger       log.Logger
}

// NewClient creates a Client around the given backend.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("llm backend is required")
	}

	c := &Client{
		backend:      opts.Backend,
		model:        opts.Model,
		maxAttempts:  opts.MaxAttempts,
		initialDelay: opts.InitialDelay,
		maxDelay:     opts.MaxDelay,
		logger:       opts.Logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.initialDelay <= 0 {
		c.initialDelay = DefaultInitialDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = DefaultMaxDelay
	}
	if c.logger == nil {
		c.logger = log.Default()
	}

	c.abortCtx, c.abortCancel = context.WithCancel(context.Background())
	return c, nil
}

// Call sends a prompt using the client's default model.
func (c *Client) Call(ctx context.Context, p string) (string, error) {
	return c.CallModel(ctx, p, c.model)
}

// CallModel sends a prompt to a specific model, retrying transient failures
// with exponential backoff and jitter. Malformed responses and configuration
// errors are not retried. Token usage accumulates across calls until Reset.
func (c *Client) CallModel(ctx context.Context, p, model string) (string, error) {
	c.inflight.Add(1)
	c.loading.Store(true)
	defer func() {
		if c.inflight.Add(-1) == 0 {
			c.loading.Store(false)
		}
	}()

	c.mu.Lock()
	abort := c.abortCtx
	c.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(abort, cancel)
	defer stop()

	var lastErr error
	delay := c.initialDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if callCtx.Err() != nil {
			return "", c.settleCancellation(ctx, abort)
		}

		completion, err := c.backend.Complete(callCtx, p, model)
		if err == nil {
			c.tokensUsed.Add(int64(completion.TotalTokens))
			return completion.Content, nil
		}

		if callCtx.Err() != nil {
			return "", c.settleCancellation(ctx, abort)
		}

		lastErr = err
		if !isTransient(err) {
			c.setLastError(err)
			return "", err
		}

		if attempt < c.maxAttempts {
			c.logger.Warn("llm call failed (attempt %d/%d), retrying in %v: %v", attempt, c.maxAttempts, delay, err)

			select {
			case <-time.After(withJitter(delay)):
				delay = min(delay*2, c.maxDelay)
			case <-callCtx.Done():
				return "", c.settleCancellation(ctx, abort)
			}
		}
	}

	err := fmt.Errorf("llm call failed after %d attempts: %w", c.maxAttempts, lastErr)
	c.setLastError(err)
	return "", err
}

// settleCancellation maps a dead call context back to its cause: the client
// abort controller or the caller's own context.
func (c *Client) settleCancellation(ctx context.Context, abort context.Context) error {
	if abort.Err() != nil && ctx.Err() == nil {
		return ErrAborted
	}
	return ctx.Err()
}

// Cancel aborts all in-flight requests and resets the loading flag
// immediately, even though network teardown may still be in progress.
// Pending calls settle with ErrAborted.
func (c *Client) Cancel() {
	c.mu.Lock()
	c.abortCancel()
	c.abortCtx, c.abortCancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.loading.Store(false)
}

// IsLoading reports whether any request is currently in flight.
func (c *Client) IsLoading() bool {
	return c.loading.Load()
}

// TokensUsed returns the running total of tokens consumed since the last
// Reset.
func (c *Client) TokensUsed() int {
	return int(c.tokensUsed.Load())
}

// LastError returns the most recent call failure, or "" if none.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Reset clears the token counter and error state.
func (c *Client) Reset() {
	c.tokensUsed.Store(0)
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

func (c *Client) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// GenerateQueries asks the model for candidate queries. An empty or
// unparseable answer is a failure; the orchestrator decides what to do with
// it.
func (c *Client) GenerateQueries(ctx context.Context, persona *search.Persona, seedQuery string, previous []search.QueryContext, opts *prompt.GenerationOptions) ([]GeneratedQuery, error) {
	p := prompt.QueryGeneration(persona, seedQuery, previous, opts)

	text, err := c.Call(ctx, p)
	if err != nil {
		return nil, err
	}

	var generated []GeneratedQuery
	if err := decodeResponse(text, &generated); err != nil {
		c.setLastError(err)
		return nil, err
	}

	valid := generated[:0]
	for _, g := range generated {
		if g.Query != "" {
			valid = append(valid, g)
		}
	}
	if len(valid) == 0 {
		c.setLastError(ErrNoQueriesGenerated)
		return nil, ErrNoQueriesGenerated
	}

	return valid, nil
}

// ScoreQueryPass1 scores a single query before execution.
func (c *Client) ScoreQueryPass1(ctx context.Context, query string, persona *search.Persona, masterPrompt string) (*ScorePass1, error) {
	p := prompt.Pass1Scoring(query, persona, masterPrompt)

	text, err := c.Call(ctx, p)
	if err != nil {
		return nil, err
	}

	var score ScorePass1
	if err := decodeResponse(text, &score); err != nil {
		c.setLastError(err)
		return nil, err
	}
	if err := score.Validate(); err != nil {
		merr := &MalformedResponseError{Reason: err.Error(), Raw: text}
		c.setLastError(merr)
		return nil, merr
	}

	if sum := score.Breakdown.ExpectedYield + score.Breakdown.PersonaRelevance + score.Breakdown.QueryUniqueness; sum != score.Score {
		c.logger.Debug("pass1 breakdown sum %.2f drifts from score %.2f for %q", sum, score.Score, query)
	}

	return &score, nil
}

// ScoreResultsPass2 scores a query by a sample of its results. Descriptions
// are sanitized before they enter the prompt.
func (c *Client) ScoreResultsPass2(ctx context.Context, query string, sample []search.Result, persona *search.Persona) (*ScorePass2, error) {
	cleaned := search.CleanResults(sample)
	p := prompt.Pass2Scoring(query, cleaned, persona)

	text, err := c.Call(ctx, p)
	if err != nil {
		return nil, err
	}

	var score ScorePass2
	if err := decodeResponse(text, &score); err != nil {
		c.setLastError(err)
		return nil, err
	}
	if err := score.Validate(len(sample)); err != nil {
		merr := &MalformedResponseError{Reason: err.Error(), Raw: text}
		c.setLastError(merr)
		return nil, merr
	}

	return &score, nil
}

// isTransient reports whether an error is worth retrying: network failures,
// timeouts, rate limits, and 5xx responses. Parse errors, auth errors, and
// other 4xx responses are not.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// withJitter spreads a delay by ±25% so retries from sibling requests don't
// synchronize.
func withJitter(d time.Duration) time.Duration {
	//nolint:gosec // weak RNG is fine for retry jitter
	jitter := time.Duration(float64(d) * 0.25 * (2*rand.Float64() - 1))
	return d + jitter
}
