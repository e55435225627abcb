package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when no API key is configured for the LLM
// backend. Configuration errors are fatal and never retried.
var ErrMissingAPIKey = errors.New("llm api key not set")

// ErrNoQueriesGenerated is returned when the model answers a generation
// prompt with an empty array.
var ErrNoQueriesGenerated = errors.New("no valid queries generated")

// Completion is one raw model response.
type Completion struct {
	Content     string
	TotalTokens int
}

// Backend turns a prompt and model identifier into freeform text. The text
// is expected to contain a JSON payload; parsing is the Client's job.
type Backend interface {
	Complete(ctx context.Context, prompt, model string) (*Completion, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, prompt, model string) (*Completion, error)

// Complete calls the wrapped function.
func (f BackendFunc) Complete(ctx context.Context, prompt, model string) (*Completion, error) {
	return f(ctx, prompt, model)
}
