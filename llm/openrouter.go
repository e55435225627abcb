package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenRouterBaseURL is the OpenRouter chat-completions endpoint.
// OpenRouter speaks the OpenAI wire protocol, so the go-openai client works
// unchanged with a swapped base URL.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterBackend implements Backend against OpenRouter (or any
// OpenAI-compatible API).
type OpenRouterBackend struct {
	client *openai.Client
}

// OpenRouterOptions configures the backend.
type OpenRouterOptions struct {
	APIKey     string
	BaseURL    string       // default DefaultOpenRouterBaseURL
	HTTPClient *http.Client // optional
}

// NewOpenRouterBackend creates an OpenRouter backend. A missing API key is a
// configuration error, surfaced immediately.
func NewOpenRouterBackend(opts OpenRouterOptions) (*OpenRouterBackend, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultOpenRouterBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &OpenRouterBackend{client: openai.NewClientWithConfig(cfg)}, nil
}

// Complete sends a single-message chat completion and returns the text plus
// token usage.
func (b *OpenRouterBackend) Complete(ctx context.Context, prompt, model string) (*Completion, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm response contained no choices")
	}

	return &Completion{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

var _ Backend = (*OpenRouterBackend)(nil)
