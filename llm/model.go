package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// ModelBackend adapts a langchaingo llms.Model to the Backend interface, so
// any provider langchaingo supports can drive the pipeline. Token usage is
// not reported through llms.GenerateFromSinglePrompt, so TotalTokens is
// always zero here; use OpenRouterBackend when accounting matters.
type ModelBackend struct {
	model llms.Model
}

// NewModelBackend wraps a langchaingo model.
func NewModelBackend(model llms.Model) *ModelBackend {
	return &ModelBackend{model: model}
}

// Complete generates a response for the prompt. The model argument selects
// the provider-side model where the underlying implementation supports it.
func (b *ModelBackend) Complete(ctx context.Context, prompt, model string) (*Completion, error) {
	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	content, err := llms.GenerateFromSinglePrompt(ctx, b.model, prompt, opts...)
	if err != nil {
		return nil, err
	}

	return &Completion{Content: content}, nil
}

var _ Backend = (*ModelBackend)(nil)
