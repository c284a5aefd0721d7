package execution

import (
	"context"
)

// CompletionEngine is the interface for requesting text completions from
// a model provider.
type CompletionEngine interface {
	// Initialize sets up the engine and verifies the backend is reachable
	Initialize(ctx context.Context) error

	// Complete sends a single prompt and returns the model's text
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// CompletionRequest represents one prompt sent to a model.
type CompletionRequest struct {
	// Model is the provider-specific model name, e.g. "llama3.2:latest"
	Model string

	// Prompt is the full instruction text
	Prompt string

	// MaxTokens caps the response length. Zero means no cap. Providers that
	// cannot enforce a cap ignore it.
	MaxTokens int

	// Temperature is the sampling temperature, 0.0 to 1.0
	Temperature float64
}

// CompletionResponse represents the result of a completion.
type CompletionResponse struct {
	Text       string
	Model      string
	DurationMs int64
}
