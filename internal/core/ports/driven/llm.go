// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// LLMService produces answer text from an assembled prompt.
// This is an optional service - when nil, asking is disabled and only
// raw passage retrieval is available.
//
// Implementations absorb retryable provider failures (rate limits,
// overload, 5xx) up to their retry ceiling; non-retryable failures
// (bad credentials, invalid requests) surface immediately.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a completion for the request and reports the
	// provider's token accounting.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateRequest is a single-turn generation call.
type GenerateRequest struct {
	// System is the system instruction, empty for none.
	System string

	// Prompt is the user content.
	Prompt string

	// MaxTokens is the generation ceiling. Zero selects the
	// implementation default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// GenerateResult carries the completion and its token accounting.
type GenerateResult struct {
	// Text is the generated completion.
	Text string

	// Usage is the provider-reported token counts for the call.
	Usage domain.TokenUsage
}
