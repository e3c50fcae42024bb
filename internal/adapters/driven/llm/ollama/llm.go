// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service. Zero
// values select the defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Retry overrides the default backoff policy.
	Retry *retry.Policy

	// Usage receives accounting records for successful calls. Local
	// models cost nothing, but token counts are still tracked.
	Usage *metering.Accumulator
}

// LLMService provides generation using Ollama.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
	policy  retry.Policy
	usage   *metering.Accumulator
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	s := &LLMService{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		policy:  retry.DefaultPolicy(),
		usage:   cfg.Usage,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultLLMModel
	}
	if cfg.Retry != nil {
		s.policy = *cfg.Retry
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultLLMTimeout
	}
	s.client = &http.Client{Timeout: timeout}

	return s
}

// Generate produces a completion for the request. Transient failures
// are retried under the backoff policy.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is empty: %w", domain.ErrInvalidInput)
	}

	var result *driven.GenerateResult
	err := s.policy.Do(ctx, "ollama generate", func(ctx context.Context) error {
		var callErr error
		result, callErr = s.generateOnce(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// generateOnce performs a single provider call.
func (s *LLMService) generateOnce(ctx context.Context, genReq driven.GenerateRequest) (*driven.GenerateResult, error) {
	payload := generateRequest{
		Model:  s.model,
		Prompt: genReq.Prompt,
		System: genReq.System,
		Stream: false,
	}
	if genReq.MaxTokens > 0 || genReq.Temperature > 0 {
		payload.Options = &options{
			NumPredict:  genReq.MaxTokens,
			Temperature: genReq.Temperature,
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ProviderUnavailableError{Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, statusError(resp.StatusCode, body)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if s.usage != nil {
		s.usage.Record(domain.OpGenerate, s.model, parsed.PromptEvalCount, parsed.EvalCount)
	}

	return &driven.GenerateResult{
		Text: parsed.Response,
		Usage: domain.TokenUsage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
		},
	}, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string { return s.model }

// Ping checks the /api/tags endpoint, which validates connectivity
// without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ProviderUnavailableError{Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return statusError(resp.StatusCode, body)
	}
	return nil
}

// Close releases resources. The HTTP client needs no explicit cleanup.
func (s *LLMService) Close() error { return nil }

// statusError maps an HTTP failure to the provider error taxonomy.
// A 404 usually means the model is not pulled.
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch {
	case status >= 500:
		return &domain.ProviderUnavailableError{Provider: "ollama", StatusCode: status, Message: msg}
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return fmt.Errorf("ollama rejected the request: %s: %w", msg, domain.ErrInvalidInput)
	default:
		return fmt.Errorf("ollama error (status %d): %s", status, msg)
	}
}
