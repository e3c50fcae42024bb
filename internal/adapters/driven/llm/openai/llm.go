// Package openai provides an LLM service adapter using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
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
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service. Only
// APIKey is required; zero values select the defaults above.
type LLMConfig struct {
	APIKey string

	// BaseURL can point at Azure OpenAI or another compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Retry overrides the default backoff policy.
	Retry *retry.Policy

	// Usage receives accounting records for successful calls. Optional.
	Usage *metering.Accumulator
}

// LLMService provides generation using the OpenAI API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	policy  retry.Policy
	usage   *metering.Accumulator
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	s := &LLMService{
		apiKey:  cfg.APIKey,
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

	return s, nil
}

// Generate produces a completion for the request. Transient provider
// failures are retried under the backoff policy; credential and input
// failures surface immediately.
func (s *LLMService) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is empty: %w", domain.ErrInvalidInput)
	}

	var result *driven.GenerateResult
	err := s.policy.Do(ctx, "openai generate", func(ctx context.Context) error {
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
	payload := chatCompletionRequest{Model: s.model}
	if genReq.System != "" {
		payload.Messages = append(payload.Messages, chatCompletionMsg{Role: "system", Content: genReq.System})
	}
	payload.Messages = append(payload.Messages, chatCompletionMsg{Role: "user", Content: genReq.Prompt})
	if genReq.MaxTokens > 0 {
		payload.MaxTokens = genReq.MaxTokens
	}
	if genReq.Temperature > 0 {
		payload.Temperature = genReq.Temperature
	}

	body, err := s.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	if s.usage != nil {
		s.usage.Record(domain.OpGenerate, s.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	}

	return &driven.GenerateResult{
		Text: parsed.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

// post sends a JSON request and returns the response body, mapping
// transport and HTTP failures to the provider error taxonomy.
func (s *LLMService) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ProviderUnavailableError{Provider: "openai", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderUnavailableError{Provider: "openai", Message: "reading response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Header, body)
	}
	return body, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string { return s.model }

// Ping checks the /models endpoint, which validates the API key
// without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ProviderUnavailableError{Provider: "openai", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return statusError(resp.StatusCode, resp.Header, body)
	}
	return nil
}

// Close releases resources. The HTTP client needs no explicit cleanup.
func (s *LLMService) Close() error { return nil }

// statusError maps an HTTP failure to the provider error taxonomy.
func statusError(status int, header http.Header, body []byte) error {
	msg := apiErrorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Provider: "openai", Message: msg}
	case status == http.StatusTooManyRequests:
		return &domain.RateLimitError{Provider: "openai", RetryAfter: parseRetryAfter(header.Get("Retry-After"))}
	case status >= 500:
		return &domain.ProviderUnavailableError{Provider: "openai", StatusCode: status, Message: msg}
	case status == http.StatusBadRequest:
		return fmt.Errorf("openai rejected the request: %s: %w", msg, domain.ErrInvalidInput)
	default:
		return fmt.Errorf("openai error (status %d): %s", status, msg)
	}
}

// apiErrorMessage extracts the provider's message from an error body,
// falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// parseRetryAfter reads a Retry-After header in either seconds or
// HTTP-date form, zero when absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
