// Package anthropic provides an LLM service adapter using the Anthropic
// Messages API.
package anthropic

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
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-5"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens bounds a single answer.
	DefaultMaxTokens = 8000

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service. Only
// APIKey is required; zero values select the defaults above.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// MaxTokens is the generation ceiling when a request does not set
	// its own.
	MaxTokens int

	// Retry overrides the default backoff policy.
	Retry *retry.Policy

	// Usage receives accounting records for successful calls. Optional.
	Usage *metering.Accumulator
}

// LLMService provides generation using the Anthropic API.
type LLMService struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	policy    retry.Policy
	usage     *metering.Accumulator
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}

	s := &LLMService{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		policy:    retry.DefaultPolicy(),
		usage:     cfg.Usage,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if cfg.Retry != nil {
		s.policy = *cfg.Retry
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
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
	err := s.policy.Do(ctx, "anthropic generate", func(ctx context.Context) error {
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
	payload := messagesRequest{
		Model:     s.model,
		Messages:  []messagesMessage{{Role: "user", Content: genReq.Prompt}},
		MaxTokens: s.maxTokens,
		System:    genReq.System,
	}
	if genReq.MaxTokens > 0 {
		payload.MaxTokens = genReq.MaxTokens
	}
	if genReq.Temperature > 0 {
		payload.Temperature = genReq.Temperature
	}

	body, err := s.post(ctx, "/v1/messages", payload)
	if err != nil {
		return nil, err
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("anthropic: no response content returned")
	}

	// The answer may arrive as several text blocks.
	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if s.usage != nil {
		s.usage.Record(domain.OpGenerate, s.model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens)
	}
	logger.Debug("anthropic: generated %d output tokens (stop: %s)", parsed.Usage.OutputTokens, parsed.StopReason)

	return &driven.GenerateResult{
		Text: text.String(),
		Usage: domain.TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
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
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ProviderUnavailableError{Provider: "anthropic", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderUnavailableError{Provider: "anthropic", Message: "reading response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Header, body)
	}
	return body, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string { return s.model }

// Ping checks the /v1/models endpoint, which validates the API key
// without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ProviderUnavailableError{Provider: "anthropic", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return statusError(resp.StatusCode, resp.Header, body)
	}
	return nil
}

// Close releases resources. The HTTP client needs no explicit cleanup.
func (s *LLMService) Close() error { return nil }

// statusError maps an HTTP failure to the provider error taxonomy.
// Anthropic signals overload with 529, which falls under the 5xx
// transient class.
func statusError(status int, header http.Header, body []byte) error {
	msg := apiErrorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Provider: "anthropic", Message: msg}
	case status == http.StatusTooManyRequests:
		return &domain.RateLimitError{Provider: "anthropic", RetryAfter: parseRetryAfter(header.Get("retry-after"))}
	case status >= 500:
		return &domain.ProviderUnavailableError{Provider: "anthropic", StatusCode: status, Message: msg}
	case status == http.StatusBadRequest:
		return fmt.Errorf("anthropic rejected the request: %s: %w", msg, domain.ErrInvalidInput)
	default:
		return fmt.Errorf("anthropic error (status %d): %s", status, msg)
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
