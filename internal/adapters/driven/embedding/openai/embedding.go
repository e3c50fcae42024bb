// Package openai provides an embedding service adapter using the
// OpenAI embeddings API.
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

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values. The batch bounds reflect the API's
// dual limit: an input count cap and a combined request size cap.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	DefaultMaxBatchItems = 100
	DefaultMaxBatchChars = 300_000

	fallbackDimensions = 1536
)

// modelDimensions lists vector sizes for the known OpenAI models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service. Only
// APIKey is required; zero values select the defaults above.
type Config struct {
	APIKey string

	// BaseURL can point at Azure OpenAI or another compatible API.
	BaseURL string

	Model   string
	Timeout time.Duration

	// Dimensions overrides the model's vector size. Only the
	// text-embedding-3-* models honour it.
	Dimensions int

	// MaxBatchItems and MaxBatchChars bound one provider call.
	MaxBatchItems int
	MaxBatchChars int

	// RequestsPerSecond throttles provider calls. Zero disables
	// throttling.
	RequestsPerSecond float64

	// Retry overrides the default backoff policy.
	Retry *retry.Policy

	// Usage receives accounting records for successful calls. Optional.
	Usage *metering.Accumulator
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	model         string
	dimensions    int
	maxBatchItems int
	maxBatchChars int
	limiter       *rate.Limiter
	policy        retry.Policy
	usage         *metering.Accumulator
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}

	s := &EmbeddingService{
		apiKey:        cfg.APIKey,
		baseURL:       orDefault(cfg.BaseURL, DefaultBaseURL),
		model:         orDefault(cfg.Model, DefaultModel),
		maxBatchItems: cfg.MaxBatchItems,
		maxBatchChars: cfg.MaxBatchChars,
		dimensions:    cfg.Dimensions,
		policy:        retry.DefaultPolicy(),
		usage:         cfg.Usage,
	}
	if s.maxBatchItems <= 0 {
		s.maxBatchItems = DefaultMaxBatchItems
	}
	if s.maxBatchChars <= 0 {
		s.maxBatchChars = DefaultMaxBatchChars
	}
	if s.dimensions == 0 {
		if dims, ok := modelDimensions[s.model]; ok {
			s.dimensions = dims
		} else {
			s.dimensions = fallbackDimensions
		}
	}
	if cfg.Retry != nil {
		s.policy = *cfg.Retry
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	s.client = &http.Client{Timeout: timeout}

	return s, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting them
// into provider calls that respect both the item count and combined
// size limits. Input order and length are preserved: result[i] belongs
// to texts[i]. The whole call fails on the first batch that cannot be
// embedded, so callers never see partial results.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Invalid inputs can never succeed; failing before any network
	// call keeps the batch all-or-nothing.
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d is empty: %w", i, domain.ErrInvalidInput)
		}
		if len(text) > s.maxBatchChars {
			return nil, fmt.Errorf("text %d exceeds the %d character request limit: %w",
				i, s.maxBatchChars, domain.ErrInvalidInput)
		}
	}

	results := make([][]float32, len(texts))
	for start := 0; start < len(texts); {
		end := s.batchEnd(texts, start)

		var vectors [][]float32
		err := s.policy.Do(ctx, "openai embed", func(ctx context.Context) error {
			var callErr error
			vectors, callErr = s.embedOnce(ctx, texts[start:end])
			return callErr
		})
		if err != nil {
			return nil, err
		}
		copy(results[start:end], vectors)
		start = end
	}

	return results, nil
}

// batchEnd advances from start until either limit would be exceeded.
// Always includes at least texts[start].
func (s *EmbeddingService) batchEnd(texts []string, start int) int {
	end := start + 1
	chars := len(texts[start])
	for end < len(texts) && end-start < s.maxBatchItems && chars+len(texts[end]) <= s.maxBatchChars {
		chars += len(texts[end])
		end++
	}
	return end
}

// embedOnce performs a single provider call for one batch.
func (s *EmbeddingService) embedOnce(ctx context.Context, batch []string) ([][]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload := embeddingRequest{Model: s.model, Input: batch}
	// Only the v3 models accept a dimensions override.
	if strings.HasPrefix(s.model, "text-embedding-3-") && s.dimensions > 0 {
		payload.Dimensions = s.dimensions
	}

	body, err := s.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}

	// Reassemble by index: the API may return data out of order.
	vectors := make([][]float32, len(batch))
	for _, data := range parsed.Data {
		if data.Index < 0 || data.Index >= len(batch) {
			return nil, fmt.Errorf("openai returned embedding for unknown index %d", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		vectors[data.Index] = vec
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("openai returned no embedding for input %d", i)
		}
	}

	if s.usage != nil {
		s.usage.Record(domain.OpEmbed, s.model, parsed.Usage.PromptTokens, 0)
	}
	logger.Debug("openai: embedded %d texts (%d tokens)", len(batch), parsed.Usage.PromptTokens)

	return vectors, nil
}

// post sends a JSON request and returns the response body, mapping
// transport and HTTP failures to the provider error taxonomy.
func (s *EmbeddingService) post(ctx context.Context, path string, payload any) ([]byte, error) {
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

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping checks the /models endpoint, which validates the API key
// without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
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
func (s *EmbeddingService) Close() error { return nil }

// statusError maps an HTTP failure to the provider error taxonomy:
// credentials problems are fatal, rate limits and 5xx are retryable,
// and a 400 means the input itself was rejected.
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
