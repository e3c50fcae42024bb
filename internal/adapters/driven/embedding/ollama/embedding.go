// Package ollama embeds text through a local Ollama daemon. The
// /api/embeddings endpoint takes one prompt per call, so batches are
// issued sequentially.
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

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// modelDimensions covers the embedding models Ollama commonly serves.
// Unknown models fall back to DefaultDimensions.
var modelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// Config configures the Ollama adapter. Zero values take the package
// defaults above.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int

	// Retry overrides the default backoff policy.
	Retry *retry.Policy

	// Usage receives accounting records for successful calls. Ollama
	// reports no token counts, so records carry call counts only.
	Usage *metering.Accumulator
}

// EmbeddingService talks to an Ollama daemon over HTTP.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
	policy     retry.Policy
	usage      *metering.Accumulator
}

// embedRequest is the /api/embeddings request body.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the /api/embeddings response body.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingService builds an adapter from cfg, filling in defaults
// for unset fields.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	s := &EmbeddingService{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		policy:     retry.DefaultPolicy(),
		usage:      cfg.Usage,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.dimensions == 0 {
		s.dimensions = DefaultDimensions
		if dims, ok := modelDimensions[s.model]; ok {
			s.dimensions = dims
		}
	}
	if cfg.Retry != nil {
		s.policy = *cfg.Retry
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	s.client = &http.Client{Timeout: timeout}
	return s
}

// Embed returns the embedding for a single text, retrying transient
// daemon failures under the configured policy.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is empty: %w", domain.ErrInvalidInput)
	}

	var embedding []float32
	err := s.policy.Do(ctx, "ollama embed", func(ctx context.Context) error {
		var callErr error
		embedding, callErr = s.embedOnce(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// embedOnce issues one provider call for one text.
func (s *EmbeddingService) embedOnce(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.post(ctx, "/api/embeddings", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	// The wire format carries float64.
	embedding := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		embedding[i] = float32(v)
	}

	if s.usage != nil {
		s.usage.Record(domain.OpEmbed, s.model, 0, 0)
	}
	return embedding, nil
}

// EmbedBatch embeds texts one call at a time. The whole batch fails on
// the first text that cannot be embedded, so callers never see partial
// results.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d is empty: %w", i, domain.ErrInvalidInput)
		}
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks /api/tags, which answers without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: build ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &domain.ProviderUnavailableError{Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (s *EmbeddingService) Close() error {
	return nil
}

// post sends a JSON body to the given API path.
func (s *EmbeddingService) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
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
	return resp, nil
}

// checkStatus maps a non-200 response to the provider error taxonomy.
// Ollama runs locally and never rate limits, but a 404 usually means
// the model is not pulled, which is an input problem, not an outage.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch {
	case resp.StatusCode >= 500:
		return &domain.ProviderUnavailableError{Provider: "ollama", StatusCode: resp.StatusCode, Message: msg}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("ollama rejected the request: %s: %w", msg, domain.ErrInvalidInput)
	default:
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, msg)
	}
}
