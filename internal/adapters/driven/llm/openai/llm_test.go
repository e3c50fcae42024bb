package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// fakeOpenAI simulates the /chat/completions endpoint. The first
// `failures` requests respond with failStatus instead.
type fakeOpenAI struct {
	mu         sync.Mutex
	requests   []chatCompletionRequest
	failures   int
	failStatus int
}

func (f *fakeOpenAI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
			return
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		fail := f.failures > 0
		if fail {
			f.failures--
		}
		f.mu.Unlock()

		if fail {
			w.WriteHeader(f.failStatus)
			w.Write([]byte(`{"error":{"message":"simulated failure"}}`)) //nolint:errcheck
			return
		}

		//nolint:errcheck
		w.Write([]byte(`{
			"choices": [{"message": {"content": "an answer"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}
}

func (f *fakeOpenAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeOpenAI) lastRequest() chatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func fastPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(_ context.Context, _ time.Duration) error { return nil },
	}
}

func newTestService(t *testing.T, fake *fakeOpenAI, cfg LLMConfig) *LLMService {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	if cfg.Retry == nil {
		cfg.Retry = fastPolicy()
	}
	svc, err := NewLLMService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewLLMService(LLMConfig{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("applies defaults", func(t *testing.T) {
		svc, err := NewLLMService(LLMConfig{APIKey: "test-key"})

		require.NoError(t, err)
		assert.Equal(t, DefaultLLMModel, svc.ModelName())
	})
}

func TestLLMService_Generate(t *testing.T) {
	t.Run("sends a system message when set", func(t *testing.T) {
		fake := &fakeOpenAI{}
		svc := newTestService(t, fake, LLMConfig{})

		result, err := svc.Generate(context.Background(), driven.GenerateRequest{
			System: "Answer briefly.",
			Prompt: "What is Go?",
		})

		require.NoError(t, err)
		assert.Equal(t, "an answer", result.Text)
		assert.Equal(t, 12, result.Usage.InputTokens)
		assert.Equal(t, 4, result.Usage.OutputTokens)

		sent := fake.lastRequest()
		require.Len(t, sent.Messages, 2)
		assert.Equal(t, "system", sent.Messages[0].Role)
		assert.Equal(t, "Answer briefly.", sent.Messages[0].Content)
		assert.Equal(t, "user", sent.Messages[1].Role)
	})

	t.Run("omits the system message when empty", func(t *testing.T) {
		fake := &fakeOpenAI{}
		svc := newTestService(t, fake, LLMConfig{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.NoError(t, err)
		sent := fake.lastRequest()
		require.Len(t, sent.Messages, 1)
		assert.Equal(t, "user", sent.Messages[0].Role)
	})

	t.Run("rejects a blank prompt without calling the provider", func(t *testing.T) {
		fake := &fakeOpenAI{}
		svc := newTestService(t, fake, LLMConfig{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: ""})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Zero(t, fake.calls())
	})

	t.Run("retries rate limits", func(t *testing.T) {
		fake := &fakeOpenAI{failures: 1, failStatus: http.StatusTooManyRequests}
		svc := newTestService(t, fake, LLMConfig{})

		result, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.NoError(t, err)
		assert.Equal(t, "an answer", result.Text)
		assert.Equal(t, 2, fake.calls())
	})

	t.Run("bad credentials fail fast", func(t *testing.T) {
		fake := &fakeOpenAI{failures: 10, failStatus: http.StatusForbidden}
		svc := newTestService(t, fake, LLMConfig{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.Error(t, err)
		assert.True(t, domain.IsAuthError(err))
		assert.Equal(t, 1, fake.calls())
	})

	t.Run("records usage for successful calls", func(t *testing.T) {
		acc := metering.NewAccumulator(nil)
		fake := &fakeOpenAI{}
		svc := newTestService(t, fake, LLMConfig{Usage: acc})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.NoError(t, err)
		totals := acc.Totals()
		assert.Equal(t, 1, totals.Calls)
		assert.Equal(t, 12, totals.InputUnits)
		assert.Equal(t, 4, totals.OutputUnits)
		assert.Greater(t, totals.Cost, 0.0)
	})
}

func TestLLMService_Ping(t *testing.T) {
	t.Run("succeeds against a healthy provider", func(t *testing.T) {
		fake := &fakeOpenAI{}
		svc := newTestService(t, fake, LLMConfig{})

		require.NoError(t, svc.Ping(context.Background()))
	})

	t.Run("reports an unreachable provider", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		svc, err := NewLLMService(LLMConfig{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		err = svc.Ping(context.Background())

		require.Error(t, err)
		assert.True(t, domain.IsProviderUnavailable(err))
	})
}
