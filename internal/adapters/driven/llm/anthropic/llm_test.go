package anthropic

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

// fakeAnthropic simulates the /v1/messages endpoint. It replies with
// a thinking block and two text blocks so tests can verify that only
// text blocks reach the caller. The first `failures` requests respond
// with failStatus instead.
type fakeAnthropic struct {
	mu         sync.Mutex
	requests   []messagesRequest
	headers    []http.Header
	failures   int
	failStatus int
}

func (f *fakeAnthropic) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/models" {
			f.mu.Lock()
			f.headers = append(f.headers, r.Header.Clone())
			fail := f.failures > 0
			if fail {
				f.failures--
			}
			f.mu.Unlock()
			if fail {
				w.WriteHeader(f.failStatus)
				w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`)) //nolint:errcheck
				return
			}
			w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
			return
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.headers = append(f.headers, r.Header.Clone())
		fail := f.failures > 0
		if fail {
			f.failures--
		}
		f.mu.Unlock()

		if fail {
			w.WriteHeader(f.failStatus)
			w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)) //nolint:errcheck
			return
		}

		//nolint:errcheck
		w.Write([]byte(`{
			"content": [
				{"type": "thinking", "text": "hmm"},
				{"type": "text", "text": "Hello"},
				{"type": "text", "text": " world"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}
}

func (f *fakeAnthropic) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAnthropic) lastRequest() messagesRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAnthropic) lastHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[len(f.headers)-1]
}

func fastPolicy() *retry.Policy {
	return &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(_ context.Context, _ time.Duration) error { return nil },
	}
}

func newTestService(t *testing.T, fake *fakeAnthropic, cfg Config) *LLMService {
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
		_, err := NewLLMService(Config{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("applies defaults", func(t *testing.T) {
		svc, err := NewLLMService(Config{APIKey: "test-key"})

		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
	})
}

func TestLLMService_Generate(t *testing.T) {
	t.Run("sends the request and returns text blocks only", func(t *testing.T) {
		fake := &fakeAnthropic{}
		svc := newTestService(t, fake, Config{})

		result, err := svc.Generate(context.Background(), driven.GenerateRequest{
			System: "You answer questions.",
			Prompt: "What is Go?",
		})

		require.NoError(t, err)
		assert.Equal(t, "Hello world", result.Text)
		assert.Equal(t, 10, result.Usage.InputTokens)
		assert.Equal(t, 20, result.Usage.OutputTokens)

		sent := fake.lastRequest()
		assert.Equal(t, "You answer questions.", sent.System)
		require.Len(t, sent.Messages, 1)
		assert.Equal(t, "user", sent.Messages[0].Role)
		assert.Equal(t, "What is Go?", sent.Messages[0].Content)
		assert.Equal(t, DefaultMaxTokens, sent.MaxTokens)

		header := fake.lastHeader()
		assert.Equal(t, "test-key", header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, header.Get("anthropic-version"))
	})

	t.Run("request ceiling overrides the default", func(t *testing.T) {
		fake := &fakeAnthropic{}
		svc := newTestService(t, fake, Config{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi", MaxTokens: 50})

		require.NoError(t, err)
		assert.Equal(t, 50, fake.lastRequest().MaxTokens)
	})

	t.Run("rejects a blank prompt without calling the provider", func(t *testing.T) {
		fake := &fakeAnthropic{}
		svc := newTestService(t, fake, Config{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "  \n"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Zero(t, fake.calls())
	})

	t.Run("retries overload responses", func(t *testing.T) {
		fake := &fakeAnthropic{failures: 2, failStatus: 529}
		svc := newTestService(t, fake, Config{})

		result, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.NoError(t, err)
		assert.Equal(t, "Hello world", result.Text)
		assert.Equal(t, 3, fake.calls())
	})

	t.Run("bad credentials fail fast", func(t *testing.T) {
		fake := &fakeAnthropic{failures: 10, failStatus: http.StatusUnauthorized}
		svc := newTestService(t, fake, Config{})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.Error(t, err)
		assert.True(t, domain.IsAuthError(err))
		assert.Equal(t, 1, fake.calls())
	})

	t.Run("records usage for successful calls", func(t *testing.T) {
		acc := metering.NewAccumulator(nil)
		fake := &fakeAnthropic{}
		svc := newTestService(t, fake, Config{Usage: acc})

		_, err := svc.Generate(context.Background(), driven.GenerateRequest{Prompt: "hi"})

		require.NoError(t, err)
		totals := acc.Totals()
		assert.Equal(t, 1, totals.Calls)
		assert.Equal(t, 10, totals.InputUnits)
		assert.Equal(t, 20, totals.OutputUnits)
		assert.Greater(t, totals.Cost, 0.0)
		assert.Equal(t, 1, acc.ByOperation()[domain.OpGenerate].Calls)
	})
}

func TestLLMService_Ping(t *testing.T) {
	t.Run("succeeds against a healthy provider", func(t *testing.T) {
		fake := &fakeAnthropic{}
		svc := newTestService(t, fake, Config{})

		err := svc.Ping(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "test-key", fake.lastHeader().Get("x-api-key"))
	})

	t.Run("reports bad credentials", func(t *testing.T) {
		fake := &fakeAnthropic{failures: 1, failStatus: http.StatusUnauthorized}
		svc := newTestService(t, fake, Config{})

		err := svc.Ping(context.Background())

		require.Error(t, err)
		assert.True(t, domain.IsAuthError(err))
	})
}
