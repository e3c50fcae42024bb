// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/embedding"
	ollamaembed "github.com/custodia-labs/docqa-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa-cli/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docqa-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docqa-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/retry"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options carries the cross-provider wiring shared by every created
// service: the backoff policy, embedding batch bounds, and the usage
// accumulator that receives accounting records.
type Options struct {
	Retry domain.RetrySettings
	Batch domain.BatchSettings
	Usage *metering.Accumulator
}

// OptionsFromSettings extracts factory options from application settings.
func OptionsFromSettings(settings domain.AppSettings, usage *metering.Accumulator) Options {
	return Options{
		Retry: settings.Retry,
		Batch: settings.Batch,
		Usage: usage,
	}
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that left a service nil.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// CreateServices creates both AI services without network validation.
// A provider that is configured but cannot be constructed produces a
// warning and a nil service; commands that need the missing service
// report it when invoked. Use the validate command to check
// connectivity.
func CreateServices(settings domain.AppSettings, usage *metering.Accumulator) *InitResult {
	result := &InitResult{}
	opts := OptionsFromSettings(settings, usage)

	if svc, err := CreateEmbeddingService(&settings.Embedding, opts); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding provider: %v", err))
	} else {
		result.EmbeddingService = svc
	}

	if svc, err := CreateLLMService(&settings.LLM, opts); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("generation provider: %v", err))
	} else {
		result.LLMService = svc
	}

	return result
}

// pinger is the slice of the service interfaces the connectivity check
// needs.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ping checks connectivity under the factory's timeout.
func ping(svc pinger) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateAndValidateEmbeddingService creates an embedding service and
// checks connectivity. Errors carry guidance for the user.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings, opts Options) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa validate' to diagnose",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(svc); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa validate' to diagnose",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and checks
// connectivity. Errors carry guidance for the user.
func CreateAndValidateLLMService(settings *domain.LLMSettings, opts Options) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docqa validate' to diagnose",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(svc); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docqa validate' to diagnose",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a throwaway service and pings it.
// Intended for the validate command to check credentials and
// reachability.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings, Options{})
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc)
}

// ValidateLLMConfig creates a throwaway service and pings it. Intended
// for the validate command to check credentials and reachability.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings, Options{})
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc)
}

// CreateEmbeddingService creates the appropriate embedding service based
// on settings, wrapped in the content-addressed cache so repeated texts
// never pay for the same vector twice. Returns nil if the provider is
// not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, opts Options) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var inner driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		inner = createOllamaEmbedding(settings, opts)

	case domain.AIProviderOpenAI:
		policy := policyFrom(opts.Retry)
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:        settings.APIKey,
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			Dimensions:    domain.EmbeddingDimensions()[settings.Model],
			MaxBatchItems: opts.Batch.MaxItems,
			MaxBatchChars: opts.Batch.MaxChars,
			Retry:         &policy,
			Usage:         opts.Usage,
		})
		if err != nil {
			return nil, err
		}
		inner = svc

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return embedding.NewCachedService(inner, opts.Usage), nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings, opts Options) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	policy := policyFrom(opts.Retry)

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings, opts), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Retry:   &policy,
			Usage:   opts.Usage,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:    settings.APIKey,
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			MaxTokens: settings.MaxTokens,
			Retry:     &policy,
			Usage:     opts.Usage,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings, opts Options) driven.EmbeddingService {
	policy := policyFrom(opts.Retry)
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
		Retry:      &policy,
		Usage:      opts.Usage,
	})
}

func createOllamaLLM(settings *domain.LLMSettings, opts Options) driven.LLMService {
	policy := policyFrom(opts.Retry)
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Retry:   &policy,
		Usage:   opts.Usage,
	})
}

// policyFrom maps the configured backoff knobs onto a retry policy.
// Zero-value settings select the default policy.
func policyFrom(settings domain.RetrySettings) retry.Policy {
	policy := retry.DefaultPolicy()
	if settings.MaxAttempts > 0 {
		policy.MaxAttempts = settings.MaxAttempts
	}
	if settings.BaseDelay > 0 {
		policy.BaseDelay = settings.BaseDelay
	}
	if settings.MaxDelay > 0 {
		policy.MaxDelay = settings.MaxDelay
	}
	if settings.Jitter > 0 {
		policy.Jitter = settings.Jitter
	}
	return policy
}
