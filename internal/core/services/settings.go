package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyChunkSize      = "chunking.size"
	keyChunkOverlap   = "chunking.overlap"
	keyRetrievalTopK  = "retrieval.top_k"
	keyRetrievalDedup = "retrieval.dedupe"
	keyRetryAttempts  = "retry.max_attempts"
	keyRetryBaseDelay = "retry.base_delay"
	keyRetryMaxDelay  = "retry.max_delay"
	keyRetryJitter    = "retry.jitter"
	keyBatchMaxItems  = "batch.max_items"
	keyBatchMaxChars  = "batch.max_chars"
)

// Environment variables consulted for cloud API keys when the config
// file carries none.
const (
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

const localBaseURL = "http://localhost:11434"

// SettingsService manages application settings on top of a ConfigStore.
// The optional aiValidator lets callers probe providers for liveness.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Cloud API keys fall back
// to the environment when the config file carries none.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.providerOr(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.stringOr(keyEmbedModel, d.Embedding.Model),
			// Base URLs have no default: empty is valid for cloud providers.
			BaseURL: s.configStore.GetString(keyEmbedBaseURL),
			APIKey:  s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:  s.providerOr(keyLLMProvider, d.LLM.Provider),
			Model:     s.stringOr(keyLLMModel, d.LLM.Model),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL),
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
			MaxTokens: s.configStore.GetInt(keyLLMMaxTokens),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.intOr(keyChunkSize, d.Chunking.Size),
			Overlap: s.intOr(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:   s.intOr(keyRetrievalTopK, d.Retrieval.TopK),
			Dedupe: s.boolOr(keyRetrievalDedup, d.Retrieval.Dedupe),
		},
		Retry: domain.RetrySettings{
			MaxAttempts: s.intOr(keyRetryAttempts, d.Retry.MaxAttempts),
			BaseDelay:   s.durationOr(keyRetryBaseDelay, d.Retry.BaseDelay),
			MaxDelay:    s.durationOr(keyRetryMaxDelay, d.Retry.MaxDelay),
			Jitter:      s.floatOr(keyRetryJitter, d.Retry.Jitter),
		},
		Batch: domain.BatchSettings{
			MaxItems: s.intOr(keyBatchMaxItems, d.Batch.MaxItems),
			MaxChars: s.intOr(keyBatchMaxChars, d.Batch.MaxChars),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings. API keys are only written when
// explicitly set; keys picked up from the environment stay out of the
// config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	entries := []struct {
		key   string
		label string
		value any
	}{
		{keyEmbedProvider, "embedding provider", settings.Embedding.Provider.String()},
		{keyEmbedModel, "embedding model", settings.Embedding.Model},
		{keyEmbedBaseURL, "embedding base_url", settings.Embedding.BaseURL},
		{keyLLMProvider, "llm provider", settings.LLM.Provider.String()},
		{keyLLMModel, "llm model", settings.LLM.Model},
		{keyLLMBaseURL, "llm base_url", settings.LLM.BaseURL},
		{keyChunkSize, "chunking size", settings.Chunking.Size},
		{keyChunkOverlap, "chunking overlap", settings.Chunking.Overlap},
		{keyRetrievalTopK, "retrieval top_k", settings.Retrieval.TopK},
		{keyRetrievalDedup, "retrieval dedupe", settings.Retrieval.Dedupe},
	}

	for _, e := range entries {
		if err := s.configStore.Set(e.key, e.value); err != nil {
			return fmt.Errorf("save %s: %w", e.label, err)
		}
	}

	if settings.LLM.MaxTokens > 0 {
		if err := s.configStore.Set(keyLLMMaxTokens, settings.LLM.MaxTokens); err != nil {
			return fmt.Errorf("save llm max_tokens: %w", err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !supportsEmbeddings(provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if err := checkAPIKey(provider, apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = pickModel(model, domain.DefaultEmbeddingModels(), provider)
	settings.Embedding.BaseURL = pickBaseURL(provider, settings.Embedding.BaseURL)

	if err := s.Save(settings); err != nil {
		return err
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, apiKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	return nil
}

// SetLLMProvider configures the generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid generation provider: %s", provider)
	}
	if err := checkAPIKey(provider, apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = pickModel(model, domain.DefaultLLMModels(), provider)
	settings.LLM.BaseURL = pickBaseURL(provider, settings.LLM.BaseURL)

	if err := s.Save(settings); err != nil {
		return err
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, apiKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	return nil
}

// Validate checks that current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %s is not configured (set %s)",
			settings.Embedding.Provider, envOpenAIAPIKey)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("generation provider %s is not configured (set %s)",
			settings.LLM.Provider, envAnthropicAPIKey)
	}

	if settings.Chunking.Size <= 0 {
		return fmt.Errorf("chunking size must be positive, got %d", settings.Chunking.Size)
	}
	if o := settings.Chunking.Overlap; o < 0 || o >= settings.Chunking.Size {
		return fmt.Errorf("chunking overlap must be in [0, size), got %d", o)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", settings.Retrieval.TopK)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig pings the configured generation provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration
// derived from the chunking settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	settings, err := s.Get()
	if err != nil {
		return cfg
	}

	cfg.ProcessorConfigs["chunker"] = map[string]any{
		"chunk_size": settings.Chunking.Size,
		"overlap":    settings.Chunking.Overlap,
	}
	return cfg
}

// supportsEmbeddings reports whether the provider exposes an
// embeddings endpoint.
func supportsEmbeddings(provider domain.AIProvider) bool {
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			return true
		}
	}
	return false
}

// checkAPIKey rejects cloud providers with no key in hand. A key in
// the environment satisfies the check.
func checkAPIKey(provider domain.AIProvider, apiKey string) error {
	if provider.RequiresAPIKey() && apiKey == "" && envAPIKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}
	return nil
}

// pickModel prefers the explicit model, falling back to the provider
// default when one exists.
func pickModel(model string, defaults map[domain.AIProvider]string, provider domain.AIProvider) string {
	if model != "" {
		return model
	}
	if d, ok := defaults[provider]; ok {
		return d
	}
	return model
}

// pickBaseURL keeps a custom URL for local providers, supplying the
// stock one when unset. Cloud providers always use their own endpoint.
func pickBaseURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return localBaseURL
	}
	return current
}

// Readers with fallbacks. Zero or missing values yield the default.

func (s *SettingsService) stringOr(key, fallback string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) intOr(key string, fallback int) int {
	if v := s.configStore.GetInt(key); v != 0 {
		return v
	}
	return fallback
}

func (s *SettingsService) boolOr(key string, fallback bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return fallback
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) floatOr(key string, fallback float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return fallback
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) durationOr(key string, fallback time.Duration) time.Duration {
	v := s.configStore.GetString(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func (s *SettingsService) providerOr(key string, fallback domain.AIProvider) domain.AIProvider {
	v := s.configStore.GetString(key)
	if p := domain.AIProvider(v); v != "" && p.IsValid() {
		return p
	}
	return fallback
}

// envAPIKey returns the environment API key for a cloud provider,
// empty for local providers.
func envAPIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return os.Getenv(envOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return os.Getenv(envAnthropicAPIKey)
	default:
		return ""
	}
}
