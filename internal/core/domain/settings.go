package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or
// generation.
type AIProvider string

// Available AI providers.
const (
	AIProviderOllama    AIProvider = "ollama"    // local Ollama instance
	AIProviderOpenAI    AIProvider = "openai"    // OpenAI cloud API
	AIProviderAnthropic AIProvider = "anthropic" // Anthropic cloud API
)

// providerLabels maps each known provider to its display name.
var providerLabels = map[AIProvider]string{
	AIProviderOllama:    "Ollama (local)",
	AIProviderOpenAI:    "OpenAI (cloud)",
	AIProviderAnthropic: "Anthropic (cloud)",
}

// IsValid reports whether the provider is one of the known values.
func (p AIProvider) IsValid() bool {
	_, ok := providerLabels[p]
	return ok
}

// RequiresAPIKey reports whether calls to this provider must carry a key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal reports whether this provider runs on the user's machine.
func (p AIProvider) IsLocal() bool { return p == AIProviderOllama }

func (p AIProvider) String() string { return string(p) }

// Description returns a human-readable label for the provider.
func (p AIProvider) Description() string {
	if label, ok := providerLabels[p]; ok {
		return label
	}
	return unknownDescription
}

// EmbeddingSettings holds embedding provider configuration. APIKey is
// usually supplied through the environment rather than the config file.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string // API endpoint, for Ollama or compatible APIs
	APIKey   string
}

// IsConfigured reports whether the embedding provider is usable: a
// known provider, with a key when the provider demands one.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid() && (!e.Provider.RequiresAPIKey() || e.APIKey != "")
}

// LLMSettings holds generation provider configuration. APIKey is
// usually supplied through the environment rather than the config file.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string // API endpoint, for Ollama or compatible APIs
	APIKey   string

	// MaxTokens bounds a single answer. Zero selects the provider
	// default.
	MaxTokens int
}

// IsConfigured reports whether the generation provider is usable.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}

// ChunkingSettings holds document chunking configuration. Overlap is
// the number of characters shared between consecutive chunks and must
// stay smaller than Size.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// RetrievalSettings holds retrieval behaviour configuration.
type RetrievalSettings struct {
	// TopK is the default number of passages returned.
	TopK int

	// Dedupe collapses multiple passages from the same source and page
	// to the best-ranked one. Off by default: every ranked passage is
	// returned.
	Dedupe bool
}

// RetrySettings holds the backoff policy applied to provider calls.
type RetrySettings struct {
	MaxAttempts int           // total tries per call
	BaseDelay   time.Duration // wait before the second attempt
	MaxDelay    time.Duration // cap on exponential growth
	Jitter      float64       // random fraction added to each delay, in [0, 1]
}

// BatchSettings bounds a single embedding provider call.
type BatchSettings struct {
	MaxItems int // texts per call
	MaxChars int // combined text length per call
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Retry     RetrySettings
	Batch     BatchSettings
}

// DefaultAppSettings returns settings with sensible defaults. Cloud
// API keys are left empty; they are read from the environment at
// startup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		LLM: LLMSettings{
			Provider: AIProviderAnthropic,
			Model:    "claude-sonnet-4-5",
		},
		Chunking:  ChunkingSettings{Size: 1000, Overlap: 200},
		Retrieval: RetrievalSettings{TopK: 5},
		Retry: RetrySettings{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Jitter:      0.1,
		},
		Batch: BatchSettings{MaxItems: 100, MaxChars: 300_000},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
// Anthropic has no embeddings endpoint and is deliberately absent.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// DefaultEmbeddingModels returns default models per embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models per generation provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-sonnet-4-5",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// ollama
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// openai
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration. Config is
// carried as generic maps so new processors slot in without touching
// this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration keyed by
	// processor name.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a processor, nil when not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns a pipeline that works out of the box:
// chunking with the stock window followed by whitespace normalisation.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "whitespace"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {"chunk_size": 1000, "overlap": 200},
		},
	}
}
