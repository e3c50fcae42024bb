package driving

import "github.com/custodia-labs/docqa-cli/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves the current settings; Save persists them.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider and SetLLMProvider switch a single provider
	// and persist the change.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the current settings are internally
	// consistent without contacting any provider.
	Validate() error

	// GetDefaults returns the stock settings.
	GetDefaults() domain.AppSettings

	// GetPipelineConfig returns the post-processor pipeline
	// configuration derived from the chunking settings.
	GetPipelineConfig() domain.PipelineConfig

	// ValidateEmbeddingConfig and ValidateLLMConfig go further than
	// Validate: they ping the configured provider.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
