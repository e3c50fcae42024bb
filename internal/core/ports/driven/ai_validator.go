package driven

import "github.com/custodia-labs/docqa-cli/internal/core/domain"

// AIConfigValidator checks provider configurations by probing the
// underlying AI services. Both methods return nil for configurations
// that are valid or simply absent, so callers can validate a partial
// setup without special-casing.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
