// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// EmbedBatch preserves input order and length: result[i] is the vector
// for texts[i]. A batch either succeeds completely or fails with no
// vectors returned; implementations absorb retryable provider failures
// up to their retry ceiling before giving up.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Caching decorators over either
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text.
	// Equivalent to a one-item EmbedBatch.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, grouping
	// them into provider calls bounded by the provider's count and
	// combined-size limits.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	// Every vector the service produces has this dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
