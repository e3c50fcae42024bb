package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// PostProcessor is one stage of the chunking pipeline. A stage that
// creates chunks (the chunker) receives nil and returns fresh chunks;
// a stage that rewrites chunks receives and returns the slice. Name
// identifies the stage in logs and configuration.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs a document through every stage in order
// and returns the final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
