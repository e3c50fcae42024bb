// Package postprocessors turns normalised documents into index-ready
// chunks. Processors are small single-purpose stages composed into a
// pipeline from configuration.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Pipeline runs processors in sequence over one document. The first
// stage sees nil chunks and is expected to create them; later stages
// receive the previous stage's output.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline composes a pipeline from the given processors, run in
// argument order.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: processors}
}

// Process feeds doc through every stage and returns the final chunks.
// A stage failure aborts the run with the stage's name attached.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		chunks = out
	}
	return chunks, nil
}

// Add appends a stage after the existing ones.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.stages = append(p.stages, processor)
}

// Len reports the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}
