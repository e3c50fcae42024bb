// Package whitespace provides a chunk post-processor that collapses
// whitespace runs so formatting artefacts never reach the embedding
// provider.
package whitespace

import (
	"context"
	"strings"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Processor normalises whitespace in chunk text.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a new whitespace processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process collapses every whitespace run in each chunk to a single
// space and trims the ends. Chunks that normalise to nothing are
// dropped; ids and sequences of the kept chunks are untouched.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		chunk.Text = Normalise(chunk.Text)
		if chunk.Text == "" {
			continue
		}
		out = append(out, chunk)
	}
	return out, nil
}

// Normalise collapses whitespace runs to single spaces and trims the
// ends.
func Normalise(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
