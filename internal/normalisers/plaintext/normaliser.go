package plaintext

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "plaintext"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt"}
}

// Normalise converts a raw file to a document with a single unpaginated
// section holding the full text. Chunking is handled by the
// post-processor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Document{
		Source: raw.Source,
		URI:    raw.Path,
		Sections: []domain.Section{
			{Text: string(raw.Content)},
		},
		Metadata: map[string]string{
			"format": "plaintext",
		},
		IngestedAt: time.Now(),
	}, nil
}
