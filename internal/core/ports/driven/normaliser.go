package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Normaliser transforms raw corpus files into documents.
// Each normaliser handles specific file extensions.
type Normaliser interface {
	// Name returns the normaliser name for logging.
	Name() string

	// Extensions returns the lower-case file extensions this
	// normaliser handles, with the leading dot (e.g. ".md").
	Extensions() []string

	// Normalise transforms a raw file into a document with its
	// sections populated. Chunking is handled by the post-processor
	// pipeline, not here.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry selects the normaliser for a corpus file.
type NormaliserRegistry interface {
	// Register adds a normaliser for its declared extensions.
	// Later registrations win on conflict.
	Register(n Normaliser)

	// ForPath returns the normaliser for the file's extension.
	// Returns domain.ErrUnsupportedFormat when none is registered.
	ForPath(path string) (Normaliser, error)

	// Extensions returns every registered extension, sorted.
	Extensions() []string
}
