package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// MetadataFilter restricts search hits by entry metadata.
// A nil filter admits every entry.
type MetadataFilter func(metadata map[string]string) bool

// AddResult reports what an Add call did.
type AddResult struct {
	// Inserted is the number of entries stored, including overwrites.
	Inserted int

	// SkippedIDs lists entries skipped as duplicates, in input order.
	SkippedIDs []string
}

// VectorIndex stores embeddings with their metadata and text, and
// answers exact cosine-similarity queries over them.
//
// Add is not atomic across entries: a failure partway leaves prior
// insertions in place. Callers requiring all-or-nothing semantics
// validate every entry before calling Add.
//
// The index is single-writer. Concurrent readers of a built index are
// safe; writers must be serialised by the caller.
type VectorIndex interface {
	// Add appends entries after validating dimension consistency and
	// id uniqueness. Duplicate ids are skipped and reported in the
	// result, not errors, unless the index was configured to
	// overwrite. The result is never nil: on error it covers the
	// entries processed before the failure.
	Add(ctx context.Context, entries []domain.IndexEntry) (*AddResult, error)

	// Search returns up to k entries ranked by descending cosine
	// similarity to the query vector. Ties break by insertion order.
	// When k exceeds the entry count, every entry is returned ranked.
	Search(ctx context.Context, query []float32, k int, filter MetadataFilter) ([]domain.SearchResult, error)

	// Count returns the current number of entries.
	Count() int

	// Stats summarises the index contents.
	Stats() domain.IndexStats

	// Save writes a durable snapshot of the index to path.
	Save(ctx context.Context, path string) error

	// Load replaces the index contents from a snapshot at path.
	// A missing file loads an empty index. A corrupt or
	// version-incompatible file fails without touching the current
	// contents.
	Load(ctx context.Context, path string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
