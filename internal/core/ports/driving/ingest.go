package driving

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Ingestor builds and maintains the vector index from corpus files.
type Ingestor interface {
	// Ingest chunks, embeds, and indexes the given files and
	// directories, then saves a snapshot. Chunks whose embeddings
	// could not be produced are excluded and reported, never
	// silently dropped.
	Ingest(ctx context.Context, paths []string, opts IngestOptions) (*IngestReport, error)

	// Clear empties the index and removes its snapshot file.
	Clear(ctx context.Context) error

	// Stats reports the current index contents.
	Stats(ctx context.Context) (*domain.IndexStats, error)
}

// IngestOptions configures an ingestion run.
type IngestOptions struct {
	// Rebuild replaces the existing index, backing up the previous
	// snapshot file first. Without it, ingesting over a non-empty
	// index is an error.
	Rebuild bool
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// Files is the number of corpus files read.
	Files int

	// Sources is the number of documents ingested.
	Sources int

	// Chunks is the number of chunks produced.
	Chunks int

	// Indexed is the number of entries added to the index.
	Indexed int

	// CacheHits is the number of chunks embedded from cache.
	CacheHits int

	// Excluded lists chunks left out of the index with the reason.
	Excluded []ExcludedChunk

	// BackupPath is the pre-rebuild snapshot copy, empty when no
	// backup was taken.
	BackupPath string
}

// ExcludedChunk records a chunk that did not make it into the index.
type ExcludedChunk struct {
	ChunkID string
	Source  string
	Reason  string
}
