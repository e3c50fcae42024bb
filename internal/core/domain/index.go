package domain

import "strconv"

// Metadata keys attached to index entries.
const (
	MetaSource   = "source"
	MetaPage     = "page"
	MetaSequence = "sequence"
)

// IndexStats summarises index contents for reporting.
type IndexStats struct {
	// Count is the number of stored entries.
	Count int

	// Dimensions is the vector dimension, zero while empty.
	Dimensions int

	// Sources maps each source to its entry count.
	Sources map[string]int
}

// IndexEntry is the unit stored in and retrieved from the vector index.
// The index owns four parallel collections (ids, vectors, metadata,
// texts) which always have equal length and matching order.
type IndexEntry struct {
	// ID is the chunk id. Unique within the index.
	ID string

	// Vector is the embedding. All vectors in an index share one
	// dimension.
	Vector []float32

	// Metadata maps string keys to scalar string values.
	Metadata map[string]string

	// Text is the chunk content returned with search hits.
	Text string
}

// NewIndexEntry builds an entry from a chunk and its embedding record.
func NewIndexEntry(chunk Chunk, rec EmbeddingRecord) IndexEntry {
	meta := map[string]string{
		MetaSource:   chunk.Source,
		MetaSequence: strconv.Itoa(chunk.Sequence),
	}
	if chunk.Page != nil {
		meta[MetaPage] = strconv.Itoa(*chunk.Page)
	}
	return IndexEntry{
		ID:       chunk.ID,
		Vector:   rec.Vector,
		Metadata: meta,
		Text:     chunk.Text,
	}
}
