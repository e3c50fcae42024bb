package domain

import "time"

// Document represents normalised source text ready for chunking.
// It is the canonical representation after format normalisation.
type Document struct {
	// Source is the logical identifier of the originating document.
	// Chunk ids are namespaced by this value.
	Source string

	// URI is the original location (usually a file path).
	URI string

	// Sections hold the extracted text in order. Plain formats yield a
	// single section; paginated extractions yield one section per page.
	Sections []Section

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]string

	// IngestedAt is when the document entered the pipeline.
	IngestedAt time.Time
}

// Section is a contiguous run of extracted text with optional page
// attribution. Page is nil for unpaginated formats.
type Section struct {
	Text string
	Page *int
}

// Text returns the concatenated text of all sections.
func (d *Document) Text() string {
	if len(d.Sections) == 1 {
		return d.Sections[0].Text
	}
	var out string
	for i, s := range d.Sections {
		if i > 0 {
			out += "\n"
		}
		out += s.Text
	}
	return out
}

// Chunk represents a retrievable segment of a document.
// Chunks are created once during ingestion and are immutable; a source
// is re-chunked only by full re-ingestion.
type Chunk struct {
	// ID is the unique identifier, derived deterministically from
	// Source and Sequence so re-chunking identical input reproduces it.
	ID string

	// Text is the segment content. Never empty.
	Text string

	// Source is the originating document identifier.
	Source string

	// Page is the page the segment was extracted from, nil if the
	// source format is unpaginated.
	Page *int

	// Sequence is the strictly increasing ordinal within the source.
	Sequence int
}

// EmbeddingRecord pairs a chunk with its vector representation.
// Produced by the embedding client, owned by the vector index afterwards.
type EmbeddingRecord struct {
	ChunkID   string
	Vector    []float32
	Dimension int
}
