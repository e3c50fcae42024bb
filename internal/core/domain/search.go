package domain

// RetrieveOptions configures a retrieval query.
type RetrieveOptions struct {
	// K is the maximum number of passages to return.
	K int

	// Source restricts results to a single source document.
	Source string

	// Dedupe keeps only the best-scoring chunk per source and page.
	// Default is off: multiple chunks from one page are distinct
	// passages.
	Dedupe bool
}

// SearchResult represents a single retrieval hit. Ephemeral, produced
// per query and never persisted.
type SearchResult struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Text is the chunk content.
	Text string

	// Metadata carries the entry metadata (source, page, sequence).
	Metadata map[string]string

	// Score is the cosine similarity to the query vector, in [-1, 1].
	Score float64
}

// Distance returns the cosine distance, 1 - Score.
func (r SearchResult) Distance() float64 {
	return 1 - r.Score
}

// Source returns the source metadata value, empty when absent.
func (r SearchResult) Source() string {
	return r.Metadata[MetaSource]
}

// Page returns the page metadata value, empty when absent.
func (r SearchResult) Page() string {
	return r.Metadata[MetaPage]
}
