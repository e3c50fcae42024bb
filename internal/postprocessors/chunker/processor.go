// Package chunker provides a fixed-size overlapping text chunking
// processor with deterministic chunk ids.
package chunker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// idNamespace is the fixed root namespace for chunk ids. Ids are
// UUIDv5 digests of the sequence inside a per-source namespace, so
// identical text at the same position in different sources still gets
// a distinct id, and re-chunking a source reproduces its ids exactly.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docqa://chunk"))

// ChunkID returns the deterministic id for a chunk of the given source
// at the given sequence.
func ChunkID(source string, sequence int) string {
	sourceNS := uuid.NewSHA1(idNamespace, []byte(source))
	return uuid.NewSHA1(sourceNS, []byte(strconv.Itoa(sequence))).String()
}

// Chunk splits text into overlapping windows of size characters,
// advancing by size-overlap each step. The final window may be shorter
// than size but never empty; once a window reaches the end of the text
// the walk stops. Empty or whitespace-only text yields zero chunks.
// Sizes are measured in runes so multi-byte text never splits inside a
// character.
//
// Sequence numbers start at seqStart and increase by one per chunk.
func Chunk(text, source string, size, overlap, seqStart int) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d, must be positive", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d, must satisfy 0 <= overlap < size", domain.ErrInvalidInput, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	total := len(runes)
	stride := size - overlap

	chunks := make([]domain.Chunk, 0, total/stride+1)
	seq := seqStart
	for start := 0; start < total; start += stride {
		end := start + size
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:       ChunkID(source, seq),
			Text:     string(runes[start:end]),
			Source:   source,
			Sequence: seq,
		})
		seq++

		if end == total {
			break
		}
	}

	return chunks, nil
}

// Processor splits document sections into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured window overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document sections into chunks. Input chunks are
// ignored; this processor creates new chunks from document content.
// Sequence numbers run continuously across sections so every chunk of
// a source has a unique, reproducible id. Page attribution carries
// over from the section that produced the chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	seq := 0
	for _, section := range doc.Sections {
		sectionChunks, err := Chunk(section.Text, doc.Source, p.chunkSize, p.overlap, seq)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Source, err)
		}
		for i := range sectionChunks {
			sectionChunks[i].Page = section.Page
		}
		seq += len(sectionChunks)
		chunks = append(chunks, sectionChunks...)
	}

	return chunks, nil
}
