package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Config holds configuration for the index.
type Config struct {
	// Overwrite replaces the stored entry when an id is added again.
	// Default is to skip the duplicate and report it.
	Overwrite bool
}

// Index is an exact cosine-similarity index over embedding vectors.
// The zero dimension means the index is empty; the first added entry
// fixes the dimension for all subsequent entries.
type Index struct {
	mu        sync.RWMutex
	ids       []string
	vectors   [][]float32
	metadatas []map[string]string
	texts     []string
	byID      map[string]int
	dims      int
	overwrite bool
}

// New creates an empty index.
func New(cfg Config) *Index {
	return &Index{
		byID:      make(map[string]int),
		overwrite: cfg.Overwrite,
	}
}

// Add stores entries after validating dimension consistency and id
// uniqueness. A duplicate id is skipped and logged, not an error,
// unless the index was configured to overwrite. The call is not atomic:
// a dimension mismatch partway through leaves earlier entries in place.
// The index takes ownership of each stored entry's vector and metadata.
func (idx *Index) Add(ctx context.Context, entries []domain.IndexEntry) (*driven.AddResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	result := &driven.AddResult{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.ID == "" {
			return result, fmt.Errorf("entry with empty id: %w", domain.ErrInvalidInput)
		}
		if len(entry.Vector) == 0 {
			return result, fmt.Errorf("entry %s has an empty vector: %w", entry.ID, domain.ErrInvalidInput)
		}

		if idx.dims == 0 {
			idx.dims = len(entry.Vector)
		} else if len(entry.Vector) != idx.dims {
			return result, &domain.DimensionMismatchError{Want: idx.dims, Got: len(entry.Vector)}
		}

		if pos, exists := idx.byID[entry.ID]; exists {
			if !idx.overwrite {
				logger.Warn("vector index: skipping duplicate entry id %s", entry.ID)
				result.SkippedIDs = append(result.SkippedIDs, entry.ID)
				continue
			}
			idx.setAt(pos, entry)
			result.Inserted++
			continue
		}

		idx.append(entry)
		result.Inserted++
	}

	return result, nil
}

// Search returns up to k entries ranked by descending cosine similarity
// to the query vector. Ties break by insertion order, earlier entries
// first, so results are deterministic. When k is at least the entry
// count, every admitted entry is returned ranked.
func (idx *Index) Search(ctx context.Context, query []float32, k int, filter driven.MetadataFilter) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.ids) == 0 {
		return nil, nil
	}
	if len(query) != idx.dims {
		return nil, &domain.DimensionMismatchError{Want: idx.dims, Got: len(query)}
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, len(idx.ids))
	for pos := range idx.ids {
		if filter != nil && !filter(idx.metadatas[pos]) {
			continue
		}
		candidates = append(candidates, scored{
			pos:   pos,
			score: cosineSimilarity(query, idx.vectors[pos]),
		})
	}

	// Candidates were collected in insertion order, so a stable sort
	// keeps that order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	results := make([]domain.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.SearchResult{
			ChunkID:  idx.ids[c.pos],
			Text:     idx.texts[c.pos],
			Metadata: copyMetadata(idx.metadatas[c.pos]),
			Score:    c.score,
		}
	}

	return results, nil
}

// Count returns the current number of entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Stats summarises the index contents.
func (idx *Index) Stats() domain.IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := domain.IndexStats{
		Count:      len(idx.ids),
		Dimensions: idx.dims,
		Sources:    make(map[string]int),
	}
	for _, meta := range idx.metadatas {
		if src, ok := meta[domain.MetaSource]; ok {
			stats.Sources[src]++
		}
	}
	return stats
}

// Clear removes every entry. The next Add fixes a fresh dimension.
func (idx *Index) Clear(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reset()
	return nil
}

// append adds an entry at the next position. Caller must hold the
// write lock.
func (idx *Index) append(entry domain.IndexEntry) {
	idx.byID[entry.ID] = len(idx.ids)
	idx.ids = append(idx.ids, entry.ID)
	idx.vectors = append(idx.vectors, entry.Vector)
	idx.metadatas = append(idx.metadatas, entry.Metadata)
	idx.texts = append(idx.texts, entry.Text)
}

// setAt replaces the entry at a position, preserving its insertion
// order. Caller must hold the write lock.
func (idx *Index) setAt(pos int, entry domain.IndexEntry) {
	idx.ids[pos] = entry.ID
	idx.vectors[pos] = entry.Vector
	idx.metadatas[pos] = entry.Metadata
	idx.texts[pos] = entry.Text
}

// reset empties the collections. Caller must hold the write lock.
func (idx *Index) reset() {
	idx.ids = nil
	idx.vectors = nil
	idx.metadatas = nil
	idx.texts = nil
	idx.byID = make(map[string]int)
	idx.dims = 0
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|) in float64 for
// stability. A zero-magnitude vector yields 0 with any other vector
// rather than a division error.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// copyMetadata clones entry metadata for a result, so callers cannot
// reach back into index storage.
func copyMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
