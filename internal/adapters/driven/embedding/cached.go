// Package embedding provides provider-independent embedding plumbing.
// CachedService wraps any embedding service with an in-memory cache so
// that re-ingesting unchanged content never pays for the same vector
// twice.
package embedding

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metering"
)

// Ensure CachedService implements the interface.
var _ driven.EmbeddingService = (*CachedService)(nil)

// CachedService decorates an embedding service with a cache keyed by
// the hash of each text's normalized content. Texts that differ only
// in whitespace share one entry; texts embedded under a different
// model never collide. The cache holds its own copies and hands out
// fresh copies on hits, so callers and cache never alias.
type CachedService struct {
	inner driven.EmbeddingService
	usage *metering.Accumulator

	mu    sync.Mutex
	cache map[string][]float32
}

// NewCachedService wraps inner with a cache. The accumulator receives
// a cache hit for every lookup that avoids a provider call; nil
// disables hit counting.
func NewCachedService(inner driven.EmbeddingService, usage *metering.Accumulator) *CachedService {
	return &CachedService{
		inner: inner,
		usage: usage,
		cache: make(map[string][]float32),
	}
}

// Embed returns the cached vector for text when present, otherwise
// delegates to the wrapped service and caches the result.
func (s *CachedService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(s.inner.ModelName(), text)

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		s.recordHit()
		return copyVector(cached), nil
	}

	vector, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = copyVector(vector)
	s.mu.Unlock()

	return vector, nil
}

// EmbedBatch serves each text from the cache when possible and
// forwards only the misses to the wrapped service in one call.
// Results come back in input order regardless of how they were
// satisfied. If the provider call fails, no results are returned and
// nothing new is cached.
func (s *CachedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string
	hits := 0

	s.mu.Lock()
	for i, text := range texts {
		keys[i] = cacheKey(s.inner.ModelName(), text)
		if cached, ok := s.cache[keys[i]]; ok {
			results[i] = copyVector(cached)
			hits++
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	s.mu.Unlock()

	for i := 0; i < hits; i++ {
		s.recordHit()
	}

	if len(missTexts) == 0 {
		logger.Debug("embedding cache: served all %d texts from cache", len(texts))
		return results, nil
	}

	vectors, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for j, idx := range missIdx {
		results[idx] = vectors[j]
		s.cache[keys[idx]] = copyVector(vectors[j])
	}
	s.mu.Unlock()

	if hits > 0 {
		logger.Debug("embedding cache: %d hits, %d embedded", hits, len(missTexts))
	}
	return results, nil
}

// Size returns the number of cached vectors.
func (s *CachedService) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Dimensions returns the embedding vector size.
func (s *CachedService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *CachedService) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the wrapped service is reachable.
func (s *CachedService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources held by the wrapped service.
func (s *CachedService) Close() error {
	return s.inner.Close()
}

func (s *CachedService) recordHit() {
	if s.usage != nil {
		s.usage.RecordCacheHit()
	}
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
