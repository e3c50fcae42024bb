package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService answers similarity queries against the vector index.
type RetrievalService struct {
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	defaults         domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service. The defaults
// fill in option fields the caller leaves zero.
func NewRetrievalService(
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	defaults domain.RetrievalSettings,
) *RetrievalService {
	if defaults.TopK <= 0 {
		defaults.TopK = 5
	}
	return &RetrievalService{
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		defaults:         defaults,
	}
}

// Retrieve embeds the question and returns the top-k passages ranked by
// cosine similarity. An empty index yields empty results, not an error.
func (s *RetrievalService) Retrieve(
	ctx context.Context, question string, opts domain.RetrieveOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Question: %q", question)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	k := opts.K
	if k <= 0 {
		k = s.defaults.TopK
	}
	dedupe := opts.Dedupe || s.defaults.Dedupe
	logger.Debug("K: %d, Source filter: %q, Dedupe: %t", k, opts.Source, dedupe)

	// Empty index is a valid state, not a failure.
	if s.vectorIndex.Count() == 0 {
		logger.Debug("Index is empty, returning no results")
		return []domain.SearchResult{}, nil
	}

	logger.Debug("Generating question embedding...")
	query, err := s.embeddingService.Embed(ctx, question)
	if err != nil {
		logger.Warn("Question embedding failed: %v", err)
		return nil, fmt.Errorf("embed question: %w", err)
	}
	logger.Debug("Question embedding: %d dimensions", len(query))

	var filter driven.MetadataFilter
	if opts.Source != "" {
		source := opts.Source
		filter = func(meta map[string]string) bool {
			return meta[domain.MetaSource] == source
		}
	}

	// When collapsing by source+page the index must yield spare hits,
	// otherwise the final list comes up short of k.
	internalK := k
	if dedupe {
		internalK = k * 3
	}

	results, err := s.vectorIndex.Search(ctx, query, internalK, filter)
	if err != nil {
		logger.Warn("Index search failed: %v", err)
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Raw results: %d", len(results))

	if dedupe {
		results = dedupeBySourcePage(results)
		logger.Debug("After dedupe: %d", len(results))
	}

	if len(results) > k {
		results = results[:k]
	}
	logger.Info("Final results: %d", len(results))

	return results, nil
}

// dedupeBySourcePage keeps the best-ranked passage per source and page.
// Input is already sorted by descending score, so the first hit for a
// key wins.
func dedupeBySourcePage(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]domain.SearchResult, 0, len(results))

	for _, r := range results {
		key := r.Source() + "\x00" + r.Page()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}

	return out
}
