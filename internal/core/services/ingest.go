package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// CacheHitCounter reports embeddings served from cache. Implemented by
// the usage accumulator.
type CacheHitCounter interface {
	CacheHits() int
}

// ingestedDoc holds one normalised document's chunks awaiting embedding.
type ingestedDoc struct {
	source string
	chunks []domain.Chunk
}

// IngestService builds the vector index from corpus files.
type IngestService struct {
	resolver         driven.CorpusResolver
	registry         driven.NormaliserRegistry
	pipeline         driven.PostProcessorPipeline
	embeddingService driven.EmbeddingService
	vectorIndex      driven.VectorIndex
	snapshotPath     string

	cacheCounter CacheHitCounter
	now          func() time.Time
}

// NewIngestService creates a new ingest service. snapshotPath is where
// the index snapshot is saved after every successful run.
func NewIngestService(
	resolver driven.CorpusResolver,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embeddingService driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	snapshotPath string,
) *IngestService {
	return &IngestService{
		resolver:         resolver,
		registry:         registry,
		pipeline:         pipeline,
		embeddingService: embeddingService,
		vectorIndex:      vectorIndex,
		snapshotPath:     snapshotPath,
		now:              time.Now,
	}
}

// SetCacheCounter sets the counter used to report embedding cache hits.
func (s *IngestService) SetCacheCounter(c CacheHitCounter) {
	s.cacheCounter = c
}

// Ingest chunks, embeds, and indexes the given files and directories,
// then saves a snapshot. Chunks whose embeddings could not be produced
// are excluded and reported, never silently dropped.
//
//nolint:gocognit,gocyclo // Orchestration function with necessary sequential steps
func (s *IngestService) Ingest(
	ctx context.Context, paths []string, opts driving.IngestOptions,
) (*driving.IngestReport, error) {
	logger.Section("Corpus Ingestion")

	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", domain.ErrInvalidInput)
	}

	report := &driving.IngestReport{}

	// 1. REFUSE TO INGEST OVER AN EXISTING INDEX unless rebuilding.
	// A rebuild backs up the previous snapshot before clearing.
	if opts.Rebuild {
		backup, err := s.backupSnapshot()
		if err != nil {
			return nil, fmt.Errorf("back up snapshot: %w", err)
		}
		report.BackupPath = backup
		if err := s.vectorIndex.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear index: %w", err)
		}
	} else if count := s.vectorIndex.Count(); count > 0 {
		return nil, fmt.Errorf("index already holds %d entries, rebuild to replace it", count)
	}

	// 2. RESOLVE AND PROCESS CORPUS FILES
	docs, err := s.collectDocuments(ctx, paths, report)
	if err != nil {
		return nil, err
	}
	logger.Info("Corpus resolved: %d files, %d documents, %d chunks",
		report.Files, report.Sources, report.Chunks)

	// 3. EMBED AND INDEX, one document at a time so a provider failure
	// excludes that document's chunks and the rest proceed.
	cacheBefore := s.cacheHits()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.indexDocument(ctx, doc, report)
	}
	report.CacheHits = s.cacheHits() - cacheBefore

	// 4. SAVE SNAPSHOT
	if err := s.vectorIndex.Save(ctx, s.snapshotPath); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	logger.Info("Ingestion complete: %d indexed, %d excluded, %d cache hits",
		report.Indexed, len(report.Excluded), report.CacheHits)
	return report, nil
}

// Clear empties the index and removes its snapshot file.
func (s *IngestService) Clear(ctx context.Context) error {
	if s.vectorIndex == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if err := s.vectorIndex.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if err := os.Remove(s.snapshotPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	logger.Info("Index cleared")
	return nil
}

// Stats reports the current index contents.
func (s *IngestService) Stats(_ context.Context) (*domain.IndexStats, error) {
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	stats := s.vectorIndex.Stats()
	return &stats, nil
}

// collectDocuments streams corpus files from the resolver, normalises
// and chunks each one. Per-file failures are logged and skipped; the
// run fails only when nothing could be read at all.
func (s *IngestService) collectDocuments(
	ctx context.Context, paths []string, report *driving.IngestReport,
) ([]ingestedDoc, error) {
	docsCh, errsCh := s.resolver.Resolve(ctx, paths)

	var docs []ingestedDoc
	var resolveErrs []error

	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			logger.Warn("Corpus: %v", err)
			resolveErrs = append(resolveErrs, err)

		case rawDoc, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}

			logger.Debug("Processing: %s", rawDoc.Path)
			report.Files++
			chunks, err := s.processOneFile(ctx, &rawDoc)
			if err != nil {
				if errors.Is(err, domain.ErrUnsupportedFormat) {
					logger.Debug("Skipping %s: %v", rawDoc.Path, err)
				} else {
					logger.Warn("Failed to process %s: %v", rawDoc.Path, err)
				}
				continue
			}
			report.Sources++
			report.Chunks += len(chunks)
			if len(chunks) > 0 {
				docs = append(docs, ingestedDoc{source: rawDoc.Source, chunks: chunks})
			}
		}
	}

	if report.Files == 0 {
		if len(resolveErrs) > 0 {
			return nil, errors.Join(resolveErrs...)
		}
		return nil, fmt.Errorf("no corpus files found: %w", domain.ErrNotFound)
	}
	return docs, nil
}

// processOneFile runs the normalise-then-chunk pipeline for one file.
func (s *IngestService) processOneFile(ctx context.Context, raw *domain.RawDocument) ([]domain.Chunk, error) {
	// 1. NORMALISE (produces Document with Sections)
	normaliser, err := s.registry.ForPath(raw.Path)
	if err != nil {
		return nil, err
	}
	doc, err := normaliser.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	// 2. RUN POST-PROCESSOR PIPELINE (produces Chunks)
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}
	return chunks, nil
}

// indexDocument embeds one document's chunks and adds them to the
// index, recording every chunk that did not make it in.
func (s *IngestService) indexDocument(ctx context.Context, doc ingestedDoc, report *driving.IngestReport) {
	texts := make([]string, len(doc.chunks))
	for i, chunk := range doc.chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Embedding failed for %s: %v", doc.source, err)
		s.excludeChunks(report, doc.chunks, fmt.Sprintf("embedding failed: %v", err))
		return
	}

	dims := s.embeddingService.Dimensions()
	entries := make([]domain.IndexEntry, len(doc.chunks))
	for i, chunk := range doc.chunks {
		entries[i] = domain.NewIndexEntry(chunk, domain.EmbeddingRecord{
			ChunkID:   chunk.ID,
			Vector:    vectors[i],
			Dimension: dims,
		})
	}

	result, err := s.vectorIndex.Add(ctx, entries)
	report.Indexed += result.Inserted
	for _, id := range result.SkippedIDs {
		report.Excluded = append(report.Excluded, driving.ExcludedChunk{
			ChunkID: id,
			Source:  doc.source,
			Reason:  "duplicate id",
		})
	}
	if err != nil {
		// Add stops at the first bad entry; everything from there on
		// was never considered.
		processed := result.Inserted + len(result.SkippedIDs)
		logger.Warn("Indexing failed for %s: %v", doc.source, err)
		s.excludeChunks(report, doc.chunks[processed:], err.Error())
	}
}

// excludeChunks records chunks left out of the index.
func (s *IngestService) excludeChunks(report *driving.IngestReport, chunks []domain.Chunk, reason string) {
	for _, chunk := range chunks {
		report.Excluded = append(report.Excluded, driving.ExcludedChunk{
			ChunkID: chunk.ID,
			Source:  chunk.Source,
			Reason:  reason,
		})
	}
}

// backupSnapshot copies the current snapshot aside before a rebuild.
// Returns the backup path, empty when there was nothing to back up.
func (s *IngestService) backupSnapshot() (string, error) {
	data, err := os.ReadFile(s.snapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	backupPath := fmt.Sprintf("%s.%s.bak", s.snapshotPath, s.now().Format("20060102-150405"))
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", err
	}
	logger.Info("Previous snapshot backed up to %s", backupPath)
	return backupPath, nil
}

func (s *IngestService) cacheHits() int {
	if s.cacheCounter == nil {
		return 0
	}
	return s.cacheCounter.CacheHits()
}
