package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// --- Mock implementations for ingest testing ---
// Note: mockVectorIndex and mockEmbeddingService live in retrieval_test.go.

// mockResolver implements driven.CorpusResolver for testing.
type mockResolver struct {
	docs []domain.RawDocument
	errs []error
}

func (m *mockResolver) Resolve(ctx context.Context, _ []string) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, len(m.errs)+1)

	go func() {
		defer close(docs)
		defer close(errs)

		for _, err := range m.errs {
			errs <- err
		}
		for _, doc := range m.docs {
			select {
			case <-ctx.Done():
				return
			case docs <- doc:
			}
		}
	}()

	return docs, errs
}

// mockNormaliser implements driven.Normaliser for testing.
type mockNormaliser struct {
	err error
}

func (m *mockNormaliser) Name() string          { return "mock" }
func (m *mockNormaliser) Extensions() []string  { return []string{".txt"} }
func (m *mockNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{
		Source:   raw.Source,
		URI:      raw.Path,
		Sections: []domain.Section{{Text: string(raw.Content)}},
	}, nil
}

// mockRegistry implements driven.NormaliserRegistry for testing.
type mockRegistry struct {
	normalisers map[string]driven.Normaliser
}

func newMockRegistry(normalisers ...driven.Normaliser) *mockRegistry {
	r := &mockRegistry{normalisers: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

func (r *mockRegistry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.normalisers[ext] = n
	}
}

func (r *mockRegistry) ForPath(path string) (driven.Normaliser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if n, ok := r.normalisers[ext]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%s: %w", ext, domain.ErrUnsupportedFormat)
}

func (r *mockRegistry) Extensions() []string {
	exts := make([]string, 0, len(r.normalisers))
	for ext := range r.normalisers {
		exts = append(exts, ext)
	}
	return exts
}

// mockPipeline implements driven.PostProcessorPipeline for testing.
type mockPipeline struct {
	chunksPerDoc int
	processErr   error
}

func (m *mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if m.processErr != nil {
		return nil, m.processErr
	}
	n := m.chunksPerDoc
	if n == 0 {
		n = 2
	}
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:       fmt.Sprintf("%s-%d", doc.Source, i),
			Text:     doc.Text(),
			Source:   doc.Source,
			Sequence: i,
		}
	}
	return chunks, nil
}

// stubCacheCounter returns successive configured readings.
type stubCacheCounter struct {
	reads []int
	i     int
}

func (s *stubCacheCounter) CacheHits() int {
	if s.i < len(s.reads) {
		v := s.reads[s.i]
		s.i++
		return v
	}
	return 0
}

// --- Test helpers ---

func setupIngestTest(t *testing.T) (*mockVectorIndex, *mockEmbeddingService, *IngestService) {
	t.Helper()

	resolver := &mockResolver{docs: []domain.RawDocument{
		{Source: "a.txt", Path: "/corpus/a.txt", Content: []byte("alpha text")},
		{Source: "b.txt", Path: "/corpus/b.txt", Content: []byte("beta text")},
	}}
	index := &mockVectorIndex{}
	embed := &mockEmbeddingService{embedding: []float32{1, 0, 0}}
	snapshot := filepath.Join(t.TempDir(), "index.db")

	service := NewIngestService(resolver, newMockRegistry(&mockNormaliser{}), &mockPipeline{}, embed, index, snapshot)
	return index, embed, service
}

// --- Tests ---

func TestNewIngestService(t *testing.T) {
	_, _, service := setupIngestTest(t)
	require.NotNil(t, service)
}

func TestIngestService_Ingest_NoPaths(t *testing.T) {
	_, _, service := setupIngestTest(t)

	_, err := service.Ingest(context.Background(), nil, driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_Ingest_NoVectorIndex(t *testing.T) {
	service := NewIngestService(&mockResolver{}, newMockRegistry(), &mockPipeline{}, &mockEmbeddingService{}, nil, "x")

	_, err := service.Ingest(context.Background(), []string{"corpus"}, driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestIngestService_Ingest_NoEmbeddingService(t *testing.T) {
	service := NewIngestService(&mockResolver{}, newMockRegistry(), &mockPipeline{}, nil, &mockVectorIndex{}, "x")

	_, err := service.Ingest(context.Background(), []string{"corpus"}, driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngestService_Ingest_Success(t *testing.T) {
	index, _, service := setupIngestTest(t)

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 4, report.Chunks, "two chunks per document")
	assert.Equal(t, 4, report.Indexed)
	assert.Empty(t, report.Excluded)
	assert.Empty(t, report.BackupPath)

	require.Len(t, index.added, 2, "one Add per document")
	assert.Equal(t, service.snapshotPath, index.savedPath, "snapshot saved after indexing")

	entry := index.added[0][0]
	assert.Equal(t, "a.txt-0", entry.ID)
	assert.Equal(t, "a.txt", entry.Metadata[domain.MetaSource])
	assert.Equal(t, "alpha text", entry.Text)
}

func TestIngestService_Ingest_ExistingIndexWithoutRebuild(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.count = 10

	_, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild")
}

func TestIngestService_Ingest_RebuildBacksUpSnapshot(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.count = 10
	require.NoError(t, os.WriteFile(service.snapshotPath, []byte("old snapshot"), 0o600))

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{Rebuild: true})

	require.NoError(t, err)
	assert.True(t, index.cleared, "rebuild clears the index")
	require.NotEmpty(t, report.BackupPath)
	assert.True(t, strings.HasSuffix(report.BackupPath, ".bak"))

	backup, err := os.ReadFile(report.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "old snapshot", string(backup))
}

func TestIngestService_Ingest_RebuildWithoutSnapshotFile(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.count = 10

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{Rebuild: true})

	require.NoError(t, err)
	assert.Empty(t, report.BackupPath, "nothing to back up")
	assert.True(t, index.cleared)
}

func TestIngestService_Ingest_EmbedFailureExcludesDocument(t *testing.T) {
	index, embed, service := setupIngestTest(t)
	embed.embedErr = &domain.ProviderUnavailableError{Provider: "mock", StatusCode: 503}

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err, "exclusions are reported, not fatal")
	assert.Zero(t, report.Indexed)
	require.Len(t, report.Excluded, 4, "every chunk excluded with a reason")
	assert.Contains(t, report.Excluded[0].Reason, "embedding failed")
	assert.Equal(t, "a.txt", report.Excluded[0].Source)
	assert.Empty(t, index.added)
	assert.Equal(t, service.snapshotPath, index.savedPath, "snapshot still saved")
}

func TestIngestService_Ingest_DuplicateIDsReported(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.addResult = &driven.AddResult{Inserted: 1, SkippedIDs: []string{"a.txt-1"}}

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed, "one insert per document Add")
	require.Len(t, report.Excluded, 2)
	assert.Equal(t, "duplicate id", report.Excluded[0].Reason)
}

func TestIngestService_Ingest_AddFailureExcludesRemainder(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.addResult = &driven.AddResult{Inserted: 1}
	index.addErr = &domain.DimensionMismatchError{Want: 3, Got: 5}

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Excluded, 2, "unprocessed chunk per document excluded")
	assert.Contains(t, report.Excluded[0].Reason, "dimension mismatch")
}

func TestIngestService_Ingest_ResolverErrorsAreNotFatal(t *testing.T) {
	resolver := &mockResolver{
		docs: []domain.RawDocument{{Source: "a.txt", Path: "/corpus/a.txt", Content: []byte("alpha")}},
		errs: []error{errors.New("read /corpus/locked.txt: permission denied")},
	}
	index := &mockVectorIndex{}
	embed := &mockEmbeddingService{embedding: []float32{1}}
	snapshot := filepath.Join(t.TempDir(), "index.db")
	service := NewIngestService(resolver, newMockRegistry(&mockNormaliser{}), &mockPipeline{}, embed, index, snapshot)

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
}

func TestIngestService_Ingest_NothingFound(t *testing.T) {
	resolver := &mockResolver{}
	index := &mockVectorIndex{}
	embed := &mockEmbeddingService{embedding: []float32{1}}
	service := NewIngestService(resolver, newMockRegistry(&mockNormaliser{}), &mockPipeline{}, embed, index, "x")

	_, err := service.Ingest(context.Background(), []string{"/empty"}, driving.IngestOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestService_Ingest_OnlyErrorsSurfacesThem(t *testing.T) {
	resolver := &mockResolver{errs: []error{errors.New("stat /missing: no such file or directory")}}
	index := &mockVectorIndex{}
	embed := &mockEmbeddingService{embedding: []float32{1}}
	service := NewIngestService(resolver, newMockRegistry(&mockNormaliser{}), &mockPipeline{}, embed, index, "x")

	_, err := service.Ingest(context.Background(), []string{"/missing"}, driving.IngestOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing")
}

func TestIngestService_Ingest_UnsupportedFileSkipped(t *testing.T) {
	resolver := &mockResolver{docs: []domain.RawDocument{
		{Source: "a.txt", Path: "/corpus/a.txt", Content: []byte("alpha")},
		{Source: "pic.png", Path: "/corpus/pic.png", Content: []byte{0x89}},
	}}
	index := &mockVectorIndex{}
	embed := &mockEmbeddingService{embedding: []float32{1}}
	snapshot := filepath.Join(t.TempDir(), "index.db")
	service := NewIngestService(resolver, newMockRegistry(&mockNormaliser{}), &mockPipeline{}, embed, index, snapshot)

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 1, report.Sources, "unsupported file skipped")
	assert.Equal(t, 2, report.Indexed)
}

func TestIngestService_Ingest_SaveError(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.saveErr = errors.New("disk full")

	_, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")
}

func TestIngestService_Ingest_CacheHitsReported(t *testing.T) {
	_, _, service := setupIngestTest(t)
	service.SetCacheCounter(&stubCacheCounter{reads: []int{2, 5}})

	report, err := service.Ingest(context.Background(), []string{"/corpus"}, driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, report.CacheHits, "delta across the run")
}

func TestIngestService_Clear(t *testing.T) {
	index, _, service := setupIngestTest(t)
	require.NoError(t, os.WriteFile(service.snapshotPath, []byte("snapshot"), 0o600))

	err := service.Clear(context.Background())

	require.NoError(t, err)
	assert.True(t, index.cleared)
	assert.NoFileExists(t, service.snapshotPath)
}

func TestIngestService_Clear_NoSnapshotFile(t *testing.T) {
	index, _, service := setupIngestTest(t)

	err := service.Clear(context.Background())

	require.NoError(t, err)
	assert.True(t, index.cleared)
}

func TestIngestService_Stats(t *testing.T) {
	index, _, service := setupIngestTest(t)
	index.results = []domain.SearchResult{
		makeResult("c1", "a.txt", "", 0.9),
		makeResult("c2", "a.txt", "", 0.8),
		makeResult("c3", "b.txt", "", 0.7),
	}

	stats, err := service.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Sources["a.txt"])
	assert.Equal(t, 1, stats.Sources["b.txt"])
}
