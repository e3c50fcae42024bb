package mcp

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrieveOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

// mockAnswerer is a mock implementation of driving.Answerer.
type mockAnswerer struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
}

func (m *mockAnswerer) Ask(
	_ context.Context,
	question string,
	_ domain.RetrieveOptions,
) (*domain.Answer, error) {
	m.lastQuestion = question
	return m.answer, m.err
}

// mockIngestor is a mock implementation of driving.Ingestor.
type mockIngestor struct {
	report *driving.IngestReport
	stats  *domain.IndexStats
	err    error
}

func (m *mockIngestor) Ingest(
	_ context.Context,
	_ []string,
	_ driving.IngestOptions,
) (*driving.IngestReport, error) {
	return m.report, m.err
}

func (m *mockIngestor) Clear(_ context.Context) error {
	return m.err
}

func (m *mockIngestor) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

// mockUsageReporter is a mock implementation of driving.UsageReporter.
type mockUsageReporter struct {
	report *driving.UsageReport
	err    error
}

func (m *mockUsageReporter) Report(_ context.Context, _ int) (*driving.UsageReport, error) {
	return m.report, m.err
}

func (m *mockUsageReporter) Reset(_ context.Context) error {
	return m.err
}
