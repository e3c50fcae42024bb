package cli

// Shared test doubles for the command tests. setupTestServices swaps
// every package-level service for a mock and marks the graph wired so
// PersistentPreRunE leaves it alone; the returned cleanup restores the
// previous state.

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// mockRetriever implements driving.Retriever for testing.
type mockRetriever struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(
	_ context.Context, _ string, opts domain.RetrieveOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockAnswerer implements driving.Answerer for testing.
type mockAnswerer struct {
	answer       *domain.Answer
	err          error
	lastQuestion string
}

func (m *mockAnswerer) Ask(
	_ context.Context, question string, _ domain.RetrieveOptions,
) (*domain.Answer, error) {
	m.lastQuestion = question
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// mockIngestor implements driving.Ingestor for testing.
type mockIngestor struct {
	report  *driving.IngestReport
	stats   *domain.IndexStats
	err     error
	cleared bool
}

func (m *mockIngestor) Ingest(
	_ context.Context, _ []string, _ driving.IngestOptions,
) (*driving.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockIngestor) Clear(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

func (m *mockIngestor) Stats(_ context.Context) (*domain.IndexStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// mockUsageReporter implements driving.UsageReporter for testing.
type mockUsageReporter struct {
	report      *driving.UsageReport
	err         error
	resetCalled bool
}

func (m *mockUsageReporter) Report(_ context.Context, _ int) (*driving.UsageReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockUsageReporter) Reset(_ context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.resetCalled = true
	return nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings     *domain.AppSettings
	getErr       error
	validateErr  error
	embedPingErr error
	llmPingErr   error

	savedEmbedding domain.AIProvider
	savedLLM       domain.AIProvider
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(
	provider domain.AIProvider, model, apiKey string,
) error {
	m.savedEmbedding = provider
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	if apiKey != "" {
		m.settings.Embedding.APIKey = apiKey
	}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(
	provider domain.AIProvider, model, apiKey string,
) error {
	m.savedLLM = provider
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	if apiKey != "" {
		m.settings.LLM.APIKey = apiKey
	}
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) GetPipelineConfig() domain.PipelineConfig {
	return domain.DefaultPipelineConfig()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embedPingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.llmPingErr
}

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	values map[string]any
	path   string
	setErr error
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if s, ok := m.values[key].(string); ok {
		return s
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	if n, ok := m.values[key].(int); ok {
		return n
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	if b, ok := m.values[key].(bool); ok {
		return b
	}
	return false
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	if f, ok := m.values[key].(float64); ok {
		return f
	}
	return 0
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	if s, ok := m.values[key].([]string); ok {
		return s
	}
	return nil
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string {
	if m.path == "" {
		return "/tmp/docqa-test/config.toml"
	}
	return m.path
}

// configuredTestSettings returns settings with both providers fully
// configured.
func configuredTestSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding.APIKey = "sk-embed-test-abcd1234"
	s.LLM.APIKey = "sk-llm-test-wxyz5678"
	return &s
}

func testSearchResults() []domain.SearchResult {
	return []domain.SearchResult{
		{
			ChunkID: "chunk-1",
			Text:    "Backups are retained for 30 days.",
			Metadata: map[string]string{
				domain.MetaSource: "policy.md",
				domain.MetaPage:   "2",
			},
			Score: 0.91,
		},
		{
			ChunkID: "chunk-2",
			Text:    "Restores require an admin role.",
			Metadata: map[string]string{
				domain.MetaSource: "runbook.md",
			},
			Score: 0.72,
		},
	}
}

func testAnswerResult() *domain.Answer {
	return &domain.Answer{
		Text:    "Backups are kept for 30 days.",
		Results: testSearchResults(),
		Usage:   domain.TokenUsage{InputTokens: 120, OutputTokens: 40},
	}
}

func testIngestReport() *driving.IngestReport {
	return &driving.IngestReport{
		Files:     3,
		Sources:   3,
		Chunks:    12,
		Indexed:   12,
		CacheHits: 4,
	}
}

func testIndexStats() *domain.IndexStats {
	return &domain.IndexStats{
		Count:      12,
		Dimensions: 1536,
		Sources: map[string]int{
			"policy.md":  7,
			"runbook.md": 5,
		},
	}
}

func testUsageReport() *driving.UsageReport {
	return &driving.UsageReport{
		Totals: domain.UsageTotals{Calls: 9, InputUnits: 4200, OutputUnits: 310, Cost: 0.0135},
		ByOperation: map[domain.Operation]domain.UsageTotals{
			domain.OpEmbed:    {Calls: 7, InputUnits: 3900, Cost: 0.0004},
			domain.OpGenerate: {Calls: 2, InputUnits: 300, OutputUnits: 310, Cost: 0.0131},
		},
		ByModel: map[string]domain.UsageTotals{
			"text-embedding-3-small": {Calls: 7, InputUnits: 3900, Cost: 0.0004},
			"claude-sonnet-4-5":      {Calls: 2, InputUnits: 300, OutputUnits: 310, Cost: 0.0131},
		},
		Daily: []driving.DailyUsage{
			{
				Day:    time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
				Totals: domain.UsageTotals{Calls: 9, InputUnits: 4200, OutputUnits: 310, Cost: 0.0135},
			},
		},
		CacheHits: 4,
	}
}

func setupTestServices() func() {
	oldIngest := ingestService
	oldRetrieval := retrievalService
	oldAnswer := answerService
	oldUsage := usageService
	oldSettings := settingsService
	oldConfigStore := configStore
	oldAccumulator := usageAccumulator
	oldSnapshotPath := snapshotPath
	oldWired := wired

	ingestService = &mockIngestor{report: testIngestReport(), stats: testIndexStats()}
	retrievalService = &mockRetriever{results: testSearchResults()}
	answerService = &mockAnswerer{answer: testAnswerResult()}
	usageService = &mockUsageReporter{report: testUsageReport()}
	settingsService = &mockSettingsService{settings: configuredTestSettings()}
	configStore = &mockConfigStore{values: map[string]any{}}
	usageAccumulator = nil
	snapshotPath = ""
	wired = true

	return func() {
		ingestService = oldIngest
		retrievalService = oldRetrieval
		answerService = oldAnswer
		usageService = oldUsage
		settingsService = oldSettings
		configStore = oldConfigStore
		usageAccumulator = oldAccumulator
		snapshotPath = oldSnapshotPath
		wired = oldWired
	}
}
