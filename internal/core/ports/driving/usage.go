package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// UsageReporter exposes provider cost accounting.
type UsageReporter interface {
	// Report aggregates the usage log. Days restricts the report to
	// records from the most recent n days; zero means all.
	Report(ctx context.Context, days int) (*UsageReport, error)

	// Reset truncates the usage log and zeroes the in-process
	// accumulator.
	Reset(ctx context.Context) error
}

// UsageReport aggregates usage records for display.
type UsageReport struct {
	// Totals covers every record in the reporting window.
	Totals domain.UsageTotals

	// ByOperation breaks totals down per operation type.
	ByOperation map[domain.Operation]domain.UsageTotals

	// ByModel breaks totals down per provider model.
	ByModel map[string]domain.UsageTotals

	// Daily lists per-day totals, most recent first.
	Daily []DailyUsage

	// CacheHits is the in-process embedding cache hit count.
	CacheHits int
}

// DailyUsage is one day's aggregated usage.
type DailyUsage struct {
	Day    time.Time
	Totals domain.UsageTotals
}
