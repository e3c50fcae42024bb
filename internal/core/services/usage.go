package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/metering"
)

// Ensure UsageService implements the interface.
var _ driving.UsageReporter = (*UsageService)(nil)

// UsageService aggregates provider usage for reporting. The log spans
// runs; the accumulator covers the current process and is the source of
// cache-hit counts.
type UsageService struct {
	usageLog    driven.UsageLog
	accumulator *metering.Accumulator
	now         func() time.Time
}

// NewUsageService creates a new usage service. Both collaborators are
// optional: without a log the report covers the current process only,
// without an accumulator cache hits read as zero.
func NewUsageService(usageLog driven.UsageLog, accumulator *metering.Accumulator) *UsageService {
	return &UsageService{
		usageLog:    usageLog,
		accumulator: accumulator,
		now:         time.Now,
	}
}

// Report aggregates the usage log into totals, per-operation and
// per-model breakdowns, and a per-day series, most recent day first.
func (s *UsageService) Report(_ context.Context, days int) (*driving.UsageReport, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}

	if days > 0 {
		cutoff := s.now().AddDate(0, 0, -days)
		records = filterSince(records, cutoff)
	}

	report := &driving.UsageReport{
		ByOperation: make(map[domain.Operation]domain.UsageTotals),
		ByModel:     make(map[string]domain.UsageTotals),
	}
	daily := make(map[time.Time]domain.UsageTotals)

	for _, rec := range records {
		report.Totals.Add(rec)

		opTotals := report.ByOperation[rec.Operation]
		opTotals.Add(rec)
		report.ByOperation[rec.Operation] = opTotals

		modelTotals := report.ByModel[rec.Model]
		modelTotals.Add(rec)
		report.ByModel[rec.Model] = modelTotals

		day := truncateToDay(rec.Timestamp)
		dayTotals := daily[day]
		dayTotals.Add(rec)
		daily[day] = dayTotals
	}

	report.Daily = make([]driving.DailyUsage, 0, len(daily))
	for day, totals := range daily {
		report.Daily = append(report.Daily, driving.DailyUsage{Day: day, Totals: totals})
	}
	sort.Slice(report.Daily, func(i, j int) bool {
		return report.Daily[i].Day.After(report.Daily[j].Day)
	})

	if s.accumulator != nil {
		report.CacheHits = s.accumulator.CacheHits()
	}

	return report, nil
}

// Reset truncates the usage log and zeroes the in-process accumulator.
func (s *UsageService) Reset(_ context.Context) error {
	if s.usageLog != nil {
		if err := s.usageLog.Truncate(); err != nil {
			return fmt.Errorf("truncate usage log: %w", err)
		}
	}
	if s.accumulator != nil {
		s.accumulator.Reset()
	}
	return nil
}

// readRecords prefers the durable log; without one the in-process
// accumulator is all there is.
func (s *UsageService) readRecords() ([]domain.UsageRecord, error) {
	if s.usageLog != nil {
		records, err := s.usageLog.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read usage log: %w", err)
		}
		return records, nil
	}
	if s.accumulator != nil {
		return s.accumulator.Records(), nil
	}
	return nil, nil
}

// filterSince keeps records stamped at or after the cutoff.
func filterSince(records []domain.UsageRecord, cutoff time.Time) []domain.UsageRecord {
	out := make([]domain.UsageRecord, 0, len(records))
	for _, rec := range records {
		if !rec.Timestamp.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// truncateToDay drops the time-of-day, keeping the record's location.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
