package metering

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// recordingSink is a UsageLog that captures appended records.
type recordingSink struct {
	mu      sync.Mutex
	records []domain.UsageRecord
	err     error
}

func (s *recordingSink) Append(rec domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) ReadAll() ([]domain.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UsageRecord(nil), s.records...), nil
}

func (s *recordingSink) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *recordingSink) Path() string { return ":memory:" }

func TestNewAccumulator(t *testing.T) {
	acc := NewAccumulator(nil)
	require.NotNil(t, acc)
	assert.Equal(t, domain.UsageTotals{}, acc.Totals())
	assert.Empty(t, acc.Records())
	assert.Zero(t, acc.CacheHits())
}

func TestAccumulator_Record(t *testing.T) {
	acc := NewAccumulator(nil)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	acc.now = func() time.Time { return fixed }

	rec := acc.Record(domain.OpEmbed, "text-embedding-3-small", 1000, 0)

	assert.Equal(t, domain.OpEmbed, rec.Operation)
	assert.Equal(t, "text-embedding-3-small", rec.Model)
	assert.Equal(t, 1000, rec.InputUnits)
	assert.Equal(t, 0, rec.OutputUnits)
	assert.InDelta(t, 0.00002, rec.Cost, 1e-12)
	assert.Equal(t, fixed, rec.Timestamp)

	totals := acc.Totals()
	assert.Equal(t, 1, totals.Calls)
	assert.Equal(t, 1000, totals.InputUnits)
}

func TestAccumulator_TotalsAccumulateAcrossOperations(t *testing.T) {
	acc := NewAccumulator(nil)

	acc.Record(domain.OpEmbed, "text-embedding-3-small", 500, 0)
	acc.Record(domain.OpEmbed, "text-embedding-3-small", 300, 0)
	acc.Record(domain.OpGenerate, "claude-sonnet-4-5", 1200, 400)

	totals := acc.Totals()
	assert.Equal(t, 3, totals.Calls)
	assert.Equal(t, 2000, totals.InputUnits)
	assert.Equal(t, 400, totals.OutputUnits)

	byOp := acc.ByOperation()
	require.Len(t, byOp, 2)
	assert.Equal(t, 2, byOp[domain.OpEmbed].Calls)
	assert.Equal(t, 800, byOp[domain.OpEmbed].InputUnits)
	assert.Equal(t, 1, byOp[domain.OpGenerate].Calls)
	assert.Equal(t, 400, byOp[domain.OpGenerate].OutputUnits)

	byModel := acc.ByModel()
	require.Len(t, byModel, 2)
	assert.Equal(t, 2, byModel["text-embedding-3-small"].Calls)
	assert.Equal(t, 1, byModel["claude-sonnet-4-5"].Calls)
}

func TestAccumulator_RecordsPreserveArrivalOrder(t *testing.T) {
	acc := NewAccumulator(nil)

	acc.Record(domain.OpEmbed, "text-embedding-3-small", 1, 0)
	acc.Record(domain.OpGenerate, "claude-sonnet-4-5", 2, 2)
	acc.Record(domain.OpEmbed, "text-embedding-3-small", 3, 0)

	recs := acc.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, 1, recs[0].InputUnits)
	assert.Equal(t, 2, recs[1].InputUnits)
	assert.Equal(t, 3, recs[2].InputUnits)

	// The returned slice is a copy.
	recs[0].InputUnits = 99
	assert.Equal(t, 1, acc.Records()[0].InputUnits)
}

func TestAccumulator_CacheHits(t *testing.T) {
	acc := NewAccumulator(nil)

	acc.RecordCacheHit()
	acc.RecordCacheHit()
	acc.RecordCacheHit()

	assert.Equal(t, 3, acc.CacheHits())
	// Cache hits are not provider calls.
	assert.Equal(t, 0, acc.Totals().Calls)
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator(nil)

	acc.Record(domain.OpEmbed, "text-embedding-3-small", 100, 0)
	acc.Record(domain.OpGenerate, "claude-sonnet-4-5", 200, 50)
	acc.RecordCacheHit()

	acc.Reset()

	assert.Equal(t, domain.UsageTotals{}, acc.Totals())
	assert.Empty(t, acc.Records())
	assert.Empty(t, acc.ByOperation())
	assert.Empty(t, acc.ByModel())
	assert.Zero(t, acc.CacheHits())

	// Still usable after reset.
	acc.Record(domain.OpEmbed, "text-embedding-3-small", 10, 0)
	assert.Equal(t, 1, acc.Totals().Calls)
}

func TestAccumulator_SinkReceivesRecords(t *testing.T) {
	sink := &recordingSink{}
	acc := NewAccumulator(sink)

	acc.Record(domain.OpEmbed, "text-embedding-3-small", 100, 0)
	acc.Record(domain.OpGenerate, "claude-sonnet-4-5", 200, 50)

	got, err := sink.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.OpEmbed, got[0].Operation)
	assert.Equal(t, domain.OpGenerate, got[1].Operation)
}

func TestAccumulator_SinkFailureDoesNotFailRecording(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	acc := NewAccumulator(sink)

	rec := acc.Record(domain.OpEmbed, "text-embedding-3-small", 100, 0)

	assert.Equal(t, 100, rec.InputUnits)
	assert.Equal(t, 1, acc.Totals().Calls)
}

func TestAccumulator_ResetDoesNotTouchSink(t *testing.T) {
	sink := &recordingSink{}
	acc := NewAccumulator(sink)

	acc.Record(domain.OpEmbed, "text-embedding-3-small", 100, 0)
	acc.Reset()

	got, err := sink.ReadAll()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAccumulator_ConcurrentRecording(t *testing.T) {
	acc := NewAccumulator(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				acc.Record(domain.OpEmbed, "text-embedding-3-small", 1, 0)
				acc.RecordCacheHit()
			}
		}()
	}
	wg.Wait()

	totals := acc.Totals()
	assert.Equal(t, 1000, totals.Calls)
	assert.Equal(t, 1000, totals.InputUnits)
	assert.Equal(t, 1000, acc.CacheHits())
}
