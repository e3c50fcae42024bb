package metering

import (
	"sync"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Accumulator aggregates provider usage for the life of the process.
// It is safe for concurrent use.
type Accumulator struct {
	mu        sync.Mutex
	records   []domain.UsageRecord
	totals    domain.UsageTotals
	byOp      map[domain.Operation]domain.UsageTotals
	byModel   map[string]domain.UsageTotals
	cacheHits int

	sink driven.UsageLog
	now  func() time.Time
}

// NewAccumulator creates an empty accumulator. The sink is optional;
// when non-nil every record is also appended to it so reports can span
// multiple runs.
func NewAccumulator(sink driven.UsageLog) *Accumulator {
	return &Accumulator{
		byOp:    make(map[domain.Operation]domain.UsageTotals),
		byModel: make(map[string]domain.UsageTotals),
		sink:    sink,
		now:     time.Now,
	}
}

// Record accounts for one completed provider call and returns the
// stored record. Cost is computed from the pricing table. A sink
// failure is logged, never surfaced: accounting must not fail the
// call it accounts for.
func (a *Accumulator) Record(op domain.Operation, model string, inputUnits, outputUnits int) domain.UsageRecord {
	rec := domain.UsageRecord{
		Operation:   op,
		Model:       model,
		InputUnits:  inputUnits,
		OutputUnits: outputUnits,
		Cost:        Cost(model, inputUnits, outputUnits),
		Timestamp:   a.now(),
	}

	a.mu.Lock()
	a.records = append(a.records, rec)
	a.totals.Add(rec)
	opTotals := a.byOp[op]
	opTotals.Add(rec)
	a.byOp[op] = opTotals
	modelTotals := a.byModel[model]
	modelTotals.Add(rec)
	a.byModel[model] = modelTotals
	a.mu.Unlock()

	if a.sink != nil {
		if err := a.sink.Append(rec); err != nil {
			logger.Warn("usage log append failed: %v", err)
		}
	}

	return rec
}

// RecordCacheHit counts an embedding served from cache. Cache hits
// cost nothing and are tracked separately from provider calls.
func (a *Accumulator) RecordCacheHit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cacheHits++
}

// CacheHits returns the number of embeddings served from cache.
func (a *Accumulator) CacheHits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cacheHits
}

// Totals returns aggregate usage across all operations.
func (a *Accumulator) Totals() domain.UsageTotals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// ByOperation returns per-operation totals.
func (a *Accumulator) ByOperation() map[domain.Operation]domain.UsageTotals {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[domain.Operation]domain.UsageTotals, len(a.byOp))
	for op, t := range a.byOp {
		out[op] = t
	}
	return out
}

// ByModel returns per-model totals.
func (a *Accumulator) ByModel() map[string]domain.UsageTotals {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]domain.UsageTotals, len(a.byModel))
	for model, t := range a.byModel {
		out[model] = t
	}
	return out
}

// Records returns a copy of every record in arrival order.
func (a *Accumulator) Records() []domain.UsageRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.UsageRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Reset clears all in-memory accounting. The sink is untouched;
// clearing persisted history is the usage service's decision.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = nil
	a.totals = domain.UsageTotals{}
	a.byOp = make(map[domain.Operation]domain.UsageTotals)
	a.byModel = make(map[string]domain.UsageTotals)
	a.cacheHits = 0
}
