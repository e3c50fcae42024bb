package domain

import "time"

// Operation classifies a provider call for usage accounting.
type Operation string

// Accounted operations.
const (
	OpEmbed    Operation = "embed"
	OpGenerate Operation = "generate"
)

// UsageRecord accounts for a single provider call. Records are
// accumulated process-wide and reset only on explicit request.
type UsageRecord struct {
	// Operation is the call type, embed or generate.
	Operation Operation `json:"operation"`

	// Model is the provider model the call was billed against.
	Model string `json:"model"`

	// InputUnits is the input token count reported by the provider.
	InputUnits int `json:"input_units"`

	// OutputUnits is the output token count, zero for embeddings.
	OutputUnits int `json:"output_units"`

	// Cost is the computed cost in USD. Never negative.
	Cost float64 `json:"cost"`

	// Timestamp is when the call completed.
	Timestamp time.Time `json:"timestamp"`
}

// UsageTotals aggregates usage records for reporting.
type UsageTotals struct {
	Calls       int     `json:"calls"`
	InputUnits  int     `json:"input_units"`
	OutputUnits int     `json:"output_units"`
	Cost        float64 `json:"cost"`
}

// Add merges a record into the totals.
func (t *UsageTotals) Add(rec UsageRecord) {
	t.Calls++
	t.InputUnits += rec.InputUnits
	t.OutputUnits += rec.OutputUnits
	t.Cost += rec.Cost
}
