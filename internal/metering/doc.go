// Package metering accounts for provider usage and cost.
//
// The Accumulator aggregates token counts and computed cost for every
// embedding and generation call made during the life of the process.
// Adapters record calls as they complete; the usage service reads the
// totals for reporting. An optional UsageLog sink persists records
// across runs.
package metering
