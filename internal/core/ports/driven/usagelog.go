package driven

import "github.com/custodia-labs/docqa-cli/internal/core/domain"

// UsageLog durably records provider usage across runs.
// This is an optional service - when nil, accounting is
// process-lifetime only.
type UsageLog interface {
	// Append adds a record to the log.
	Append(rec domain.UsageRecord) error

	// ReadAll returns every record in append order. Malformed lines
	// are skipped, not errors.
	ReadAll() ([]domain.UsageRecord, error)

	// Truncate empties the log.
	Truncate() error

	// Path returns the log file path.
	Path() string
}
