// Package tui provides the interactive question session for docqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// Ports aggregates the dependencies required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answerer answers questions grounded on the corpus.
	Answerer driving.Answerer

	// Usage reports accumulated provider usage for the session footer.
	// Optional; without it the footer omits token and cost totals.
	Usage ask.UsageSource

	// Defaults are the retrieval options applied to every question.
	Defaults domain.RetrieveOptions
}

// NewPorts creates a new Ports aggregate with the given answer service.
func NewPorts(answerer driving.Answerer) *Ports {
	return &Ports{
		Answerer: answerer,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answerer == nil {
		return ErrMissingAnswerer
	}
	return nil
}
