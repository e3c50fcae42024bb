package mcp

import (
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever finds corpus passages relevant to a query.
	Retriever driving.Retriever

	// Answerer answers questions grounded on the corpus.
	Answerer driving.Answerer

	// Ingestor reports index contents.
	Ingestor driving.Ingestor

	// Usage reports provider cost accounting.
	Usage driving.UsageReporter
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	// Answerer, Ingestor, and Usage are optional; the ask tool and the
	// resources report unavailability instead.
	return nil
}
