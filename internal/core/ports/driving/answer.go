package driving

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Answerer answers questions grounded on retrieved corpus passages.
type Answerer interface {
	// Ask retrieves supporting passages, assembles the prompt, and
	// generates an answer with its token accounting.
	Ask(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.Answer, error)
}
