package driving

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// Retriever returns the corpus passages most relevant to a question.
type Retriever interface {
	// Retrieve embeds the question, searches the index, and returns
	// the ranked passages. An empty index yields empty results, not
	// an error. Never mutates the index.
	Retrieve(ctx context.Context, question string, opts domain.RetrieveOptions) ([]domain.SearchResult, error)
}
