package domain

// TokenUsage reports provider token counts for a single call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Answer is the result of a question answered against the corpus.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Results are the passages the answer was grounded on, in rank
	// order.
	Results []SearchResult

	// Usage is the generation call's token accounting.
	Usage TokenUsage
}
