package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the question or phrase to find passages for"`
	K      int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (0 uses the configured default)"`
	Source string `json:"source,omitempty" jsonschema:"restrict results to a single source document"`
	Dedupe bool   `json:"dedupe,omitempty" jsonschema:"keep only the best passage per source and page"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Page    string  `json:"page,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed corpus"`
	K        int    `json:"k,omitempty" jsonschema:"number of passages to ground the answer on (0 uses the configured default)"`
	Source   string `json:"source,omitempty" jsonschema:"restrict grounding to a single source document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string          `json:"answer"`
	Sources      []PassageOutput `json:"sources"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find indexed corpus passages relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question grounded on the indexed corpus",
	}, s.handleAsk)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.RetrieveOptions{
		K:      input.K,
		Source: input.Source,
		Dedupe: input.Dedupe,
	}

	results, err := s.ports.Retriever.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: passages(results),
		Count:   len(results),
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answerer == nil {
		return nil, AskOutput{}, domain.ErrLLMUnavailable
	}

	opts := domain.RetrieveOptions{
		K:      input.K,
		Source: input.Source,
	}

	answer, err := s.ports.Answerer.Ask(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:       answer.Text,
		Sources:      passages(answer.Results),
		InputTokens:  answer.Usage.InputTokens,
		OutputTokens: answer.Usage.OutputTokens,
	}, nil
}

// passages converts retrieval hits to their wire form.
func passages(results []domain.SearchResult) []PassageOutput {
	out := make([]PassageOutput, len(results))
	for i := range results {
		out[i] = PassageOutput{
			ChunkID: results[i].ChunkID,
			Source:  results[i].Source(),
			Page:    results[i].Page(),
			Score:   results[i].Score,
			Text:    results[i].Text,
		}
	}
	return out
}
