package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// passageSeparator divides document blocks in the assembled prompt.
var passageSeparator = strings.Repeat("=", 70)

// AnswerService answers questions grounded on retrieved passages.
type AnswerService struct {
	retriever  driving.Retriever
	llmService driven.LLMService
	prompts    driven.PromptStore
	maxTokens  int
}

// NewAnswerService creates a new answer service. maxTokens bounds a
// single generation; zero selects the provider default.
func NewAnswerService(
	retriever driving.Retriever,
	llmService driven.LLMService,
	prompts driven.PromptStore,
	maxTokens int,
) *AnswerService {
	return &AnswerService{
		retriever:  retriever,
		llmService: llmService,
		prompts:    prompts,
		maxTokens:  maxTokens,
	}
}

// Ask retrieves supporting passages, assembles the prompt, and generates
// an answer. When nothing relevant is indexed the generation call is
// skipped entirely and ErrNotFound is returned.
func (s *AnswerService) Ask(
	ctx context.Context, question string, opts domain.RetrieveOptions,
) (*domain.Answer, error) {
	logger.Section("Answer Generation")

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.llmService == nil {
		return nil, domain.ErrLLMUnavailable
	}

	// 1. Retrieve supporting passages
	results, err := s.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	if len(results) == 0 {
		logger.Info("No relevant passages, skipping generation")
		return nil, fmt.Errorf("no relevant passages found: %w", domain.ErrNotFound)
	}
	logger.Debug("Retrieved %d passages", len(results))

	// 2. Assemble the prompt
	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	userTmpl, err := s.prompts.Load(driven.PromptAnswerUser)
	if err != nil {
		return nil, fmt.Errorf("load user prompt: %w", err)
	}
	prompt := fmt.Sprintf(userTmpl, question, formatPassages(results))
	logger.Debug("Prompt assembled: %d chars", len(prompt))

	// 3. Generate
	logger.Debug("Generating with %s...", s.llmService.ModelName())
	gen, err := s.llmService.Generate(ctx, driven.GenerateRequest{
		System:    system,
		Prompt:    prompt,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	logger.Info("Answer generated: %d input + %d output tokens",
		gen.Usage.InputTokens, gen.Usage.OutputTokens)

	return &domain.Answer{
		Text:    gen.Text,
		Results: results,
		Usage:   gen.Usage,
	}, nil
}

// formatPassages renders ranked passages as numbered document blocks,
// each headed by its source, page, and relevance.
func formatPassages(results []domain.SearchResult) string {
	var b strings.Builder

	for i, r := range results {
		if i > 0 {
			b.WriteString("\n" + passageSeparator + "\n")
		}
		fmt.Fprintf(&b, "[Document %d]\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", r.Source())
		if page := r.Page(); page != "" {
			fmt.Fprintf(&b, "Page: %s\n", page)
		}
		fmt.Fprintf(&b, "Relevance: %.2f%%\n\n", r.Score*100)
		b.WriteString(strings.TrimSpace(r.Text))
		b.WriteString("\n")
	}

	return b.String()
}
