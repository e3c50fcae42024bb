package markdown

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// rewrite pairs a pattern with its replacement. Applied in order:
// code fences go first so their contents never match later rules.
type rewrite struct {
	re   *regexp.Regexp
	with string
}

var rewrites = []rewrite{
	{regexp.MustCompile("(?s)```[^`]*```"), ""},         // fenced code blocks
	{regexp.MustCompile("`[^`]+`"), ""},                 // inline code
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},    // images
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"}, // links keep their text
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},          // heading markers
	{regexp.MustCompile(`(?m)^>\s*`), ""},               // blockquote markers
	{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},      // horizontal rules
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},        // bullet list markers
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},        // numbered list markers
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) Name() string { return "markdown" }

func (n *Normaliser) Extensions() []string { return []string{".md", ".markdown"} }

// Normalise strips markdown formatting and produces a document with a
// single unpaginated section, so markers never pollute the embedded
// content. Chunking happens later in the post-processor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := string(raw.Content)
	meta := map[string]string{"format": "markdown"}
	if title := extractTitle(text); title != "" {
		meta["title"] = title
	}

	return &domain.Document{
		Source:     raw.Source,
		URI:        raw.Path,
		Sections:   []domain.Section{{Text: stripMarkdown(text)}},
		Metadata:   meta,
		IngestedAt: time.Now(),
	}, nil
}

// extractTitle returns the first H1 heading, empty when there is none.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[1:])
		}
	}
	return ""
}

// stripMarkdown reduces formatted markdown to plain text. Covers the
// common constructs; exotic syntax passes through untouched.
func stripMarkdown(content string) string {
	for _, r := range rewrites {
		content = r.re.ReplaceAllString(content, r.with)
	}

	// Emphasis markers are plain string swaps. Underscores become
	// spaces so snake_case words stay readable.
	replacer := strings.NewReplacer("**", "", "__", "", "*", "", "_", " ")
	content = replacer.Replace(content)

	content = excessNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
