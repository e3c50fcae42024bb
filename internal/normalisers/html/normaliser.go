// Package html converts HTML files into plain-text documents. Tags
// are stripped with regular expressions rather than a full parser;
// the output feeds a chunker, so readable text matters more than
// faithful DOM structure.
package html

import (
	"context"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles .html and .htm files.
type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) Name() string {
	return "html"
}

func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Normalise emits one unpaginated section with the tag-stripped text.
// Chunking happens later in the post-processor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	title := pageTitle(content)
	if title == "" {
		title = fallbackTitle(raw.Path)
	}

	return &domain.Document{
		Source:     raw.Source,
		URI:        raw.Path,
		Sections:   []domain.Section{{Text: stripHTML(content)}},
		Metadata:   map[string]string{"format": "html", "title": title},
		IngestedAt: time.Now(),
	}, nil
}

var (
	titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// invisible matches elements whose contents never render as text.
	invisible = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}

	// lineBreaking matches tags that imply a line break in rendered
	// output.
	lineBreaking = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`),
		regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`),
		regexp.MustCompile(`(?i)<br\s*/?>`),
		regexp.MustCompile(`(?i)<hr\s*/?>`),
	}

	anyTag        = regexp.MustCompile(`<[^>]+>`)
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// pageTitle returns the <title> text, empty when there is none.
func pageTitle(content string) string {
	if m := titleTag.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return ""
}

// fallbackTitle derives a readable title from the file name.
func fallbackTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}

// stripHTML reduces markup to readable text. Invisible elements are
// dropped, block boundaries become newlines, remaining tags are
// removed, entities are decoded, and whitespace is collapsed.
func stripHTML(content string) string {
	for _, re := range invisible {
		content = re.ReplaceAllString(content, "")
	}
	for _, re := range lineBreaking {
		content = re.ReplaceAllString(content, "\n")
	}
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = spaceRuns.ReplaceAllString(content, " ")
	content = blankLineRuns.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
