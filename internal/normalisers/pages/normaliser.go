// Package pages normalises extracted-page JSONL files. Each line is
// one record produced by an external text extractor:
//
//	{"text": "page content", "source": "contract.pdf", "page": 12}
//
// text is required; page is the zero-based page number, omitted for
// unpaginated extractions; source names the original document the text
// came from and, when present, replaces the JSONL file name as the
// document source.
package pages

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// maxRecordSize bounds a single extraction record. A page of text is a
// few kilobytes; anything near this limit is a malformed file.
const maxRecordSize = 4 * 1024 * 1024

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles extracted-page JSONL documents.
type Normaliser struct{}

// New creates a new extracted-page normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "pages"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".jsonl"}
}

// record is one extraction line on the wire.
type record struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Page   *int   `json:"page,omitempty"`
}

// Normalise parses the JSONL records into one section per page,
// preserving record order. A malformed line fails the whole file; a
// partially ingested document would be worse than a reported failure.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	source := raw.Source
	sourceFromRecord := false
	var sections []domain.Section

	scanner := bufio.NewScanner(bytes.NewReader(raw.Content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, lineNo, err)
		}
		if rec.Page != nil && *rec.Page < 0 {
			return nil, fmt.Errorf("%w: line %d: page %d must not be negative",
				domain.ErrInvalidInput, lineNo, *rec.Page)
		}
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}

		// The first record naming a source wins; extraction files
		// carry one document.
		if rec.Source != "" && !sourceFromRecord {
			source = rec.Source
			sourceFromRecord = true
		}

		sections = append(sections, domain.Section{
			Text: rec.Text,
			Page: rec.Page,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return &domain.Document{
		Source:   source,
		URI:      raw.Path,
		Sections: sections,
		Metadata: map[string]string{
			"format": "pages",
		},
		IngestedAt: time.Now(),
	}, nil
}
