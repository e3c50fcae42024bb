// Package docx extracts text from Word documents. A .docx file is a
// zip archive; the text lives in word/document.xml as paragraphs of
// runs, and the document title in docProps/core.xml.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles .docx files.
type Normaliser struct{}

// New returns the Word document normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) Name() string {
	return "docx"
}

func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Normalise emits one unpaginated section holding the document text.
// Word computes page breaks at layout time, so no page attribution is
// possible here.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	body, err := documentText(archive)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		Source:   raw.Source,
		URI:      raw.Path,
		Sections: []domain.Section{{Text: body}},
		Metadata: map[string]string{
			"format": "docx",
			"title":  documentTitle(archive, raw.Path),
		},
		IngestedAt: time.Now(),
	}, nil
}

// archiveEntry returns the named file's contents, nil when the archive
// has no such entry.
func archiveEntry(archive *zip.Reader, name string) ([]byte, error) {
	for _, file := range archive.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return content, nil
	}
	return nil, nil
}

// wordDocument mirrors the parts of word/document.xml we read: the
// body's paragraphs, each a list of runs, each a list of text nodes.
type wordDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// documentText reads word/document.xml and joins its paragraphs with
// newlines. A missing or malformed part yields empty text, not an
// error; some generators produce minimal archives.
func documentText(archive *zip.Reader) (string, error) {
	content, err := archiveEntry(archive, "word/document.xml")
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}

	var doc wordDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", nil
	}

	var out strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			out.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				out.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// documentTitle prefers the docProps/core.xml title over a title
// derived from the file name.
func documentTitle(archive *zip.Reader, path string) string {
	if content, err := archiveEntry(archive, "docProps/core.xml"); err == nil && content != nil {
		var core struct {
			Title string `xml:"title"`
		}
		if err := xml.Unmarshal(content, &core); err == nil && core.Title != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
