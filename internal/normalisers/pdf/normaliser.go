// Package pdf provides a Normaliser implementation for PDF documents.
// Extraction shells out to the poppler pdftotext tool rather than
// linking a PDF library; pages arrive separated by form feeds, which
// gives every section its page attribution.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound indicates the pdftotext binary is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// maxTitleLength bounds how long a first line may be to count as a title.
const maxTitleLength = 200

// CommandRunner runs an external command and captures its stdout.
// Injectable so tests can avoid spawning real processes.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner is the production CommandRunner backed by os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser handles PDF documents via pdftotext.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that invokes the real pdftotext binary.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns guidance for installing pdftotext.
func InstallInstructions() string {
	return `PDF ingestion requires the pdftotext tool (part of poppler).

Install it with:
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "pdf"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Normalise extracts text from a PDF file. pdftotext separates pages
// with form feed characters, so each page becomes a section with its
// page number attached.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := CheckAvailable(); err != nil {
		return nil, err
	}

	// pdftotext reads from a file, so stage the bytes in a temp file.
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("staging pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("staging pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("staging pdf: %w", err)
	}

	// -layout preserves column reading order; "-" writes text to stdout.
	output, err := n.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	text := string(output)

	return &domain.Document{
		Source:   raw.Source,
		URI:      raw.Path,
		Sections: splitPages(text),
		Metadata: map[string]string{
			"format": "pdf",
			"title":  extractTitle(text, raw.Path),
		},
		IngestedAt: time.Now(),
	}, nil
}

// splitPages splits pdftotext output on the form feeds it emits between
// pages. Blank pages are dropped; page numbers stay aligned with the
// original document.
func splitPages(text string) []domain.Section {
	var sections []domain.Section
	for i, pageText := range strings.Split(text, "\f") {
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		page := i + 1
		sections = append(sections, domain.Section{Text: pageText, Page: &page})
	}
	return sections
}

// extractTitle returns the first short non-empty line of the extracted
// text, falling back to the file name.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return titleFromPath(path)
}

// titleFromPath derives a readable title from the file name.
func titleFromPath(path string) string {
	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
