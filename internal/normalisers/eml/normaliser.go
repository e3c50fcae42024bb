// Package eml extracts searchable text from RFC 5322 email files.
package eml

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles .eml files. The From/To/Date/Subject headers are
// kept at the top of the section text so a query can match on sender
// or subject as well as the body.
type Normaliser struct{}

// New returns the email normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) Name() string {
	return "eml"
}

func (n *Normaliser) Extensions() []string {
	return []string{".eml"}
}

// Normalise parses the message and emits one section: the decoded
// address headers, a blank line, then the body. Multipart messages
// prefer their text/plain alternative; HTML falls back to tag
// stripping.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	headers := []struct{ label, value string }{
		{"From", decodeHeader(msg.Header.Get("From"))},
		{"To", decodeHeader(msg.Header.Get("To"))},
		{"Date", msg.Header.Get("Date")},
		{"Subject", decodeHeader(msg.Header.Get("Subject"))},
	}

	body, err := messageBody(msg)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	metadata := map[string]string{"format": "eml"}
	for _, h := range headers {
		if h.value == "" {
			continue
		}
		text.WriteString(h.label + ": " + h.value + "\n")
		if key := strings.ToLower(h.label); key != "subject" {
			metadata[key] = h.value
		}
	}
	text.WriteString("\n" + body)

	metadata["title"] = headers[3].value
	if metadata["title"] == "" {
		metadata["title"] = titleFromPath(raw.Path)
	}

	return &domain.Document{
		Source:     raw.Source,
		URI:        raw.Path,
		Sections:   []domain.Section{{Text: strings.TrimSpace(text.String())}},
		Metadata:   metadata,
		IngestedAt: time.Now(),
	}, nil
}

// decodeHeader resolves RFC 2047 encoded words, returning the raw
// header when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// messageBody returns the message text. The content type decides the
// path: multipart delegates to the part walker, text/html is stripped,
// anything else is read as-is.
func messageBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable declaration; treat the body as plain text.
		raw, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", domain.ErrInvalidInput
		}
		return string(raw), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(msg.Body, params["boundary"]), nil
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	if mediaType == "text/html" {
		return stripHTMLTags(string(raw)), nil
	}
	return string(raw), nil
}

// multipartText walks the parts and joins the plain-text ones. HTML
// parts are collected stripped and used only when no plain text part
// exists. Nested multiparts recurse.
func multipartText(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	var plain, html []string
	reader := multipart.NewReader(r, boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			plain = append(plain, string(content))
		case mediaType == "text/html":
			html = append(html, stripHTMLTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := multipartText(bytes.NewReader(content), params["boundary"]); nested != "" {
				plain = append(plain, nested)
			}
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n")
	}
	return strings.Join(html, "\n")
}

// stripHTMLTags drops everything between angle brackets and collapses
// the leftover blank lines. Good enough for email bodies; real HTML
// documents go through the html normaliser instead.
func stripHTMLTags(html string) string {
	var out strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}

	var lines []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// titleFromPath turns the file name into a readable title.
func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
