// Package ics provides a Normaliser implementation for iCalendar
// files. Events are rendered into readable text blocks so summaries,
// descriptions, locations, and participants are all retrievable.
package ics

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles iCalendar documents.
type Normaliser struct{}

// New creates a new ICS normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "ics"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".ics"}
}

// Normalise converts an iCalendar file to a document with a single
// unpaginated section, one text block per event.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	events, calName := parseCalendar(string(raw.Content))

	blocks := make([]string, 0, len(events))
	for _, e := range events {
		blocks = append(blocks, renderEvent(e))
	}

	return &domain.Document{
		Source: raw.Source,
		URI:    raw.Path,
		Sections: []domain.Section{
			{Text: strings.TrimSpace(strings.Join(blocks, "\n\n"))},
		},
		Metadata: map[string]string{
			"format": "ics",
			"title":  calendarTitle(events, calName, raw.Path),
		},
		IngestedAt: time.Now(),
	}, nil
}

// event holds the properties extracted from one VEVENT block.
type event struct {
	summary     string
	description string
	location    string
	dtstart     string
	dtend       string
	organizer   string
	attendees   []string
}

// parseCalendar walks the unfolded lines collecting VEVENT blocks and
// the calendar display name.
func parseCalendar(content string) (events []event, calName string) {
	var cur *event

	for _, line := range unfold(content) {
		if line == "" {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Drop property parameters, e.g. DTSTART;VALUE=DATE:20240115.
		name, _, _ = strings.Cut(name, ";")
		name = strings.ToUpper(strings.TrimSpace(name))

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				cur = &event{}
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") && cur != nil {
				events = append(events, *cur)
				cur = nil
			}
		case "X-WR-CALNAME":
			calName = decodeValue(value)
		case "SUMMARY":
			if cur != nil {
				cur.summary = decodeValue(value)
			}
		case "DESCRIPTION":
			if cur != nil {
				cur.description = decodeValue(value)
			}
		case "LOCATION":
			if cur != nil {
				cur.location = decodeValue(value)
			}
		case "DTSTART":
			if cur != nil {
				cur.dtstart = strings.TrimSpace(value)
			}
		case "DTEND":
			if cur != nil {
				cur.dtend = strings.TrimSpace(value)
			}
		case "ORGANIZER":
			if cur != nil {
				cur.organizer = value
			}
		case "ATTENDEE":
			if cur != nil {
				cur.attendees = append(cur.attendees, value)
			}
		}
	}

	return events, calName
}

// unfold joins RFC 5545 folded lines (continuations start with a space
// or tab) and returns the logical lines.
func unfold(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\n ", "")
	content = strings.ReplaceAll(content, "\n\t", "")
	return strings.Split(content, "\n")
}

// renderEvent produces the readable text block for one event.
func renderEvent(e event) string {
	var b strings.Builder

	if e.summary != "" {
		b.WriteString("Event: ")
		b.WriteString(e.summary)
		b.WriteString("\n")
	}
	if e.dtstart != "" {
		b.WriteString("Date: ")
		b.WriteString(formatDateTime(e.dtstart))
		if e.dtend != "" {
			b.WriteString(" to ")
			b.WriteString(formatDateTime(e.dtend))
		}
		b.WriteString("\n")
	}
	if e.location != "" {
		b.WriteString("Location: ")
		b.WriteString(e.location)
		b.WriteString("\n")
	}
	if email := extractEmail(e.organizer); email != "" {
		b.WriteString("Organizer: ")
		b.WriteString(email)
		b.WriteString("\n")
	}
	if len(e.attendees) > 0 {
		emails := make([]string, 0, len(e.attendees))
		for _, a := range e.attendees {
			if email := extractEmail(a); email != "" {
				emails = append(emails, email)
			}
		}
		if len(emails) > 0 {
			b.WriteString("Attendees: ")
			b.WriteString(strings.Join(emails, ", "))
			b.WriteString("\n")
		}
	}
	if e.description != "" {
		b.WriteString("\n")
		b.WriteString(e.description)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// calendarTitle picks the document title: the first event summary
// ("... (and more)" when several events exist), then the calendar
// display name, then the file name.
func calendarTitle(events []event, calName, path string) string {
	var firstSummary string
	for _, e := range events {
		if e.summary != "" {
			firstSummary = e.summary
			break
		}
	}

	switch {
	case firstSummary != "" && len(events) > 1:
		return firstSummary + " (and more)"
	case firstSummary != "":
		return firstSummary
	case calName != "":
		return calName
	default:
		return titleFromPath(path)
	}
}

// decodeValue decodes RFC 5545 escaped text values.
func decodeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n', 'N':
				b.WriteByte('\n')
			case ',':
				b.WriteByte(',')
			case ';':
				b.WriteByte(';')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(s[i])
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// formatDateTime renders iCalendar date and date-time values in a
// readable form, passing unrecognised values through unchanged.
func formatDateTime(value string) string {
	if t, err := time.Parse("20060102", value); err == nil {
		return t.Format("January 2, 2006")
	}
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t.Format("January 2, 2006 at 3:04 PM")
	}
	if t, err := time.Parse("20060102T150405", value); err == nil {
		return t.Format("January 2, 2006 at 3:04 PM")
	}
	return value
}

// extractEmail pulls the address out of a mailto: property value,
// returning empty when there is no address.
func extractEmail(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "mailto:") {
		value = value[len("mailto:"):]
	}
	if !strings.Contains(value, "@") {
		return ""
	}
	return value
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
