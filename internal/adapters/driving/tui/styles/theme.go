// Package styles defines the colour palette and lipgloss styles for
// the interactive session.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette. Styles derive from it, so swapping the
// theme restyles the whole session.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme is a dark palette with a teal accent.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#2DD4BF"), // teal
		Secondary:  lipgloss.Color("#FBBF24"), // amber
		Background: lipgloss.Color("#1C1917"),
		Foreground: lipgloss.Color("#E7E5E4"),
		Muted:      lipgloss.Color("#78716C"),
		Success:    lipgloss.Color("#86EFAC"),
		Warning:    lipgloss.Color("#FDE68A"),
		Error:      lipgloss.Color("#FCA5A5"),
		Border:     lipgloss.Color("#44403C"),
	}
}

// Styles holds the rendered lipgloss styles the views share. Title and
// Subtitle head sections; Answer frames generated text; Citation marks
// the sources under it; InputField and StatusBar style the chrome.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Answer     lipgloss.Style
	Citation   lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles derives styles from theme, falling back to the default
// palette when theme is nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	base := lipgloss.NewStyle()
	rounded := base.BorderStyle(lipgloss.RoundedBorder())

	return &Styles{
		theme: theme,

		Title:    base.Bold(true).Foreground(theme.Primary),
		Subtitle: base.Bold(true).Foreground(theme.Secondary),
		Normal:   base.Foreground(theme.Foreground),
		Muted:    base.Foreground(theme.Muted),
		Selected: base.Bold(true).Foreground(theme.Background).Background(theme.Primary),
		Error:    base.Foreground(theme.Error),
		Success:  base.Foreground(theme.Success),
		Warning:  base.Foreground(theme.Warning),

		Answer: rounded.Foreground(theme.Foreground).
			BorderForeground(theme.Primary).Padding(0, 1),
		Citation:   base.Foreground(theme.Secondary),
		InputField: rounded.BorderForeground(theme.Border).Padding(0, 1),
		StatusBar: base.Foreground(theme.Muted).
			Background(lipgloss.Color("#292524")).Padding(0, 1),
		Help:   base.Foreground(theme.Muted),
		Border: rounded.BorderForeground(theme.Border),
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette these styles were derived from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
