// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// SourceList displays the passages an answer was grounded on.
type SourceList struct {
	passages []domain.SearchResult
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		passages: nil,
		selected: 0,
		styles:   s,
		width:    80,
		height:   10,
	}
}

// Init initialises the source list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			l.MoveUp()
		case tea.KeyDown:
			l.MoveDown()
		default:
			// Handle other keys
		}
		switch msg.String() {
		case "k":
			l.MoveUp()
		case "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the source list.
func (l *SourceList) View() string {
	if len(l.passages) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.passages)*2+2)

	// Header
	header := l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.passages)))
	lines = append(lines, header, "")

	for i := range l.passages {
		lines = append(lines, l.renderPassage(i, &l.passages[i]))
	}

	return strings.Join(lines, "\n")
}

// renderPassage formats a single grounding passage.
func (l *SourceList) renderPassage(index int, passage *domain.SearchResult) string {
	// Indicator for selected item
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	label := passage.Source()
	if label == "" {
		label = passage.ChunkID
	}
	if page := passage.Page(); page != "" {
		label = fmt.Sprintf("%s, page %s", label, page)
	}

	relevance := fmt.Sprintf("%d%%", relevancePercent(passage.Score))

	ref := fmt.Sprintf("%s[%d] %s  %s", indicator, index+1, label, relevance)

	var refLine string
	if index == l.selected {
		refLine = l.styles.Selected.Render(ref)
	} else {
		refLine = l.styles.Citation.Render(ref)
	}

	// Selected passage shows its text, expanded or as a snippet.
	if index != l.selected {
		return refLine
	}

	text := passage.Text
	if !l.expanded {
		text = snippet(text, l.width-6)
	}
	textLine := l.styles.Muted.Render(indent(text, "    "))

	return refLine + "\n" + textLine
}

// SetPassages replaces the list contents and resets the selection.
func (l *SourceList) SetPassages(passages []domain.SearchResult) {
	l.passages = passages
	l.selected = 0
	l.expanded = false
}

// Passages returns the current passages.
func (l *SourceList) Passages() []domain.SearchResult {
	return l.passages
}

// Selected returns the index of the selected passage.
func (l *SourceList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index.
func (l *SourceList) SetSelected(index int) {
	if index >= 0 && index < len(l.passages) {
		l.selected = index
	}
}

// SelectedPassage returns the currently selected passage, or nil if none.
func (l *SourceList) SelectedPassage() *domain.SearchResult {
	if len(l.passages) == 0 || l.selected < 0 || l.selected >= len(l.passages) {
		return nil
	}
	return &l.passages[l.selected]
}

// ToggleExpand switches the selected passage between snippet and full text.
func (l *SourceList) ToggleExpand() {
	l.expanded = !l.expanded
}

// Expanded returns whether the selected passage shows its full text.
func (l *SourceList) Expanded() bool {
	return l.expanded
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
		l.expanded = false
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.passages)-1 {
		l.selected++
		l.expanded = false
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Width returns the current width.
func (l *SourceList) Width() int {
	return l.width
}

// Height returns the current height.
func (l *SourceList) Height() int {
	return l.height
}

// Count returns the number of passages.
func (l *SourceList) Count() int {
	return len(l.passages)
}

// IsEmpty returns whether the list is empty.
func (l *SourceList) IsEmpty() bool {
	return len(l.passages) == 0
}

// relevancePercent converts a cosine similarity to a display percentage.
func relevancePercent(score float64) int {
	if score < 0 {
		return 0
	}
	return int(score*100 + 0.5)
}

// snippet returns the first line of text, truncated to maxLen runes.
func snippet(text string, maxLen int) string {
	if maxLen < 20 {
		maxLen = 20
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return text
}

// indent prefixes every line of text with the given prefix.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
