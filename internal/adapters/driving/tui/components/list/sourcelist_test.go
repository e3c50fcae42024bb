package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

func testPassages() []domain.SearchResult {
	return []domain.SearchResult{
		{
			ChunkID:  "chunk-1",
			Text:     "Backups are retained for 30 days.",
			Metadata: map[string]string{domain.MetaSource: "policy.md", domain.MetaPage: "2"},
			Score:    0.91,
		},
		{
			ChunkID:  "chunk-2",
			Text:     "Restores require an admin role.",
			Metadata: map[string]string{domain.MetaSource: "runbook.md"},
			Score:    0.72,
		},
	}
}

func TestNewSourceList(t *testing.T) {
	s := styles.DefaultStyles()
	list := NewSourceList(s)

	require.NotNil(t, list)
	assert.True(t, list.IsEmpty())
	assert.Equal(t, 0, list.Selected())
}

func TestNewSourceList_NilStyles(t *testing.T) {
	list := NewSourceList(nil)

	require.NotNil(t, list)
	assert.NotNil(t, list.styles)
}

func TestSourceList_SetPassages(t *testing.T) {
	list := NewSourceList(nil)

	list.SetPassages(testPassages())

	assert.Equal(t, 2, list.Count())
	assert.Equal(t, 0, list.Selected())
	assert.False(t, list.IsEmpty())
}

func TestSourceList_SetPassages_ResetsSelection(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())
	list.MoveDown()

	list.SetPassages(testPassages())

	assert.Equal(t, 0, list.Selected())
	assert.False(t, list.Expanded())
}

func TestSourceList_MoveDown(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())

	list.MoveDown()

	assert.Equal(t, 1, list.Selected())

	// Does not move past the end
	list.MoveDown()
	assert.Equal(t, 1, list.Selected())
}

func TestSourceList_MoveUp(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())
	list.MoveDown()

	list.MoveUp()

	assert.Equal(t, 0, list.Selected())

	// Does not move past the start
	list.MoveUp()
	assert.Equal(t, 0, list.Selected())
}

func TestSourceList_MoveCollapsesExpansion(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())
	list.ToggleExpand()

	assert.True(t, list.Expanded())

	list.MoveDown()

	assert.False(t, list.Expanded())
}

func TestSourceList_Update_Navigation(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())

	list.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, list.Selected())

	list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, list.Selected())
}

func TestSourceList_SelectedPassage(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())

	passage := list.SelectedPassage()

	require.NotNil(t, passage)
	assert.Equal(t, "chunk-1", passage.ChunkID)
}

func TestSourceList_SelectedPassage_Empty(t *testing.T) {
	list := NewSourceList(nil)

	assert.Nil(t, list.SelectedPassage())
}

func TestSourceList_SetSelected(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())

	list.SetSelected(1)
	assert.Equal(t, 1, list.Selected())

	// Out of bounds is ignored
	list.SetSelected(99)
	assert.Equal(t, 1, list.Selected())
	list.SetSelected(-1)
	assert.Equal(t, 1, list.Selected())
}

func TestSourceList_View_Empty(t *testing.T) {
	list := NewSourceList(nil)

	view := list.View()

	assert.Contains(t, view, "No sources")
}

func TestSourceList_View_RendersPassages(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages(testPassages())
	list.SetDimensions(100, 20)

	view := list.View()

	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "policy.md, page 2")
	assert.Contains(t, view, "runbook.md")
	assert.Contains(t, view, "91%")
	assert.Contains(t, view, "72%")
	// Selected passage shows its text
	assert.Contains(t, view, "Backups are retained")
	// Unselected passage does not
	assert.NotContains(t, view, "Restores require")
}

func TestSourceList_View_ChunkIDFallback(t *testing.T) {
	list := NewSourceList(nil)
	list.SetPassages([]domain.SearchResult{
		{ChunkID: "chunk-9", Text: "orphan text", Score: 0.5},
	})

	view := list.View()

	assert.Contains(t, view, "chunk-9")
}

func TestSourceList_ToggleExpand(t *testing.T) {
	longText := strings.Repeat("long passage text ", 30)
	list := NewSourceList(nil)
	list.SetDimensions(60, 20)
	list.SetPassages([]domain.SearchResult{
		{ChunkID: "chunk-1", Text: longText, Score: 0.8},
	})

	collapsed := list.View()
	assert.Contains(t, collapsed, "...")

	list.ToggleExpand()
	expanded := list.View()

	assert.True(t, list.Expanded())
	assert.NotContains(t, expanded, "...")
}

func TestSourceList_SetDimensions(t *testing.T) {
	list := NewSourceList(nil)

	list.SetDimensions(120, 30)

	assert.Equal(t, 120, list.Width())
	assert.Equal(t, 30, list.Height())
}

func TestRelevancePercent(t *testing.T) {
	assert.Equal(t, 91, relevancePercent(0.91))
	assert.Equal(t, 100, relevancePercent(1.0))
	assert.Equal(t, 0, relevancePercent(-0.2))
	assert.Equal(t, 50, relevancePercent(0.499))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 40))
	assert.Equal(t, "first line", snippet("first line\nsecond line", 40))

	long := strings.Repeat("a", 50)
	got := snippet(long, 40)
	assert.Len(t, []rune(got), 43) // 40 runes plus ellipsis
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb", "  "))
	assert.Equal(t, "  single", indent("single", "  "))
}
