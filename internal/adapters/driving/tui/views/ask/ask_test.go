package ask

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// mockAnswerer implements driving.Answerer for testing.
type mockAnswerer struct {
	AskFunc func(
		ctx context.Context, question string, opts domain.RetrieveOptions,
	) (*domain.Answer, error)
}

func (m *mockAnswerer) Ask(
	ctx context.Context, question string, opts domain.RetrieveOptions,
) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question, opts)
	}
	return &domain.Answer{}, nil
}

// mockUsage implements UsageSource for testing.
type mockUsage struct {
	totals domain.UsageTotals
}

func (m *mockUsage) Totals() domain.UsageTotals {
	return m.totals
}

func testAnswer() *domain.Answer {
	return &domain.Answer{
		Text: "Backups are kept for 30 days.",
		Results: []domain.SearchResult{
			{
				ChunkID:  "chunk-1",
				Text:     "Backups are retained for 30 days.",
				Metadata: map[string]string{domain.MetaSource: "policy.md"},
				Score:    0.9,
			},
			{
				ChunkID:  "chunk-2",
				Text:     "Deleted data is unrecoverable after retention.",
				Metadata: map[string]string{domain.MetaSource: "policy.md"},
				Score:    0.7,
			},
		},
		Usage: domain.TokenUsage{InputTokens: 120, OutputTokens: 40},
	}
}

func newTestView(answerer *mockAnswerer) *View {
	v := NewView(nil, nil, answerer, nil, domain.RetrieveOptions{})
	v.SetDimensions(100, 30)
	return v
}

// submitQuestion types a question and presses enter, returning the
// resulting command.
func submitQuestion(v *View, question string) tea.Cmd {
	v.SetQuestion(question)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, &mockAnswerer{}, nil, domain.RetrieveOptions{})

	require.NotNil(t, v)
	assert.True(t, v.InputFocused())
	assert.False(t, v.Ready())
	assert.Nil(t, v.Answer())
}

func TestView_SetDimensions(t *testing.T) {
	v := NewView(nil, nil, &mockAnswerer{}, nil, domain.RetrieveOptions{})

	v.SetDimensions(120, 40)

	assert.True(t, v.Ready())
	assert.Equal(t, 120, v.Width())
	assert.Equal(t, 40, v.Height())
}

func TestView_WithContext(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	result := v.WithContext(context.Background())

	assert.Equal(t, v, result)
}

func TestView_Init(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	cmd := v.Init()

	assert.NotNil(t, cmd)
}

func TestView_SubmitEmptyQuestion(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Asking())
	assert.True(t, v.InputFocused())
}

func TestView_SubmitQuestion(t *testing.T) {
	answerer := &mockAnswerer{
		AskFunc: func(_ context.Context, question string, _ domain.RetrieveOptions) (*domain.Answer, error) {
			assert.Equal(t, "how long are backups kept?", question)
			return testAnswer(), nil
		},
	}
	v := newTestView(answerer)

	cmd := submitQuestion(v, "how long are backups kept?")

	require.NotNil(t, cmd)
	assert.True(t, v.Asking())
	assert.False(t, v.InputFocused())

	// Run the command and feed the answer back in
	msg := cmd()
	completed, ok := msg.(messages.AnswerCompleted)
	require.True(t, ok)
	require.NoError(t, completed.Err)

	v.Update(completed)

	assert.False(t, v.Asking())
	require.NotNil(t, v.Answer())
	assert.Equal(t, "Backups are kept for 30 days.", v.Answer().Text)
	assert.Len(t, v.Sources(), 2)
	assert.Equal(t, 0, v.SelectedIndex())
	assert.Equal(t, "how long are backups kept?", v.Question())
}

func TestView_SubmitPassesDefaults(t *testing.T) {
	var got domain.RetrieveOptions
	answerer := &mockAnswerer{
		AskFunc: func(_ context.Context, _ string, opts domain.RetrieveOptions) (*domain.Answer, error) {
			got = opts
			return testAnswer(), nil
		},
	}
	defaults := domain.RetrieveOptions{K: 3, Source: "policy.md", Dedupe: true}
	v := NewView(nil, nil, answerer, nil, defaults)
	v.SetDimensions(100, 30)

	cmd := submitQuestion(v, "anything")
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, defaults, got)
}

func TestView_PerformAsk_NilAnswerer(t *testing.T) {
	v := NewView(nil, nil, nil, nil, domain.RetrieveOptions{})
	v.SetDimensions(100, 30)

	cmd := submitQuestion(v, "anything")
	require.NotNil(t, cmd)

	msg := cmd()
	occurred, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, occurred.Err, ErrNoAnswerer)
}

func TestView_AnswerCompleted_Error(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.asking = true

	v.Update(messages.AnswerCompleted{Question: "q", Err: errors.New("generation failed")})

	assert.False(t, v.Asking())
	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), "generation failed")
}

func TestView_AnswerCompleted_NotFound(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.asking = true

	v.Update(messages.AnswerCompleted{Question: "q", Err: domain.ErrNotFound})

	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), "no relevant passages")
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	v.Update(messages.ErrorOccurred{Err: errors.New("something broke")})

	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), "something broke")
}

func TestView_Escape_Quits(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, messages.Quit{}, msg)
}

func TestView_AskingIgnoresKeys(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.asking = true

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, v.Asking())
}

func TestView_Navigation(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.AnswerCompleted{Question: "q", Answer: testAnswer()})

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.SelectedIndex())

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.SelectedIndex())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, v.SelectedIndex())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_ExpandToggle(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.AnswerCompleted{Question: "q", Answer: testAnswer()})

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, v.sources.Expanded())

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, v.sources.Expanded())
}

func TestView_NewQuestion(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.AnswerCompleted{Question: "q", Answer: testAnswer()})

	assert.False(t, v.InputFocused())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, v.InputFocused())
	assert.Equal(t, "", v.input.Value())
	// Previous answer stays visible for reference
	assert.NotNil(t, v.Answer())
}

func TestView_UsageRefresh(t *testing.T) {
	usage := &mockUsage{
		totals: domain.UsageTotals{Calls: 2, InputUnits: 500, OutputUnits: 60, Cost: 0.003},
	}
	v := NewView(nil, nil, &mockAnswerer{}, usage, domain.RetrieveOptions{})
	v.SetDimensions(100, 30)

	v.Update(messages.AnswerCompleted{Question: "q", Answer: testAnswer()})

	assert.Equal(t, usage.totals, v.statusbar.Usage())
}

func TestView_View_NotReady(t *testing.T) {
	v := NewView(nil, nil, &mockAnswerer{}, nil, domain.RetrieveOptions{})

	assert.Contains(t, v.View(), "Initialising")
}

func TestView_View_RendersPrompt(t *testing.T) {
	v := newTestView(&mockAnswerer{})

	view := v.View()

	assert.Contains(t, view, "docqa")
	assert.Contains(t, view, "Ask")
}

func TestView_View_RendersAnswer(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.AnswerCompleted{Question: "how long?", Answer: testAnswer()})

	view := v.View()

	assert.Contains(t, view, "Q: how long?")
	assert.Contains(t, view, "Backups are kept for 30 days.")
	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "policy.md")
}

func TestView_View_RendersError(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.ErrorOccurred{Err: errors.New("provider unreachable")})

	view := v.View()

	assert.Contains(t, view, "Error: provider unreachable")
}

func TestView_Reset(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.AnswerCompleted{Question: "q", Answer: testAnswer()})

	v.Reset()

	assert.True(t, v.InputFocused())
	assert.Nil(t, v.Answer())
	assert.Equal(t, "", v.Question())
	assert.Empty(t, v.Sources())
	assert.NoError(t, v.Err())
}

func TestView_ClearError(t *testing.T) {
	v := newTestView(&mockAnswerer{})
	v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	v.ClearError()

	assert.NoError(t, v.Err())
}
