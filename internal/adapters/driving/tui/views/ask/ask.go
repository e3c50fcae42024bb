// Package ask provides the interactive question session view for the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

// UsageSource reports accumulated provider usage for the session footer.
type UsageSource interface {
	Totals() domain.UsageTotals
}

// View represents the ask session with input, answer, sources, and status bar.
// It alternates between two modes: input mode, where keystrokes feed the
// question field, and answer mode, where they navigate the sources.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *list.SourceList
	statusbar *status.Bar

	answerer driving.Answerer
	usage    UsageSource
	defaults domain.RetrieveOptions
	ctx      context.Context

	question string
	answer   *domain.Answer

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
	asking     bool
}

// NewView creates a new ask session view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerer driving.Answerer,
	usage UsageSource,
	defaults domain.RetrieveOptions,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		sources:    list.NewSourceList(s),
		statusbar:  status.NewBar(s, km),
		answerer:   answerer,
		usage:      usage,
		defaults:   defaults,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.showError(msg.Err)
		return v, nil
	}

	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	return v, inputCmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Esc signals to leave the session.
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg { return messages.Quit{} }
	}

	// A question in flight ignores everything else.
	if v.asking {
		return v, nil
	}

	if v.focusInput {
		return v.handleInputMode(msg)
	}
	return v.handleAnswerMode(msg)
}

// handleInputMode feeds keys to the question field. Enter submits.
func (v *View) handleInputMode(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	question := v.input.Value()
	if question == "" {
		return v, nil
	}

	v.question = question
	v.asking = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.focusInput = false
	v.input.Blur()
	return v, v.performAsk(question)
}

// handleAnswerMode navigates the sources. Enter toggles the selected
// passage's full text; n starts a fresh question.
func (v *View) handleAnswerMode(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if !v.sources.IsEmpty() {
			v.sources.ToggleExpand()
		}
		return v, nil
	}

	switch msg.String() {
	case "up", "k":
		v.sources.MoveUp()
	case "down", "j":
		v.sources.MoveDown()
	case "n":
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
	}
	return v, nil
}

// performAsk answers the question and reports the outcome.
func (v *View) performAsk(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerer == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerer}
		}

		answer, err := v.answerer.Ask(v.ctx, question, v.defaults)
		return messages.AnswerCompleted{Question: question, Answer: answer, Err: err}
	}
}

// handleAnswerCompleted processes a generated answer.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	v.asking = false
	v.refreshUsage()

	if msg.Err != nil {
		err := msg.Err
		if errors.Is(err, domain.ErrNotFound) {
			err = errors.New("no relevant passages found, index your corpus first")
		}
		v.showError(err)
		return
	}

	v.err = nil
	v.question = msg.Question
	v.answer = msg.Answer
	v.sources.SetPassages(msg.Answer.Results)
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetMessage(fmt.Sprintf("%d in / %d out",
		msg.Answer.Usage.InputTokens, msg.Answer.Usage.OutputTokens))

	// Stay out of input mode so the sources are navigable.
	v.focusInput = false
	v.input.Blur()
}

func (v *View) showError(err error) {
	v.err = err
	v.asking = false
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// refreshUsage pulls the session totals into the status bar.
func (v *View) refreshUsage() {
	if v.usage == nil {
		return
	}
	v.statusbar.SetUsage(v.usage.Totals())
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.styles.Title.Render("docqa"), "", v.input.View(), ""}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.answer != nil {
		sections = append(sections,
			v.styles.Subtitle.Render("Q: "+v.question),
			v.styles.Answer.Width(v.width-4).Render(v.answer.Text),
			"",
			v.sources.View())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions and shares them out to the
// components. The source list loses twelve rows to the header, input,
// answer, and status bar.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.sources.SetDimensions(width, height-12)
	v.statusbar.SetWidth(width)
}

func (v *View) Width() int  { return v.width }
func (v *View) Height() int { return v.height }

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool { return v.ready }

// Question returns the question the current answer responds to.
func (v *View) Question() string { return v.question }

// SetQuestion sets the question input value.
func (v *View) SetQuestion(question string) {
	v.input.SetValue(question)
}

// Answer returns the current answer, or nil before the first one.
func (v *View) Answer() *domain.Answer { return v.answer }

// Sources returns the passages grounding the current answer.
func (v *View) Sources() []domain.SearchResult {
	return v.sources.Passages()
}

// SelectedIndex returns the index of the selected passage.
func (v *View) SelectedIndex() int { return v.sources.Selected() }

// Err returns the current error, if any.
func (v *View) Err() error { return v.err }

// Asking returns whether a question is in flight.
func (v *View) Asking() bool { return v.asking }

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool { return v.focusInput }

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.question = ""
	v.answer = nil
	v.asking = false
	v.sources.SetPassages(nil)
	v.ClearError()
	v.refreshUsage()
}
