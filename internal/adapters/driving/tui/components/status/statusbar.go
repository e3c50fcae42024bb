// Package status renders the bottom bar: session state on the left,
// keybinding hints on the right, usage totals in between.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// State is the session phase shown in the bar.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateAnswered State = "answered"
	StateError    State = "error"
)

// Bar is a passive component. The owning view drives it through the
// setters; Update never changes state.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	usage   domain.UsageTotals
	width   int
}

// NewBar builds a bar, substituting defaults for nil styles or keymap.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

func (s *Bar) Init() tea.Cmd {
	return nil
}

func (s *Bar) Update(tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View lays out the left and right halves with whatever padding the
// width allows, minimum one space.
func (s *Bar) View() string {
	left := s.stateLabel()
	if usage := s.usageLabel(); usage != "" {
		left += s.styles.Muted.Render("  " + usage)
	}
	right := s.hints()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) stateLabel() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Thinking...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateAnswered:
		if s.message != "" {
			return s.styles.Normal.Render(s.message)
		}
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) usageLabel() string {
	if s.usage.Calls == 0 {
		return ""
	}
	return fmt.Sprintf("%d in / %d out / $%.4f",
		s.usage.InputUnits, s.usage.OutputUnits, s.usage.Cost)
}

func (s *Bar) hints() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateAnswered {
		bindings = s.keymap.AnswerHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func (s *Bar) SetState(state State) { s.state = state }

func (s *Bar) State() State { return s.state }

func (s *Bar) SetMessage(message string) { s.message = message }

func (s *Bar) Message() string { return s.message }

func (s *Bar) SetUsage(usage domain.UsageTotals) { s.usage = usage }

func (s *Bar) Usage() domain.UsageTotals { return s.usage }

func (s *Bar) SetWidth(width int) { s.width = width }

func (s *Bar) Width() int { return s.width }

// Clear resets the bar to its initial state, width excepted.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.usage = domain.UsageTotals{}
}
