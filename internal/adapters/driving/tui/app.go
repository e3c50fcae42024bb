package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

var _ tea.Model = (*App)(nil)

// App is the top-level Bubbletea model. It owns the terminal geometry
// and delegates everything else to the ask view.
type App struct {
	ports   *Ports
	ctx     context.Context
	styles  *styles.Styles
	askView *ask.View

	err    error
	width  int
	height int

	// ready flips on the first WindowSizeMsg; rendering before then
	// would use a zero-sized viewport.
	ready bool
}

// NewApp wires a TUI over the given driving ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		askView: ask.NewView(s, nil, ports.Answerer, ports.Usage, ports.Defaults),
	}, nil
}

// WithContext sets the context used for answer calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("docqa - Ask Your Documents"),
		a.askView.Init(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.ready = true
		a.askView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// ctrl+c quits regardless of view state.
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case messages.Quit:
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.askView, cmd = a.askView.Update(msg)
	a.err = a.askView.Err()
	return a, cmd
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.askView.View()
}

// Run blocks until the user quits.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

// Question returns the question the current answer responds to.
func (a *App) Question() string { return a.askView.Question() }

// Answer returns the current answer, or nil before the first one.
func (a *App) Answer() *domain.Answer { return a.askView.Answer() }

// Sources returns the passages grounding the current answer.
func (a *App) Sources() []domain.SearchResult { return a.askView.Sources() }

// SelectedIndex returns the index of the selected passage.
func (a *App) SelectedIndex() int { return a.askView.SelectedIndex() }

// Err returns the last error surfaced by the ask view.
func (a *App) Err() error { return a.err }

// Ready reports whether the first resize has arrived.
func (a *App) Ready() bool { return a.ready }

// SetDimensions sizes the app without a real terminal.
func (a *App) SetDimensions(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.askView.SetDimensions(width, height)
}
