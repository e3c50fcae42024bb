// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds every binding the ask view understands. Ask and Expand
// share enter; the view picks the right one from its focus state.
type KeyMap struct {
	Quit        key.Binding
	Ask         key.Binding
	Up          key.Binding
	Down        key.Binding
	NewQuestion key.Binding
	Expand      key.Binding
	Cancel      key.Binding
}

func bind(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	k := &KeyMap{
		Quit:        bind("quit", "ctrl+c"),
		Ask:         bind("ask", "enter"),
		Up:          bind("up", "up", "k"),
		Down:        bind("down", "down", "j"),
		NewQuestion: bind("new question", "n"),
		Expand:      bind("expand", "enter"),
		Cancel:      bind("cancel", "esc"),
	}
	k.Up.SetHelp("↑/k", "up")
	k.Down.SetHelp("↓/j", "down")
	return k
}

// ShortHelp returns the keybindings shown while typing a question.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Quit}
}

// AnswerHelp returns the keybindings shown with an answer on screen.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.Expand, k.Quit}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand},
		{k.Ask, k.NewQuestion, k.Cancel},
		{k.Quit},
	}
}

// Matches reports whether a raw key string is one of the binding's
// keys.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
