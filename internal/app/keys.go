package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the TUI.
type KeyMap struct {
	Live      key.Binding
	Scan      key.Binding
	Interface key.Binding
	Duration  key.Binding
	Reload    key.Binding
	Events    key.Binding
	Help      key.Binding
	Up        key.Binding
	Down      key.Binding
	Escape    key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Live: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "start/stop live"),
		),
		Scan: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start/stop scan"),
		),
		Interface: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "scan interface"),
		),
		Duration: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "scan duration"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload stats"),
		),
		Events: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "event log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
