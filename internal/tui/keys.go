package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the inbox TUI.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Status tabs.
	TabOpen    key.Binding
	TabPending key.Binding
	TabClosed  key.Binding

	// Pagination.
	PrevPage  key.Binding
	NextPage  key.Binding
	PageSize  key.Binding
	Search    key.Binding
	Select    key.Binding
	Compose   key.Binding
	Send      key.Binding
	Cancel    key.Binding
	Status    key.Binding // cycle the selected ticket's status
	Retry     key.Binding
	Refresh   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	TabOpen: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "open"),
	),
	TabPending: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "pending"),
	),
	TabClosed: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "closed"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("[", "left"),
		key.WithHelp("[", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("]", "right"),
		key.WithHelp("]", "next page"),
	),
	PageSize: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "page size"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "open"),
	),
	Compose: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reply"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "send"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Status: key.NewBinding(
		key.WithKeys("S"),
		key.WithHelp("S", "cycle status"),
	),
	Retry: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "retry"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}
