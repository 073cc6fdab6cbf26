package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the console.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	Search  key.Binding
	Command key.Binding
	Help    key.Binding
	Refresh key.Binding

	// List filters
	FilterStatus   key.Binding
	FilterPriority key.Binding
	ClearFilters   key.Binding
	CycleSort      key.Binding

	// Task actions
	New         key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Toggle      key.Binding
	CycleStatus key.Binding
	Notices     key.Binding
	Users       key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		FilterStatus: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "cycle status filter"),
		),
		FilterPriority: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "cycle priority filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "clear filters"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle sort"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task (admin)"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task (admin)"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete task (admin)"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle checklist item"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle status"),
		),
		Notices: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark notices read"),
		),
		Users: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "manage users (admin)"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Search, k.Command, k.Help, k.Refresh, k.Notices},
		{k.FilterStatus, k.FilterPriority, k.ClearFilters, k.CycleSort},
		{k.New, k.Edit, k.Delete, k.Toggle, k.CycleStatus, k.Users},
	}
}
