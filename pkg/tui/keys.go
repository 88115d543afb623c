package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Left         key.Binding
	Right        key.Binding
	Enter        key.Binding
	Space        key.Binding
	Tab          key.Binding
	Edit         key.Binding
	Add          key.Binding
	AddTop       key.Binding
	Delete       key.Binding
	Deadline     key.Binding
	Color        key.Binding
	Link         key.Binding
	Unlink       key.Binding
	Family       key.Binding
	ToggleExpand key.Binding
	Reload       key.Binding
	Sync         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle expand"),
		),
		Space: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle achieved"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit description"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add sub-goal"),
		),
		AddTop: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "add top-level goal"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Deadline: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "set deadline"),
		),
		Color: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cycle color"),
		),
		Link: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "add parent"),
		),
		Unlink: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unlink from parent"),
		),
		Family: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "family filter"),
		),
		ToggleExpand: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "toggle expand/collapse all"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "git sync"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the footer help text.
func (k KeyMap) ShortHelp() string {
	return "↑↓ nav  space achieved  e edit  D deadline  a/A add  p/u link  f family  ? help"
}

// FullHelp returns all key bindings for the help modal.
func (k KeyMap) FullHelp() [][]string {
	return [][]string{
		{"↑/k", "Move up"},
		{"↓/j", "Move down"},
		{"←/h", "Collapse"},
		{"→/l", "Expand"},
		{"enter", "Toggle expand/collapse"},
		{"space", "Toggle achieved"},
		{"tab", "Switch pane (tree / details)"},
		{"e", "Edit description"},
		{"D", "Set deadline (YYYY-MM-DD, empty clears)"},
		{"c", "Cycle color"},
		{"a", "Add sub-goal under selection"},
		{"A", "Add top-level goal"},
		{"p", "Add a parent by ID"},
		{"u", "Unlink from the parent shown above"},
		{"d", "Delete goal (with confirmation)"},
		{"f", "Show only the selected goal's family"},
		{"C", "Toggle expand/collapse all"},
		{"R", "Reload from storage"},
		{"s", "Git sync"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
}
