package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap contains all keyboard shortcuts organized by context
type KeyMap struct {
	Application ApplicationKeys
	Navigation  NavigationKeys
	Thought     ThoughtKeys
}

// NewKeyMap creates a new KeyMap with all key bindings initialized
func NewKeyMap() KeyMap {
	return KeyMap{
		Application: newApplicationKeys(),
		Navigation:  newNavigationKeys(),
		Thought:     newThoughtKeys(),
	}
}

// ApplicationKeys defines key bindings for application-level actions
type ApplicationKeys struct {
	Capture   key.Binding
	Cleanse   key.Binding
	ForceQuit key.Binding
	Quit      key.Binding
	Undo      key.Binding
}

func newApplicationKeys() ApplicationKeys {
	return ApplicationKeys{
		Capture: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new thought"),
		),
		Cleanse: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "cleanse view"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo"),
		),
	}
}

// NavigationKeys defines key bindings for moving around the thought views
type NavigationKeys struct {
	Down     key.Binding
	NextView key.Binding
	PrevView key.Binding
	Up       key.Binding
}

func newNavigationKeys() NavigationKeys {
	return NavigationKeys{
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextView: key.NewBinding(
			key.WithKeys("tab", "l"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab", "h"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
	}
}

// ThoughtKeys defines key bindings acting on the selected thought
type ThoughtKeys struct {
	Calendar    key.Binding
	Deconstruct key.Binding
	Done        key.Binding
	Release     key.Binding
	Sort        key.Binding
	ToggleStep  key.Binding
}

func newThoughtKeys() ThoughtKeys {
	return ThoughtKeys{
		Calendar: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "calendar link"),
		),
		Deconstruct: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "deconstruct"),
		),
		Done: key.NewBinding(
			key.WithKeys(" ", "d"),
			key.WithHelp("space", "done"),
		),
		Release: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "release"),
		),
		Sort: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "sort"),
		),
		ToggleStep: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle step"),
		),
	}
}
