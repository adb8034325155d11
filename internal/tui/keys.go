package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Fetch  key.Binding
	Save   key.Binding
	Edit   key.Binding
	Submit key.Binding
	Blur   key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
	Help   key.Binding
}

var keys = keyMap{
	Fetch: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fetch user info"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	Edit: key.NewBinding(
		key.WithKeys("tab", "e"),
		key.WithHelp("tab/e", "edit color"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Blur: key.NewBinding(
		key.WithKeys("esc", "tab"),
		key.WithHelp("esc", "done editing"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fetch, k.Save, k.Edit, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Fetch, k.Save, k.Edit},
		{k.Submit, k.Blur},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
