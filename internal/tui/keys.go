package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Clear   key.Binding
	Bottom  key.Binding
	Quit    key.Binding
	Close   key.Binding
	PageUp  key.Binding
	PageDwn key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "older")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "newer")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "preview")),
		Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Bottom:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "latest")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Close:   key.NewBinding(key.WithKeys("esc", "enter", "q")),
		PageUp:  key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
		PageDwn: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Bottom, k.Quit}
}
