package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	open     key.Binding
	restart  key.Binding
	resume   key.Binding
	next     key.Binding
	back     key.Binding
	scrollUp key.Binding
	scrollDn key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		restart:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start over")),
		resume:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "continue")),
		next:     key.NewBinding(key.WithKeys("n", "right", "l", " "), key.WithHelp("n/→", "next")),
		back:     key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "modules")),
		scrollUp: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll")),
		scrollDn: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.open, k.restart, k.resume},
		{k.next, k.back, k.quit},
	}
}
