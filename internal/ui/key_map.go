package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	sync   key.Binding
	pause  key.Binding
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		sync:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
		pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		cancel: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel download")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.sync, k.pause, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.sync, k.pause, k.cancel},
		{k.quit},
	}
}
