package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	next    key.Binding
	prev    key.Binding
	submit  key.Binding
	back    key.Binding
	add     key.Binding
	edit    key.Binding
	delete  key.Binding
	filter  key.Binding
	watched key.Binding
	toggle  key.Binding
	refresh key.Binding
	account key.Binding
	logout  key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:    key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:    key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		edit:    key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		filter:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "genre filter")),
		watched: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watched filter")),
		toggle:  key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "toggle watched")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		account: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "register / log in")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.add, k.edit, k.delete},
		{k.filter, k.watched, k.refresh, k.logout},
		{k.next, k.prev, k.submit, k.back, k.quit},
	}
}
