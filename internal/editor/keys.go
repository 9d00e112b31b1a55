package editor

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the line editor's full key-binding table, one key.Binding
// per editing action.
type KeyMap struct {
	Left, Right       key.Binding
	WordLeft, WordRight key.Binding
	Home, End         key.Binding
	Backspace, Delete key.Binding
	KillLineForward   key.Binding // ctrl+k
	KillLineBackward  key.Binding // ctrl+u
	KillWordBackward  key.Binding // ctrl+w
	KillWordForward   key.Binding // alt+d
	Transpose         key.Binding // ctrl+t
	Yank              key.Binding // ctrl+y
	Undo              key.Binding // ctrl+_
	HistoryUp         key.Binding
	HistoryDown       key.Binding
	SearchStart       key.Binding // ctrl+r
	Complete          key.Binding // tab
	Cancel            key.Binding // esc
	Interrupt         key.Binding // ctrl+c
	Accept            key.Binding // enter
	EOF               key.Binding // ctrl+d
	ClearScreen       key.Binding // ctrl+l
}

// DefaultKeyMap returns the standard emacs-style bindings (ctrl+a/e
// movement, ctrl+k/u/w kill-ring, ctrl+r search).
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left:             key.NewBinding(key.WithKeys("left", "ctrl+b")),
		Right:            key.NewBinding(key.WithKeys("right", "ctrl+f")),
		WordLeft:         key.NewBinding(key.WithKeys("alt+left", "alt+b")),
		WordRight:        key.NewBinding(key.WithKeys("alt+right", "alt+f")),
		Home:             key.NewBinding(key.WithKeys("home", "ctrl+a")),
		End:              key.NewBinding(key.WithKeys("end", "ctrl+e")),
		Backspace:        key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
		Delete:           key.NewBinding(key.WithKeys("delete", "ctrl+d")),
		KillLineForward:  key.NewBinding(key.WithKeys("ctrl+k")),
		KillLineBackward: key.NewBinding(key.WithKeys("ctrl+u")),
		KillWordBackward: key.NewBinding(key.WithKeys("ctrl+w")),
		KillWordForward:  key.NewBinding(key.WithKeys("alt+d")),
		Transpose:        key.NewBinding(key.WithKeys("ctrl+t")),
		Yank:             key.NewBinding(key.WithKeys("ctrl+y")),
		Undo:             key.NewBinding(key.WithKeys("ctrl+_", "ctrl+z")),
		HistoryUp:        key.NewBinding(key.WithKeys("up")),
		HistoryDown:      key.NewBinding(key.WithKeys("down")),
		SearchStart:      key.NewBinding(key.WithKeys("ctrl+r")),
		Complete:         key.NewBinding(key.WithKeys("tab")),
		Cancel:           key.NewBinding(key.WithKeys("esc")),
		Interrupt:        key.NewBinding(key.WithKeys("ctrl+c")),
		Accept:           key.NewBinding(key.WithKeys("enter")),
		EOF:              key.NewBinding(key.WithKeys("ctrl+d")),
		ClearScreen:      key.NewBinding(key.WithKeys("ctrl+l")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Complete, k.SearchStart, k.Interrupt}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Home, k.End},
		{k.KillLineForward, k.KillLineBackward, k.KillWordBackward, k.Yank},
		{k.HistoryUp, k.HistoryDown, k.SearchStart},
		{k.Complete, k.Cancel, k.Accept, k.Interrupt, k.EOF},
	}
}
