package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates all message types in the wait view.
type MsgKind int

// Msg represents all possible messages in the wait view (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSettled MsgKind = iota
	MsgOpened
)

type settled struct {
	code string
	err  error
}

// settledMsg is the constructor for [MsgSettled]
func settledMsg(code string, err error) Msg {
	return Msg{kind: MsgSettled, data: settled{code, err}}
}

// openedMsg is the constructor for [MsgOpened]; err is nil when the browser launched.
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
