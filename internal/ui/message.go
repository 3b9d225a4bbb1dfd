package ui

import tea "github.com/charmbracelet/bubbletea"

// MsgKind enumerates all message types in the monitor.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgStatusFetched MsgKind = iota
	MsgQueueFetched
	MsgActionDone
	MsgTick
)

type statusFetchedData struct {
	status StatusView
	err    error
}

func statusFetchedMsg(status StatusView, err error) Msg {
	return Msg{kind: MsgStatusFetched, data: statusFetchedData{status, err}}
}

type queueFetchedData struct {
	queue QueueView
	err   error
}

func queueFetchedMsg(queue QueueView, err error) Msg {
	return Msg{kind: MsgQueueFetched, data: queueFetchedData{queue, err}}
}

type actionDoneData struct {
	label string
	err   error
}

func actionDoneMsg(label string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDoneData{label, err}}
}

func tickMsg() Msg { return Msg{kind: MsgTick} }
