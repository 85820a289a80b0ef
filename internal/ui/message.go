package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/xtrobe/internal/progress"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgOverviewLoaded MsgKind = iota
	MsgSessionOpened
	MsgAdvanced
)

type overviewData struct {
	overview *progress.Overview
	err      error
}

type sessionData struct {
	session *progress.Session
	err     error
}

type advanceData struct {
	session *progress.Session
	outcome progress.Outcome
	err     error
}

// overviewLoadedMsg is the constructor for [MsgOverviewLoaded]
func overviewLoadedMsg(o *progress.Overview, err error) Msg {
	return Msg{kind: MsgOverviewLoaded, data: overviewData{o, err}}
}

// sessionOpenedMsg is the constructor for [MsgSessionOpened]. The session may be set even when err is.
func sessionOpenedMsg(s *progress.Session, err error) Msg {
	return Msg{kind: MsgSessionOpened, data: sessionData{s, err}}
}

// advancedMsg is the constructor for [MsgAdvanced]. session is a copy that already reflects the move.
func advancedMsg(s *progress.Session, outcome progress.Outcome, err error) Msg {
	return Msg{kind: MsgAdvanced, data: advanceData{s, outcome, err}}
}
