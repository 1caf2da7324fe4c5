package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/tasks"
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
	MsgSnapshotLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

// snapshotResult is the payload of [MsgSnapshotLoaded] and [MsgSyncComplete].
type snapshotResult struct {
	snapshot *models.Snapshot
	err      error
}

// snapshotLoadedMsg is the constructor for [MsgSnapshotLoaded]
func snapshotLoadedMsg(snapshot *models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshotLoaded, data: snapshotResult{snapshot, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(snapshot *models.Snapshot, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: snapshotResult{snapshot, err}}
}
