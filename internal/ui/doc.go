// Package ui implements an interactive terminal browser for the playlist mirror using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow:
//  1. [PlaylistListView] : Browse mirrored playlists for one service
//  2. [ItemListView] : Browse the items of a playlist
//  3. [ConfirmView] : Confirm a sync with the provider
//  4. [SyncView] : Monitor real-time sync progress
//  5. [ResultView] : Display what the sync added
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the SyncEngine, providing non-blocking status reporting during syncs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
