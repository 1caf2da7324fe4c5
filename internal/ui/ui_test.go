package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/tasks"
)

type stubMirror struct {
	snapshot *models.Snapshot
	err      error
}

func (s stubMirror) Snapshot(context.Context, int64, models.Service) (*models.Snapshot, error) {
	return s.snapshot, s.err
}

type stubSyncer struct {
	snapshot *models.Snapshot
	err      error
}

func (s stubSyncer) SyncPlaylists(_ context.Context, _ int64, _ models.Service, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error) {
	progress <- tasks.ProgressUpdate{Phase: tasks.FetchPlaylists, Message: "Fetching"}
	progress <- tasks.ProgressUpdate{Phase: tasks.SyncComplete, Data: tasks.SyncStats{NewPlaylists: 1, NewItems: 2}}
	return s.snapshot, s.err
}

func mirrored() *models.Snapshot {
	return &models.Snapshot{Playlists: []models.Playlist{
		{ID: 1, Title: "Road Trip", Items: []models.PlaylistItem{
			{ExternalID: "a", Title: "Song A", ChannelTitle: "Band"},
			{ExternalID: "b"},
		}},
	}}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and feeds resulting messages back into the model until no command remains.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 20; i++ {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func TestModel_Browse(t *testing.T) {
	m := NewModel(context.Background(), 1, models.YouTube, stubMirror{snapshot: mirrored()}, nil)
	drain(t, m, m.Init())
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	if !strings.Contains(m.View(), "Road Trip") {
		t.Fatalf("expected playlist in view, got:\n%s", m.View())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.view != ItemListView {
		t.Fatalf("expected item view, got %v", m.view)
	}
	view := m.View()
	if !strings.Contains(view, "Song A") || !strings.Contains(view, "b") {
		t.Errorf("expected items in view, got:\n%s", view)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.view != PlaylistListView {
		t.Errorf("expected playlist view after esc, got %v", m.view)
	}

	t.Run("sync disabled without syncer", func(t *testing.T) {
		m.Update(keyPress("s"))
		if m.view != PlaylistListView {
			t.Errorf("sync should be disabled, got view %v", m.view)
		}
	})
}

func TestModel_Sync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := NewModel(context.Background(), 1, models.YouTube,
			stubMirror{snapshot: &models.Snapshot{}},
			stubSyncer{snapshot: mirrored()},
		)
		drain(t, m, m.Init())
		if !strings.Contains(m.View(), "No YouTube playlists mirrored yet") {
			t.Fatalf("expected empty mirror message, got:\n%s", m.View())
		}

		m.Update(keyPress("s"))
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}

		_, cmd := m.Update(keyPress("y"))
		if m.view != SyncView {
			t.Fatalf("expected sync view, got %v", m.view)
		}
		drain(t, m, cmd)

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if m.stats == nil || m.stats.NewItems != 2 {
			t.Errorf("expected stats from completion update, got %+v", m.stats)
		}
		view := m.View()
		if !strings.Contains(view, "Sync Complete") || !strings.Contains(view, "New items: 2") {
			t.Errorf("unexpected result view:\n%s", view)
		}

		m.Update(keyPress("r"))
		if m.view != PlaylistListView || len(m.snapshot.Playlists) != 1 {
			t.Errorf("expected refreshed playlist view, got view %v with %d playlists", m.view, len(m.snapshot.Playlists))
		}
	})

	t.Run("failure", func(t *testing.T) {
		m := NewModel(context.Background(), 1, models.YouTube,
			stubMirror{snapshot: mirrored()},
			stubSyncer{err: errors.New("authorization expired")},
		)
		drain(t, m, m.Init())
		m.Update(keyPress("s"))
		_, cmd := m.Update(keyPress("y"))
		drain(t, m, cmd)

		if !strings.Contains(m.View(), "Sync failed: authorization expired") {
			t.Errorf("expected failure in view, got:\n%s", m.View())
		}
	})

	t.Run("decline", func(t *testing.T) {
		m := NewModel(context.Background(), 1, models.YouTube, stubMirror{snapshot: mirrored()}, stubSyncer{})
		drain(t, m, m.Init())
		m.Update(keyPress("s"))
		m.Update(keyPress("n"))
		if m.view != PlaylistListView {
			t.Errorf("expected playlist view, got %v", m.view)
		}
	})
}

func TestModel_LoadError(t *testing.T) {
	m := NewModel(context.Background(), 1, models.Spotify, stubMirror{err: errors.New("store down")}, nil)
	drain(t, m, m.Init())

	if !strings.Contains(m.View(), "Error: store down") {
		t.Errorf("expected error view, got:\n%s", m.View())
	}
}

func TestEntryItem_Description(t *testing.T) {
	if got := (entryItem{item: models.PlaylistItem{ExternalID: "x"}}).Title(); got != "x" {
		t.Errorf("expected external id as fallback title, got %q", got)
	}
	if got := (entryItem{item: models.PlaylistItem{ChannelTitle: "Band"}}).Description(); got != "Band" {
		t.Errorf("unexpected description %q", got)
	}
}
