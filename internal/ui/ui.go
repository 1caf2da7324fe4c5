package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ItemListView
	ConfirmView
	SyncView
	ResultView
)

// Mirror reads the local copy of a user's playlists.
type Mirror interface {
	Snapshot(ctx context.Context, userID int64, service models.Service) (*models.Snapshot, error)
}

// Syncer reconciles the mirror with the provider.
type Syncer interface {
	SyncPlaylists(ctx context.Context, userID int64, service models.Service, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	userID       int64
	service      models.Service
	mirror       Mirror
	syncer       Syncer
	width        int
	height       int
	playlistList list.Model
	snapshot     *models.Snapshot
	itemList     list.Model
	selected     *models.Playlist
	progressChan chan tasks.ProgressUpdate
	syncDone     chan snapshotResult
	progress     tasks.ProgressUpdate
	stats        *tasks.SyncStats
	syncResult   snapshotResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a browser over the mirror of userID on service. syncer may be nil, which disables syncing.
func NewModel(ctx context.Context, userID int64, service models.Service, mirror Mirror, syncer Syncer) *Model {
	return &Model{
		ctx:     ctx,
		view:    PlaylistListView,
		userID:  userID,
		service: service,
		mirror:  mirror,
		syncer:  syncer,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the mirrored playlists.
func (m *Model) Init() tea.Cmd {
	return m.loadSnapshot()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.snapshot != nil {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.selected != nil {
			m.itemList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ItemListView:
			return m.handleItemListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshotLoaded:
		res := msg.data.(snapshotResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.err = nil
		m.setSnapshot(res.snapshot)
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if stats, ok := update.Data.(tasks.SyncStats); ok && update.Phase == tasks.SyncComplete {
			m.stats = &stats
		}
		return m, m.waitForProgress()

	case MsgSyncComplete:
		res := msg.data.(snapshotResult)
		m.syncResult = res
		m.view = ResultView
		m.progressChan = nil
		m.syncDone = nil
		if res.err == nil {
			m.setSnapshot(res.snapshot)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) setSnapshot(snapshot *models.Snapshot) {
	m.snapshot = snapshot
	items := make([]list.Item, len(snapshot.Playlists))
	for i, pl := range snapshot.Playlists {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = fmt.Sprintf("%s Playlists", m.service.Title())
	m.playlistList.SetSize(m.width-4, m.height-8)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ItemListView:
		return m.renderItemList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snapshot == nil {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.sync):
			if m.syncer != nil {
				m.view = ConfirmView
			}
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.openPlaylist(pl.playlist)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) openPlaylist(pl models.Playlist) {
	m.selected = &pl
	items := make([]list.Item, len(pl.Items))
	for i, item := range pl.Items {
		items[i] = entryItem{item: item}
	}
	m.itemList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.itemList.Title = fmt.Sprintf("Items in '%s'", pl.Title)
	m.itemList.SetSize(m.width-4, m.height-8)
	m.view = ItemListView
}

func (m *Model) handleItemListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.itemList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = PlaylistListView
			m.selected = nil
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PlaylistListView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.stats = nil
		m.syncResult = snapshotResult{}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == PlaylistListView && m.snapshot != nil:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case m.view == ItemListView && m.selected != nil:
		m.itemList, cmd = m.itemList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.mirror.Snapshot(m.ctx, m.userID, m.service)
		return snapshotLoadedMsg(snapshot, err)
	}
}

// startSync runs the sync in the background; its result arrives once the progress channel closes.
func (m *Model) startSync() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan snapshotResult, 1)
	m.progressChan = progress
	m.syncDone = done
	m.stats = nil
	m.progress = tasks.ProgressUpdate{Message: "Starting sync..."}

	go func() {
		snapshot, err := m.syncer.SyncPlaylists(m.ctx, m.userID, m.service, progress)
		done <- snapshotResult{snapshot, err}
		close(progress)
	}()

	return waitFor(progress, done)
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.progressChan == nil {
		return nil
	}
	return waitFor(m.progressChan, m.syncDone)
}

func waitFor(progress <-chan tasks.ProgressUpdate, done <-chan snapshotResult) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			res := <-done
			return syncCompleteMsg(res.snapshot, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	if m.snapshot == nil {
		return "Loading mirror..."
	}
	if len(m.snapshot.Playlists) == 0 {
		msg := fmt.Sprintf("No %s playlists mirrored yet.", m.service.Title())
		keys := []key.Binding{m.keys.quit}
		if m.syncer != nil {
			keys = []key.Binding{m.keys.sync, m.keys.quit}
		}
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView(keys))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	if m.syncer != nil {
		helpKeys = []key.Binding{m.keys.enter, m.keys.sync, m.keys.quit}
	}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderItemList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.itemList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync %s playlists now?", m.service.Title()))
	info := fmt.Sprintf("\nMirrored playlists: %d\nMirrored items: %d\n", len(m.snapshot.Playlists), m.snapshot.ItemCount())

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Syncing %s", m.service.Title()))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchPlaylists:
		phase = "Fetching playlists..."
	case tasks.SavePlaylists:
		phase = fmt.Sprintf("Saving new playlists (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.FetchItems, tasks.ResolveItems:
		phase = fmt.Sprintf("Syncing items (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.RefreshToken:
		phase = styles.warn.Render("Refreshing access token...")
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.syncResult.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Sync failed: %v", m.syncResult.err)), helpView)
	}

	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf("\nPlaylists: %d\nItems: %d", len(m.snapshot.Playlists), m.snapshot.ItemCount())
	if m.stats != nil {
		info += fmt.Sprintf("\nNew playlists: %d\nNew items: %d", m.stats.NewPlaylists, m.stats.NewItems)
		if m.stats.Skipped > 0 {
			info += "\n" + styles.warn.Render(fmt.Sprintf("Skipped items: %d", m.stats.Skipped))
		}
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
