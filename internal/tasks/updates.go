package tasks

import (
	"fmt"

	"github.com/desertthunder/multitune/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadCredential Phase = iota
	FetchPlaylists
	SavePlaylists
	FetchItems
	ResolveItems
	RefreshToken
	SyncComplete
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case LoadCredential:
		return "load_credential"
	case FetchPlaylists:
		return "fetch_playlists"
	case SavePlaylists:
		return "save_playlists"
	case FetchItems:
		return "fetch_items"
	case ResolveItems:
		return "resolve_items"
	case RefreshToken:
		return "refresh_token"
	case SyncComplete:
		return "sync_complete"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func loadCredentialUpdate(service models.Service) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCredential,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading %s credential...", service.Title()),
	}
}

func fetchPlaylistsUpdate(service models.Service, known int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s playlists (%d already mirrored)...", service.Title(), known),
	}
}

func savePlaylistUpdate(step, total int, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SavePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] New playlist: %s", step, total, pl.Title),
		Data:    pl,
	}
}

func fetchItemsUpdate(step, total int, pl *models.Playlist, initial bool) ProgressUpdate {
	mode := "incremental"
	if initial {
		mode = "initial"
	}
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%s sync)...", step, total, pl.Title, mode),
	}
}

func resolveItemsUpdate(pl *models.Playlist, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %d new items in %s...", count, pl.Title),
	}
}

func refreshTokenUpdate(service models.Service) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshToken,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s access token rejected, refreshing...", service.Title()),
	}
}

func syncCompleteUpdate(stats SyncStats) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncComplete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync complete: %d new playlists, %d new items", stats.NewPlaylists, stats.NewItems),
		Data:    stats,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
