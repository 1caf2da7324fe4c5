// package tasks implements the playlist mirror operations that sit between provider APIs and the local store.
//
// The core abstraction is SyncEngine, which reconciles remote playlists and items against the mirror.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/services"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// CredentialStore reads and rotates stored provider credentials.
type CredentialStore interface {
	Get(ctx context.Context, userID int64, service models.Service) (*models.Credential, error)
	UpdateTokens(ctx context.Context, userID int64, service models.Service, accessToken, refreshToken string, expiresAt *time.Time) error
}

// MirrorStore is the local copy of a user's playlists and items.
type MirrorStore interface {
	ListByUser(ctx context.Context, userID int64, service models.Service) ([]models.Playlist, error)
	UpsertPlaylist(ctx context.Context, playlist *models.Playlist) (int64, error)
	ItemIDs(ctx context.Context, playlistID int64) ([]string, error)
	UpsertItem(ctx context.Context, item *models.PlaylistItem) (int64, error)
	Snapshot(ctx context.Context, userID int64, service models.Service) (*models.Snapshot, error)
}

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, service models.Service, refreshToken string) (*oauth2.Token, error)
}

// SyncStats counts what a sync run wrote.
type SyncStats struct {
	Service      models.Service
	NewPlaylists int
	NewItems     int
	Skipped      int
	Refreshed    bool
}

// SyncEngine mirrors remote playlists into the local store.
//
// Concurrent calls for the same user and service share a single run.
type SyncEngine struct {
	creds     CredentialStore
	mirror    MirrorStore
	providers services.Registry
	refresher TokenRefresher
	logger    *log.Logger
	group     singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context of one shared run, cancelled once no caller is waiting on it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// relayBuffer bounds the progress updates a run queues for its leading caller.
const relayBuffer = 64

// NewSyncEngine creates a new SyncEngine with the provided stores and providers.
func NewSyncEngine(creds CredentialStore, mirror MirrorStore, providers services.Registry, refresher TokenRefresher, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncEngine{
		creds:     creds,
		mirror:    mirror,
		providers: providers,
		refresher: refresher,
		logger:    logger,
		flights:   make(map[string]*flight),
	}
}

// SyncPlaylists reconciles the user's playlists on service with the local mirror and returns the mirrored state.
//
// Progress updates are optional; pass a nil channel to disable them. A caller that joins an in-flight run for the
// same user and service receives that run's snapshot and no progress updates. Each caller stops waiting when its
// own ctx is done; the shared run is cancelled only after every caller has stopped waiting.
func (e *SyncEngine) SyncPlaylists(ctx context.Context, userID int64, service models.Service, progress chan<- ProgressUpdate) (*models.Snapshot, error) {
	key := fmt.Sprintf("%d/%s", userID, service)
	relay := make(chan ProgressUpdate, relayBuffer)

	e.mu.Lock()
	f, ok := e.flights[key]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel}
		e.flights[key] = f
	}
	f.waiters++
	results := e.group.DoChan(key, func() (any, error) {
		defer e.land(key, f)
		return e.sync(f.ctx, userID, service, relay)
	})
	e.mu.Unlock()
	defer e.leave(key, f)

	for {
		select {
		case update := <-relay:
			sendProgress(progress, update)
		case res := <-results:
			for drained := false; !drained; {
				select {
				case update := <-relay:
					sendProgress(progress, update)
				default:
					drained = true
				}
			}
			if res.Shared {
				e.logger.Debug("sync result shared with concurrent caller", "user", userID, "service", service)
			}
			if res.Err != nil {
				return nil, res.Err
			}
			return res.Val.(*models.Snapshot), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// land releases a finished run's flight.
func (e *SyncEngine) land(key string, f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flights[key] == f {
		delete(e.flights, key)
	}
	f.cancel()
}

// leave drops one waiter from f. The last waiter out cancels the run and forgets it so the next caller starts over.
func (e *SyncEngine) leave(key string, f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if e.flights[key] == f {
		delete(e.flights, key)
		e.group.Forget(key)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
