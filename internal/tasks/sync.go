package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/services"
	"github.com/desertthunder/multitune/internal/shared"
)

// syncRun holds the state of one SyncPlaylists call. The refresh budget is one exchange per run.
type syncRun struct {
	*SyncEngine
	userID    int64
	service   models.Service
	provider  services.Provider
	cred      *models.Credential
	progress  chan<- ProgressUpdate
	refreshed bool
	stats     SyncStats
}

func (e *SyncEngine) sync(ctx context.Context, userID int64, service models.Service, progress chan<- ProgressUpdate) (*models.Snapshot, error) {
	provider, err := e.providers.Get(service)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, loadCredentialUpdate(service))
	cred, err := e.creds.Get(ctx, userID, service)
	if err != nil {
		return nil, err
	}

	run := &syncRun{
		SyncEngine: e,
		userID:     userID,
		service:    service,
		provider:   provider,
		cred:       cred,
		progress:   progress,
		stats:      SyncStats{Service: service},
	}

	start := time.Now()
	if err := run.playlists(ctx); err != nil {
		e.logger.Error("sync failed", "user", userID, "service", service, "err", err)
		return nil, err
	}

	snapshot, err := e.mirror.Snapshot(ctx, userID, service)
	if err != nil {
		return nil, err
	}

	e.logger.Info("sync complete",
		"user", userID,
		"service", service,
		"playlists", len(snapshot.Playlists),
		"new_playlists", run.stats.NewPlaylists,
		"new_items", run.stats.NewItems,
		"skipped", run.stats.Skipped,
		"refreshed", run.stats.Refreshed,
		"took", time.Since(start).Round(time.Millisecond),
	)
	sendProgress(progress, syncCompleteUpdate(run.stats))
	return snapshot, nil
}

// playlists discovers new remote playlists, then syncs the items of every mirrored playlist.
func (r *syncRun) playlists(ctx context.Context) error {
	local, err := r.mirror.ListByUser(ctx, r.userID, r.service)
	if err != nil {
		return err
	}

	known := make(map[string]int64, len(local))
	mirrored := make([]models.Playlist, 0, len(local))
	for _, pl := range local {
		known[pl.ExternalID] = pl.ID
		mirrored = append(mirrored, pl)
	}

	sendProgress(r.progress, fetchPlaylistsUpdate(r.service, len(known)))
	remote, err := withToken(ctx, r, func(token string) ([]services.RemotePlaylist, error) {
		return r.provider.ListPlaylists(ctx, token)
	})
	if err != nil {
		return err
	}

	var fresh []services.RemotePlaylist
	for _, rp := range remote {
		if rp.ExternalID == "" {
			continue
		}
		if _, ok := known[rp.ExternalID]; ok {
			continue
		}
		known[rp.ExternalID] = 0
		fresh = append(fresh, rp)
	}

	for i, rp := range fresh {
		pl := models.Playlist{
			UserID:       r.userID,
			Service:      r.service,
			ExternalID:   rp.ExternalID,
			Title:        rp.Title,
			Description:  rp.Description,
			ThumbnailURL: rp.ThumbnailURL,
		}
		id, err := r.mirror.UpsertPlaylist(ctx, &pl)
		if err != nil {
			return err
		}
		known[rp.ExternalID] = id
		mirrored = append(mirrored, pl)
		r.stats.NewPlaylists++
		sendProgress(r.progress, savePlaylistUpdate(i+1, len(fresh), &pl))
	}

	for i := range mirrored {
		if err := r.items(ctx, &mirrored[i], i+1, len(mirrored)); err != nil {
			return err
		}
	}
	return nil
}

// items mirrors one playlist. An empty playlist gets a full listing; otherwise only references are listed and
// detail is resolved for the unknown subset.
func (r *syncRun) items(ctx context.Context, pl *models.Playlist, step, total int) error {
	existing, err := r.mirror.ItemIDs(ctx, pl.ID)
	if err != nil {
		return err
	}

	initial := len(existing) == 0
	sendProgress(r.progress, fetchItemsUpdate(step, total, pl, initial))

	listing, err := withToken(ctx, r, func(token string) ([]services.RemoteItem, error) {
		return r.provider.ListItems(ctx, token, pl.ExternalID, initial)
	})
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(existing)+len(listing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	var (
		pending   []services.RemoteItem
		positions = make(map[string]int64)
	)
	for ordinal, item := range listing {
		if item.ExternalID == "" {
			r.stats.Skipped++
			r.logger.Warn("skipping item without external id", "playlist", pl.ExternalID, "index", ordinal)
			continue
		}
		if _, ok := seen[item.ExternalID]; ok {
			continue
		}
		seen[item.ExternalID] = struct{}{}

		pos := int64(ordinal)
		if item.Position != nil {
			pos = *item.Position
		}
		positions[item.ExternalID] = pos
		pending = append(pending, item)
	}

	if len(pending) == 0 {
		return nil
	}

	if !initial {
		ids := make([]string, len(pending))
		for i, item := range pending {
			ids[i] = item.ExternalID
		}

		sendProgress(r.progress, resolveItemsUpdate(pl, len(ids)))
		resolved, err := withToken(ctx, r, func(token string) ([]services.RemoteItem, error) {
			return r.provider.ResolveItems(ctx, token, ids)
		})
		if err != nil {
			return err
		}

		byID := make(map[string]services.RemoteItem, len(resolved))
		for _, item := range resolved {
			byID[item.ExternalID] = item
		}

		// Items the provider no longer details (private, deleted) keep their listing reference so later
		// runs see them as known.
		for i, ref := range pending {
			if item, ok := byID[ref.ExternalID]; ok {
				pending[i] = item
				continue
			}
			r.logger.Warn("item detail unavailable, storing reference", "playlist", pl.ExternalID, "item", ref.ExternalID)
		}
	}

	for _, item := range pending {
		row := playlistItem(pl.ID, item)
		row.Position = models.Int64Ptr(positions[item.ExternalID])
		if _, err := r.mirror.UpsertItem(ctx, row); err != nil {
			return err
		}
		r.stats.NewItems++
	}

	r.logger.Debug("playlist synced", "playlist", pl.ExternalID, "initial", initial, "new_items", len(pending))
	return nil
}

// withToken calls fn with the current access token. On an unauthorized response it refreshes the token once per
// run, persists it and retries fn exactly once.
func withToken[T any](ctx context.Context, r *syncRun, fn func(token string) (T, error)) (T, error) {
	result, err := fn(r.cred.AccessToken)
	if !errors.Is(err, shared.ErrUnauthorized) {
		return result, err
	}

	var zero T
	if r.refreshed {
		return zero, &shared.AuthExpiredError{Service: r.service.String(), Cause: err}
	}
	r.refreshed = true

	if err := r.refresh(ctx, err); err != nil {
		return zero, err
	}

	result, err = fn(r.cred.AccessToken)
	if errors.Is(err, shared.ErrUnauthorized) {
		return zero, &shared.AuthExpiredError{Service: r.service.String(), Cause: err}
	}
	return result, err
}

// refresh exchanges the stored refresh token and persists the result. cause is the rejection that triggered it.
func (r *syncRun) refresh(ctx context.Context, cause error) error {
	if !r.cred.CanRefresh() || r.refresher == nil {
		return &shared.AuthExpiredError{Service: r.service.String(), Cause: cause}
	}

	sendProgress(r.progress, refreshTokenUpdate(r.service))
	r.logger.Info("access token rejected, refreshing", "user", r.userID, "service", r.service)

	tok, err := r.refresher.Refresh(ctx, r.service, r.cred.RefreshToken)
	if err != nil {
		r.logger.Warn("token refresh failed", "user", r.userID, "service", r.service, "err", err)
		return &shared.AuthExpiredError{Service: r.service.String(), Cause: err}
	}

	var rotated string
	if tok.RefreshToken != "" && tok.RefreshToken != r.cred.RefreshToken {
		rotated = tok.RefreshToken
	}
	var expiresAt *time.Time
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		expiresAt = &exp
	}

	if err := r.creds.UpdateTokens(ctx, r.userID, r.service, tok.AccessToken, rotated, expiresAt); err != nil {
		return err
	}

	r.cred.AccessToken = tok.AccessToken
	if rotated != "" {
		r.cred.RefreshToken = rotated
	}
	r.cred.ExpiresAt = expiresAt
	r.stats.Refreshed = true
	return nil
}

func playlistItem(playlistID int64, item services.RemoteItem) *models.PlaylistItem {
	return &models.PlaylistItem{
		PlaylistID:   playlistID,
		ExternalID:   item.ExternalID,
		Title:        item.Title,
		Description:  item.Description,
		PublishedAt:  item.PublishedAt,
		ChannelTitle: item.ChannelTitle,
		ChannelID:    item.ChannelID,
		ThumbnailURL: item.ThumbnailURL,
	}
}
