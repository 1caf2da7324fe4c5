// Spotify Web API implementation of [Provider]
//
// Requests go through [spotify.Client]; response types are documented at
// https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// spotifyRefFields trims playlist item listings down to track identity.
const spotifyRefFields = "items(track(id,type)),next"

// SpotifyService reads playlists from the Spotify Web API.
type SpotifyService struct {
	client  *http.Client
	baseURL string
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL overrides the API base URL, for tests. The URL must end in a slash.
func WithSpotifyBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = baseURL }
}

// NewSpotifyService creates a Spotify provider that sends requests through client.
func NewSpotifyService(client *http.Client, opts ...SpotifyOption) *SpotifyService {
	s := &SpotifyService{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpotifyService) Service() models.Service { return models.Spotify }

func (s *SpotifyService) api(ctx context.Context, token string) *spotify.Client {
	var opts []spotify.ClientOption
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	return spotify.New(authorizedClient(ctx, s.client, token), opts...)
}

// ListPlaylists pages through the current user's playlists.
func (s *SpotifyService) ListPlaylists(ctx context.Context, token string) ([]RemotePlaylist, error) {
	client := s.api(ctx, token)

	page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(PageSize))
	if err != nil {
		return nil, classifySpotifyError(err)
	}

	var playlists []RemotePlaylist
	for {
		for _, pl := range page.Playlists {
			if pl.ID == "" {
				continue
			}
			playlists = append(playlists, RemotePlaylist{
				ExternalID:   pl.ID.String(),
				Title:        pl.Name,
				Description:  pl.Description,
				ThumbnailURL: firstImage(pl.Images),
			})
		}

		err := client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return playlists, nil
		}
		if err != nil {
			return nil, classifySpotifyError(err)
		}
	}
}

// ListItems pages through a playlist's tracks. Podcast episodes and removed tracks are skipped.
// Position is the track's ordinal in the listing.
func (s *SpotifyService) ListItems(ctx context.Context, token, playlistID string, full bool) ([]RemoteItem, error) {
	client := s.api(ctx, token)

	opts := []spotify.RequestOption{spotify.Limit(PageSize)}
	if !full {
		opts = append(opts, spotify.Fields(spotifyRefFields))
	}

	page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
	if err != nil {
		return nil, classifySpotifyError(err)
	}

	var (
		items   []RemoteItem
		ordinal int64
	)
	for {
		for _, it := range page.Items {
			pos := ordinal
			ordinal++

			track := it.Track.Track
			if track == nil {
				continue
			}

			item := RemoteItem{ExternalID: track.ID.String()}
			if full {
				item = spotifyTrackItem(track)
			}
			item.Position = models.Int64Ptr(pos)
			items = append(items, item)
		}

		err := client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return items, nil
		}
		if err != nil {
			return nil, classifySpotifyError(err)
		}
	}
}

// ResolveItems fetches tracks in batches of [PageSize]. IDs Spotify no longer knows are dropped.
func (s *SpotifyService) ResolveItems(ctx context.Context, token string, ids []string) ([]RemoteItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	client := s.api(ctx, token)

	var items []RemoteItem
	for _, batch := range Chunk(ids, PageSize) {
		trackIDs := make([]spotify.ID, len(batch))
		for i, id := range batch {
			trackIDs[i] = spotify.ID(id)
		}

		tracks, err := client.GetTracks(ctx, trackIDs)
		if err != nil {
			return nil, classifySpotifyError(err)
		}
		for _, track := range tracks {
			if track == nil {
				continue
			}
			items = append(items, spotifyTrackItem(track))
		}
	}
	return items, nil
}

// Profile reads the Spotify account behind token.
func (s *SpotifyService) Profile(ctx context.Context, token string) (*models.Profile, error) {
	user, err := s.api(ctx, token).CurrentUser(ctx)
	if err != nil {
		return nil, classifySpotifyError(err)
	}
	return &models.Profile{
		Service:     models.Spotify,
		AccountID:   user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

// spotifyTrackItem maps a track: album name stands in for description and artists for the channel.
func spotifyTrackItem(track *spotify.FullTrack) RemoteItem {
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}

	item := RemoteItem{
		ExternalID:   track.ID.String(),
		Title:        track.Name,
		Description:  track.Album.Name,
		ChannelTitle: strings.Join(names, ", "),
		ThumbnailURL: firstImage(track.Album.Images),
	}
	if len(track.Artists) > 0 {
		item.ChannelID = track.Artists[0].ID.String()
	}
	if track.Album.ReleaseDate != "" {
		released := track.Album.ReleaseDateTime()
		if !released.IsZero() {
			item.PublishedAt = &released
		}
	}
	return item
}

func firstImage(images []spotify.Image) *string {
	if len(images) == 0 || images[0].URL == "" {
		return nil
	}
	return models.StringPtr(images[0].URL)
}

// classifySpotifyError maps Web API errors onto the provider error taxonomy.
func classifySpotifyError(err error) error {
	var serr spotify.Error
	if errors.As(err, &serr) {
		if serr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%w: spotify: %s", shared.ErrUnauthorized, serr.Message)
		}
		payload, _ := json.Marshal(map[string]any{
			"error": map[string]any{"status": serr.Status, "message": serr.Message},
		})
		return &shared.ProviderError{
			Service: models.Spotify.String(),
			Status:  serr.Status,
			Payload: payload,
			Err:     serr,
		}
	}
	return &shared.ProviderError{Service: models.Spotify.String(), Err: err}
}
