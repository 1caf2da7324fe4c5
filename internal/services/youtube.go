// YouTube Data API v3 implementation of [Provider]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeFullParts = "snippet,contentDetails"
	youtubeRefParts  = "contentDetails"
)

// YouTubeService reads playlists from the YouTube Data API.
type YouTubeService struct {
	client   *http.Client
	endpoint string
}

// YouTubeOption configures a [YouTubeService].
type YouTubeOption func(*YouTubeService)

// WithYouTubeEndpoint overrides the API base URL, for tests.
func WithYouTubeEndpoint(endpoint string) YouTubeOption {
	return func(s *YouTubeService) { s.endpoint = endpoint }
}

// NewYouTubeService creates a YouTube provider that sends requests through client.
func NewYouTubeService(client *http.Client, opts ...YouTubeOption) *YouTubeService {
	s := &YouTubeService{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *YouTubeService) Service() models.Service { return models.YouTube }

func (s *YouTubeService) api(ctx context.Context, token string) (*youtube.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(authorizedClient(ctx, s.client, token))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, &shared.ProviderError{Service: models.YouTube.String(), Err: err}
	}
	return svc, nil
}

// ListPlaylists pages through playlists.list?mine=true.
func (s *YouTubeService) ListPlaylists(ctx context.Context, token string) ([]RemotePlaylist, error) {
	svc, err := s.api(ctx, token)
	if err != nil {
		return nil, err
	}

	var (
		playlists []RemotePlaylist
		pageToken string
	)
	for {
		call := svc.Playlists.List([]string{youtubeFullParts}).Mine(true).MaxResults(PageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classifyYouTubeError(err)
		}

		for _, pl := range resp.Items {
			if pl == nil || pl.Id == "" {
				continue
			}
			remote := RemotePlaylist{ExternalID: pl.Id}
			if pl.Snippet != nil {
				remote.Title = pl.Snippet.Title
				remote.Description = pl.Snippet.Description
				remote.ThumbnailURL = defaultThumbnail(pl.Snippet.Thumbnails)
			}
			playlists = append(playlists, remote)
		}

		if resp.NextPageToken == "" {
			return playlists, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListItems pages through playlistItems.list. Reference-only listings request contentDetails alone.
func (s *YouTubeService) ListItems(ctx context.Context, token, playlistID string, full bool) ([]RemoteItem, error) {
	svc, err := s.api(ctx, token)
	if err != nil {
		return nil, err
	}

	parts := youtubeRefParts
	if full {
		parts = youtubeFullParts
	}

	var (
		items     []RemoteItem
		pageToken string
	)
	for {
		call := svc.PlaylistItems.List([]string{parts}).PlaylistId(playlistID).MaxResults(PageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classifyYouTubeError(err)
		}

		for _, it := range resp.Items {
			if it == nil {
				continue
			}
			items = append(items, youtubePlaylistItem(it))
		}

		if resp.NextPageToken == "" {
			return items, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ResolveItems looks up video detail through videos.list in batches of [PageSize].
func (s *YouTubeService) ResolveItems(ctx context.Context, token string, ids []string) ([]RemoteItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	svc, err := s.api(ctx, token)
	if err != nil {
		return nil, err
	}

	var items []RemoteItem
	for _, batch := range Chunk(ids, PageSize) {
		resp, err := svc.Videos.List([]string{youtubeFullParts}).Id(batch...).Context(ctx).Do()
		if err != nil {
			return nil, classifyYouTubeError(err)
		}
		for _, v := range resp.Items {
			if v == nil || v.Id == "" {
				continue
			}
			item := RemoteItem{ExternalID: v.Id}
			if v.Snippet != nil {
				item.Title = v.Snippet.Title
				item.Description = v.Snippet.Description
				item.PublishedAt = parseRFC3339(v.Snippet.PublishedAt)
				item.ChannelTitle = v.Snippet.ChannelTitle
				item.ChannelID = v.Snippet.ChannelId
				item.ThumbnailURL = defaultThumbnail(v.Snippet.Thumbnails)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// Profile reads the Google account behind token from the userinfo endpoint.
func (s *YouTubeService) Profile(ctx context.Context, token string) (*models.Profile, error) {
	opts := []option.ClientOption{option.WithHTTPClient(authorizedClient(ctx, s.client, token))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, &shared.ProviderError{Service: models.YouTube.String(), Err: err}
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, classifyYouTubeError(err)
	}

	return &models.Profile{
		Service:     models.YouTube,
		AccountID:   info.Id,
		DisplayName: info.Name,
		Email:       info.Email,
	}, nil
}

// youtubePlaylistItem maps a playlist item. Owner channel fields win over the playlist owner's.
func youtubePlaylistItem(it *youtube.PlaylistItem) RemoteItem {
	var item RemoteItem
	if it.ContentDetails != nil {
		item.ExternalID = it.ContentDetails.VideoId
	}

	sn := it.Snippet
	if sn == nil {
		return item
	}
	if item.ExternalID == "" && sn.ResourceId != nil {
		item.ExternalID = sn.ResourceId.VideoId
	}

	item.Title = sn.Title
	item.Description = sn.Description
	item.PublishedAt = parseRFC3339(sn.PublishedAt)
	item.ChannelTitle = firstNonEmpty(sn.VideoOwnerChannelTitle, sn.ChannelTitle)
	item.ChannelID = firstNonEmpty(sn.VideoOwnerChannelId, sn.ChannelId)
	item.ThumbnailURL = defaultThumbnail(sn.Thumbnails)
	item.Position = models.Int64Ptr(sn.Position)
	return item
}

func defaultThumbnail(t *youtube.ThumbnailDetails) *string {
	if t == nil || t.Default == nil {
		return nil
	}
	return models.StringPtr(t.Default.Url)
}

func parseRFC3339(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// classifyYouTubeError maps Google API errors onto the provider error taxonomy.
func classifyYouTubeError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized {
			return fmt.Errorf("%w: youtube: %s", shared.ErrUnauthorized, gerr.Message)
		}
		return &shared.ProviderError{
			Service: models.YouTube.String(),
			Status:  gerr.Code,
			Payload: []byte(gerr.Body),
			Err:     gerr,
		}
	}
	return &shared.ProviderError{Service: models.YouTube.String(), Err: err}
}
