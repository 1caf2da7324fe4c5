// package services defines interface Provider for reading playlists from music service APIs
//
// YouTube (Data API v3), Spotify (Web API)
package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// PageSize is the page size requested from provider list endpoints and the maximum batch of IDs per detail lookup.
const PageSize = 50

// Provider reads a user's playlists and items from a music service using that user's access token.
//
// Implementations return an error wrapping [shared.ErrUnauthorized] when the provider rejects the token and a
// [*shared.ProviderError] for any other failure. A failure on any page aborts the whole listing.
type Provider interface {
	// Service identifies the provider.
	Service() models.Service

	// ListPlaylists returns every playlist of the authorized user, following pagination to the end.
	ListPlaylists(ctx context.Context, token string) ([]RemotePlaylist, error)

	// ListItems returns every item of playlistID. When full is false only item references are requested and
	// detail fields are left empty.
	ListItems(ctx context.Context, token, playlistID string, full bool) ([]RemoteItem, error)

	// ResolveItems fetches full detail for ids, batched by [PageSize].
	ResolveItems(ctx context.Context, token string, ids []string) ([]RemoteItem, error)

	// Profile returns the identity of the authorized account.
	Profile(ctx context.Context, token string) (*models.Profile, error)
}

// RemotePlaylist is a playlist as reported by a provider.
type RemotePlaylist struct {
	ExternalID   string
	Title        string
	Description  string
	ThumbnailURL *string
}

// RemoteItem is a playlist entry as reported by a provider. Detail fields are empty for reference-only listings.
type RemoteItem struct {
	ExternalID   string
	Title        string
	Description  string
	PublishedAt  *time.Time
	ChannelTitle string
	ChannelID    string
	ThumbnailURL *string
	Position     *int64
}

// Chunk splits ids into consecutive batches of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = PageSize
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// limitedTransport waits on a shared [rate.Limiter] before each request.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns an HTTP client for provider calls throttled to rps requests per second.
// A non-positive rps disables throttling.
func NewHTTPClient(rps float64, burst int) *http.Client {
	base := http.DefaultTransport
	if rps <= 0 {
		return &http.Client{Transport: base, Timeout: 30 * time.Second}
	}
	if burst <= 0 {
		burst = 1
	}
	return &http.Client{
		Transport: &limitedTransport{base: base, limiter: rate.NewLimiter(rate.Limit(rps), burst)},
		Timeout:   30 * time.Second,
	}
}

// authorizedClient wraps base so every request carries token as a bearer credential.
func authorizedClient(ctx context.Context, base *http.Client, token string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}

// Registry maps services to their providers.
type Registry map[models.Service]Provider

// NewRegistry indexes providers by [Provider.Service].
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		if p != nil {
			r[p.Service()] = p
		}
	}
	return r
}

// Get returns the provider for service or [shared.ErrUnknownService].
func (r Registry) Get(service models.Service) (Provider, error) {
	p, ok := r[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownService, service)
	}
	return p, nil
}
