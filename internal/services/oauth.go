package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/youtube/v3"
)

// NewOAuthConfig builds the OAuth client registration for service.
func NewOAuthConfig(service models.Service, creds shared.ProviderCredentials) (*oauth2.Config, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: %s client_id and client_secret are required", shared.ErrMissingConfig, service)
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
	}

	switch service {
	case models.YouTube:
		cfg.Endpoint = google.Endpoint
		cfg.Scopes = []string{youtube.YoutubeReadonlyScope, oauth2api.UserinfoEmailScope, oauth2api.UserinfoProfileScope}
	case models.Spotify:
		cfg.Endpoint = oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		}
		cfg.Scopes = []string{
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
		}
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownService, service)
	}
	return cfg, nil
}

// NewOAuthConfigs builds registrations for every provider with configured credentials.
func NewOAuthConfigs(creds shared.CredentialsConfig) map[models.Service]*oauth2.Config {
	configs := make(map[models.Service]*oauth2.Config, len(models.Services))
	for service, c := range map[models.Service]shared.ProviderCredentials{
		models.YouTube: creds.YouTube,
		models.Spotify: creds.Spotify,
	} {
		if cfg, err := NewOAuthConfig(service, c); err == nil {
			configs[service] = cfg
		}
	}
	return configs
}

// OAuthRefresher performs token endpoint exchanges for each configured provider.
type OAuthRefresher struct {
	configs map[models.Service]*oauth2.Config
	client  *http.Client
}

// NewOAuthRefresher creates a refresher that posts to token endpoints through client.
func NewOAuthRefresher(client *http.Client, configs map[models.Service]*oauth2.Config) *OAuthRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuthRefresher{configs: configs, client: client}
}

func (r *OAuthRefresher) config(service models.Service) (*oauth2.Config, error) {
	cfg, ok := r.configs[service]
	if !ok {
		return nil, fmt.Errorf("%w: no oauth registration for %s", shared.ErrMissingConfig, service)
	}
	return cfg, nil
}

// Configured reports whether service has an OAuth registration.
func (r *OAuthRefresher) Configured(service models.Service) bool {
	_, ok := r.configs[service]
	return ok
}

// Refresh exchanges refreshToken for a new access token with a single POST. The returned token keeps
// refreshToken when the provider does not rotate it.
func (r *OAuthRefresher) Refresh(ctx context.Context, service models.Service, refreshToken string) (*oauth2.Token, error) {
	cfg, err := r.config(service)
	if err != nil {
		return nil, &shared.RefreshError{Service: service.String(), Err: err}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, refreshError(service, err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// AuthCodeURL returns the consent page URL for service carrying state.
func (r *OAuthRefresher) AuthCodeURL(service models.Service, state string) (string, error) {
	cfg, err := r.config(service)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for a token.
func (r *OAuthRefresher) Exchange(ctx context.Context, service models.Service, code string) (*oauth2.Token, error) {
	cfg, err := r.config(service)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s code exchange: %w", shared.ErrInvalidCredential, service, err)
	}
	return tok, nil
}

func refreshError(service models.Service, err error) error {
	re := &shared.RefreshError{Service: service.String(), Err: err}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		re.Payload = rerr.Body
	}
	return re
}
