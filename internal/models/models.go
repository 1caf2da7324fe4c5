// package models defines the data model for the playlist mirror
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/multitune/internal/shared"
)

// Service names a linked playlist provider.
type Service string

const (
	YouTube Service = "youtube"
	Spotify Service = "spotify"
)

// Services lists every supported provider.
var Services = []Service{YouTube, Spotify}

// ParseService converts a provider name ("youtube", "spotify") to a [Service].
func ParseService(s string) (Service, error) {
	switch svc := Service(strings.ToLower(strings.TrimSpace(s))); svc {
	case YouTube, Spotify:
		return svc, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownService, s)
	}
}

func (s Service) String() string { return string(s) }

// Title returns the display name of the provider.
func (s Service) Title() string {
	switch s {
	case YouTube:
		return "YouTube"
	case Spotify:
		return "Spotify"
	default:
		return string(s)
	}
}

// Model defines the base interface for persistent records.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// User is a local account that owns linked services and mirrored playlists.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// Credential holds the OAuth tokens a user linked for one service.
type Credential struct {
	UserID       int64      `json:"user_id"`
	Service      Service    `json:"service"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (c *Credential) Validate() error {
	if c.UserID == 0 {
		return fmt.Errorf("user id is required")
	}
	if c.Service != YouTube && c.Service != Spotify {
		return fmt.Errorf("unknown service %q", c.Service)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

// CanRefresh reports whether a refresh token is on file.
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Playlist is a mirrored provider playlist. ID is the local surrogate key and never changes once assigned.
type Playlist struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	Service      Service        `json:"service"`
	ExternalID   string         `json:"external_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ThumbnailURL *string        `json:"thumbnail_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Items        []PlaylistItem `json:"items"`
}

func (p *Playlist) Validate() error {
	if p.UserID == 0 {
		return fmt.Errorf("user id is required")
	}
	if p.ExternalID == "" {
		return fmt.Errorf("external id is required")
	}
	return nil
}

// PlaylistItem is a mirrored entry of a playlist: a video on YouTube or a track on Spotify.
type PlaylistItem struct {
	ID           int64      `json:"id"`
	PlaylistID   int64      `json:"playlist_id"`
	ExternalID   string     `json:"external_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PublishedAt  *time.Time `json:"published_at"`
	ChannelTitle string     `json:"channel_title"`
	ChannelID    string     `json:"channel_id"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	Position     *int64     `json:"position"`
	AddedAt      time.Time  `json:"added_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (i *PlaylistItem) Validate() error {
	if i.PlaylistID == 0 {
		return fmt.Errorf("playlist id is required")
	}
	if i.ExternalID == "" {
		return fmt.Errorf("external id is required")
	}
	return nil
}

// Snapshot is the mirrored state of one user's playlists for a service, playlists ordered by title and
// items by position.
type Snapshot struct {
	Playlists []Playlist `json:"playlists"`
}

// ItemCount returns the total number of items across all playlists.
func (s *Snapshot) ItemCount() int {
	n := 0
	for _, p := range s.Playlists {
		n += len(p.Items)
	}
	return n
}

// Profile is the account identity a provider reports after an OAuth exchange.
type Profile struct {
	Service     Service
	AccountID   string
	DisplayName string
	Email       string
}

// SyntheticUsername is the permanent fallback username for an account without a usable name.
func (p Profile) SyntheticUsername() string {
	return fmt.Sprintf("%s_%s", p.Service, p.AccountID)
}

// StringPtr returns nil for the empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }
