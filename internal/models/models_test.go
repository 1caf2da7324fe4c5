package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/multitune/internal/shared"
)

func TestParseService(t *testing.T) {
	tests := []struct {
		in      string
		want    Service
		wantErr bool
	}{
		{"youtube", YouTube, false},
		{" Spotify ", Spotify, false},
		{"YOUTUBE", YouTube, false},
		{"tidal", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseService(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrUnknownService) {
					t.Errorf("expected ErrUnknownService, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestService_Title(t *testing.T) {
	if YouTube.Title() != "YouTube" || Spotify.Title() != "Spotify" {
		t.Errorf("unexpected titles %q %q", YouTube.Title(), Spotify.Title())
	}
	if Service("other").Title() != "other" {
		t.Error("expected unknown service to title as itself")
	}
}

func TestValidate(t *testing.T) {
	if err := (&User{Username: "  "}).Validate(); err == nil {
		t.Error("expected blank username to fail")
	}
	if err := (&Playlist{UserID: 1}).Validate(); err == nil {
		t.Error("expected playlist without external id to fail")
	}
	if err := (&PlaylistItem{PlaylistID: 1, ExternalID: "x"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	s := &Snapshot{Playlists: []Playlist{
		{Title: "a", Items: []PlaylistItem{{ExternalID: "1"}, {ExternalID: "2"}}},
		{Title: "b"},
	}}

	if s.ItemCount() != 2 {
		t.Errorf("expected 2 items, got %d", s.ItemCount())
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"title":"b","description":"","thumbnail_url":null`) ||
		!strings.Contains(string(data), `"items":null`) {
		t.Errorf("playlist without items should encode items as null: %s", data)
	}
}

func TestProfile_SyntheticUsername(t *testing.T) {
	p := Profile{Service: Spotify, AccountID: "abc"}
	if got := p.SyntheticUsername(); got != "spotify_abc" {
		t.Errorf("got %q", got)
	}
}

func TestPointers(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("expected nil for empty string")
	}
	if s := StringPtr("x"); s == nil || *s != "x" {
		t.Error("expected pointer to value")
	}
	if n := Int64Ptr(3); *n != 3 {
		t.Error("expected pointer to 3")
	}
}
