package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
)

// fakeYouTube serves the subset of the Data API used by [YouTubeService].
type fakeYouTube struct {
	mu         sync.Mutex
	token      string
	parts      []string
	videoCalls [][]string
	paths      []string
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
		return
	}

	q := r.URL.Query()
	switch r.URL.Path {
	case "/youtube/v3/playlists":
		if q.Get("mine") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if q.Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"nextPageToken": "page2",
				"items": []map[string]any{{
					"id": "PL1",
					"snippet": map[string]any{
						"title":       "Road Trip",
						"description": "songs for the car",
						"thumbnails":  map[string]any{"default": map[string]any{"url": "https://i.ytimg.com/pl1.jpg"}},
					},
				}},
			})
			return
		}
		writeJSON(w, map[string]any{
			"items": []map[string]any{{"id": "PL2", "snippet": map[string]any{"title": "Focus"}}},
		})
	case "/youtube/v3/playlistItems":
		f.mu.Lock()
		f.parts = append(f.parts, q.Get("part"))
		f.mu.Unlock()

		if q.Get("playlistId") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"playlistNotFound"}}`)
			return
		}

		item := map[string]any{"contentDetails": map[string]any{"videoId": "v1"}}
		if strings.Contains(q.Get("part"), "snippet") {
			item["snippet"] = map[string]any{
				"title":                  "First Video",
				"description":            "desc",
				"publishedAt":            "2024-01-02T03:04:05Z",
				"channelTitle":           "Playlist Owner",
				"channelId":              "UCowner",
				"videoOwnerChannelTitle": "Uploader",
				"videoOwnerChannelId":    "UCuploader",
				"position":               3,
				"thumbnails":             map[string]any{"default": map[string]any{"url": "https://i.ytimg.com/v1.jpg"}},
			}
		}
		writeJSON(w, map[string]any{"items": []map[string]any{item}})
	case "/youtube/v3/videos":
		if q.Has("maxResults") {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":400,"message":"maxResults is not supported with id"}}`)
			return
		}
		ids := q["id"]
		if len(ids) == 1 {
			ids = strings.Split(ids[0], ",")
		}
		f.mu.Lock()
		f.videoCalls = append(f.videoCalls, ids)
		f.mu.Unlock()

		items := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			items = append(items, map[string]any{
				"id": id,
				"snippet": map[string]any{
					"title":        "Video " + id,
					"channelTitle": "Channel",
					"channelId":    "UC1",
					"publishedAt":  "2023-06-01T00:00:00Z",
				},
			})
		}
		writeJSON(w, map[string]any{"items": items})
	case "/oauth2/v2/userinfo":
		writeJSON(w, map[string]any{"id": "1234", "email": "alice@example.com", "name": "Alice"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newYouTubeFixture(t *testing.T) (*fakeYouTube, *YouTubeService) {
	t.Helper()
	fake := &fakeYouTube{token: "good"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, NewYouTubeService(srv.Client(), WithYouTubeEndpoint(srv.URL+"/"))
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("Service", func(t *testing.T) {
		if svc := NewYouTubeService(nil); svc.Service() != models.YouTube {
			t.Errorf("expected youtube, got %s", svc.Service())
		}
	})

	t.Run("ListPlaylists", func(t *testing.T) {
		t.Run("follows pagination", func(t *testing.T) {
			_, svc := newYouTubeFixture(t)

			playlists, err := svc.ListPlaylists(ctx, "good")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 2 {
				t.Fatalf("expected 2 playlists, got %d", len(playlists))
			}
			if playlists[0].ExternalID != "PL1" || playlists[1].ExternalID != "PL2" {
				t.Errorf("unexpected playlist ids: %+v", playlists)
			}
			if playlists[0].ThumbnailURL == nil || *playlists[0].ThumbnailURL != "https://i.ytimg.com/pl1.jpg" {
				t.Errorf("expected default thumbnail, got %v", playlists[0].ThumbnailURL)
			}
			if playlists[1].ThumbnailURL != nil {
				t.Errorf("expected nil thumbnail, got %v", *playlists[1].ThumbnailURL)
			}
		})

		t.Run("unauthorized", func(t *testing.T) {
			_, svc := newYouTubeFixture(t)

			_, err := svc.ListPlaylists(ctx, "stale")
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if errors.Is(err, shared.ErrProvider) {
				t.Error("unauthorized should not be classified as a provider error")
			}
		})
	})

	t.Run("ListItems", func(t *testing.T) {
		t.Run("full detail", func(t *testing.T) {
			fake, svc := newYouTubeFixture(t)

			items, err := svc.ListItems(ctx, "good", "PL1", true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("expected 1 item, got %d", len(items))
			}

			item := items[0]
			if item.ExternalID != "v1" || item.Title != "First Video" {
				t.Errorf("unexpected item: %+v", item)
			}
			if item.ChannelTitle != "Uploader" || item.ChannelID != "UCuploader" {
				t.Errorf("expected owner channel fields, got %q %q", item.ChannelTitle, item.ChannelID)
			}
			if item.Position == nil || *item.Position != 3 {
				t.Errorf("expected position 3, got %v", item.Position)
			}
			if item.PublishedAt == nil || item.PublishedAt.Year() != 2024 {
				t.Errorf("expected published timestamp, got %v", item.PublishedAt)
			}
			if fake.parts[0] != youtubeFullParts {
				t.Errorf("expected part %q, got %q", youtubeFullParts, fake.parts[0])
			}
		})

		t.Run("references only", func(t *testing.T) {
			fake, svc := newYouTubeFixture(t)

			items, err := svc.ListItems(ctx, "good", "PL1", false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 1 || items[0].ExternalID != "v1" {
				t.Fatalf("unexpected items: %+v", items)
			}
			if items[0].Title != "" || items[0].Position != nil {
				t.Errorf("expected empty detail fields, got %+v", items[0])
			}
			if fake.parts[0] != youtubeRefParts {
				t.Errorf("expected part %q, got %q", youtubeRefParts, fake.parts[0])
			}
		})

		t.Run("provider error keeps payload", func(t *testing.T) {
			_, svc := newYouTubeFixture(t)

			_, err := svc.ListItems(ctx, "good", "missing", true)
			var perr *shared.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if perr.Status != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", perr.Status)
			}
			if !strings.Contains(string(perr.Payload), "playlistNotFound") {
				t.Errorf("expected raw payload, got %s", perr.Payload)
			}
		})
	})

	t.Run("ResolveItems", func(t *testing.T) {
		t.Run("batches by page size", func(t *testing.T) {
			fake, svc := newYouTubeFixture(t)

			ids := make([]string, 120)
			for i := range ids {
				ids[i] = fmt.Sprintf("v%03d", i)
			}

			items, err := svc.ResolveItems(ctx, "good", ids)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 120 {
				t.Errorf("expected 120 items, got %d", len(items))
			}

			want := []int{50, 50, 20}
			if len(fake.videoCalls) != len(want) {
				t.Fatalf("expected %d videos.list calls, got %d", len(want), len(fake.videoCalls))
			}
			for i, n := range want {
				if len(fake.videoCalls[i]) != n {
					t.Errorf("batch %d: expected %d ids, got %d", i, n, len(fake.videoCalls[i]))
				}
			}
		})

		t.Run("empty input makes no request", func(t *testing.T) {
			fake, svc := newYouTubeFixture(t)

			items, err := svc.ResolveItems(ctx, "good", nil)
			if err != nil || items != nil {
				t.Fatalf("expected nil result, got %v, %v", items, err)
			}
			if len(fake.paths) != 0 {
				t.Errorf("expected no requests, got %v", fake.paths)
			}
		})
	})

	t.Run("Profile", func(t *testing.T) {
		_, svc := newYouTubeFixture(t)

		profile, err := svc.Profile(ctx, "good")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.AccountID != "1234" || profile.Email != "alice@example.com" || profile.DisplayName != "Alice" {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if profile.Service != models.YouTube {
			t.Errorf("expected youtube profile, got %s", profile.Service)
		}
	})
}
