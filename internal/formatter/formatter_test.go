package formatter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	th "github.com/desertthunder/multitune/internal/testing"
)

func testPlaylist() *models.Playlist {
	published := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	return &models.Playlist{
		ID:          7,
		Service:     models.YouTube,
		ExternalID:  "PLtest123",
		Title:       "Test Playlist",
		Description: "A test playlist",
		Items: []models.PlaylistItem{
			{
				ExternalID:   "vid1",
				Title:        "Video One",
				ChannelTitle: "Channel One",
				PublishedAt:  &published,
				Position:     models.Int64Ptr(0),
			},
			{
				ExternalID: "vid2",
				Title:      "Video Two",
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ItemURL", func(t *testing.T) {
		if got := ItemURL(models.YouTube, "abc"); got != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected youtube url %s", got)
		}
		if got := ItemURL(models.Spotify, "xyz"); got != "https://open.spotify.com/track/xyz" {
			t.Errorf("unexpected spotify url %s", got)
		}
		if got := ItemURL(models.Service("other"), "id"); got != "" {
			t.Errorf("expected empty url, got %s", got)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testPlaylist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Position,ID,Title,Channel,Published,URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "0,vid1,Video One,Channel One,2024-03-09,https://www.youtube.com/watch?v=vid1") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, ",vid2,Video Two,,,") {
			t.Errorf("CSV should leave missing fields empty, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testPlaylist(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			if !strings.Contains(output, "# Test Playlist") {
				t.Errorf("Markdown missing title")
			}
			if !strings.Contains(output, "**Description**: A test playlist") {
				t.Errorf("Markdown missing description")
			}
			if !strings.Contains(output, "**Items**: 2") {
				t.Errorf("Markdown missing item count")
			}
			if !strings.Contains(output, "**Service**: YouTube") {
				t.Errorf("Markdown missing service")
			}
			if !strings.Contains(output, "1. [Video One](https://www.youtube.com/watch?v=vid1) - Channel One") {
				t.Errorf("Markdown missing item 1, got: %s", output)
			}
			if !strings.Contains(output, "2. [Video Two](https://www.youtube.com/watch?v=vid2)\n") {
				t.Errorf("Markdown missing item 2 (no channel), got: %s", output)
			}
			if strings.Contains(output, "![Cover]") {
				t.Errorf("Markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testPlaylist(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover image reference")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testPlaylist())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist\n") {
			t.Errorf("Text missing title")
		}
		if !strings.Contains(output, "Items: 2\n") {
			t.Errorf("Text missing item count")
		}
		if !strings.Contains(output, "1. Channel One - Video One\n") || !strings.Contains(output, "2. Video Two\n") {
			t.Errorf("Text missing items, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testPlaylist())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, `"item_count": 2`) {
			t.Errorf("metadata missing item count, got: %s", output)
		}
		if strings.Contains(output, "vid1") {
			t.Errorf("metadata should not include items")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testPlaylist())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"items"`) || !strings.Contains(string(data), "vid2") {
			t.Errorf("JSON missing items, got: %s", data)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpegdata"))
		}))
		defer srv.Close()

		data, err := DownloadImage(srv.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "jpegdata" {
			t.Errorf("unexpected body %q", data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			res, err := WriteCSVExport(testPlaylist(), "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if res.ItemsFile != "PLtest123_items.csv" || res.MetadataFile != "PLtest123_metadata.json" {
				t.Errorf("unexpected paths %+v", res)
			}
			th.AssertFileExists(t, res.ItemsFile)
			th.AssertFileExists(t, res.MetadataFile)
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom")

			res, err := WriteCSVExport(testPlaylist(), base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			th.AssertFileExists(t, base+"_items.csv")
			if !strings.Contains(th.MustReadFile(t, res.ItemsFile), "vid1") {
				t.Errorf("CSV file missing items")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			t.Chdir(t.TempDir())

			res, err := WriteMarkdownExport(testPlaylist(), "", false)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertDirExists(t, "PLtest123")
			th.AssertFileExists(t, filepath.Join("PLtest123", "README.md"))
			if len(res.Files) != 1 || res.CoverImage != "" {
				t.Errorf("expected README only, got %+v", res)
			}
		})

		t.Run("WithCover", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("jpegdata"))
			}))
			defer srv.Close()

			pl := testPlaylist()
			pl.ThumbnailURL = models.StringPtr(srv.URL + "/cover.jpg")
			dir := filepath.Join(t.TempDir(), "md")

			res, err := WriteMarkdownExport(pl, dir, true)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
			if len(res.Files) != 2 {
				t.Errorf("expected cover and README, got %v", res.Files)
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Errorf("README missing cover reference")
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		t.Chdir(t.TempDir())

		path, err := WriteTextExport(testPlaylist(), "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "PLtest123_items.txt" {
			t.Errorf("unexpected path %s", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")

		got, err := WriteJSONExport(testPlaylist(), path)
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteBulkExportManifest", func(t *testing.T) {
		t.Run("SuccessfulExport", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			result := &BulkExportResult{
				Service:           models.YouTube,
				TotalPlaylists:    1,
				SuccessfulExports: 1,
				Results: []ExportResult{
					{PlaylistID: 1, ExternalID: "PL1", PlaylistName: "My Playlist 1", Success: true, Files: []string{"PL1.json"}},
				},
			}

			if err := WriteBulkExportManifest(result, "json", path); err != nil {
				t.Fatalf("WriteBulkExportManifest failed: %v", err)
			}

			content := th.MustReadFile(t, path)
			for _, want := range []string{`"format": "json"`, `"total_playlists": 1`, `"My Playlist 1"`, `"status": "success"`, `"service": "youtube"`} {
				if !strings.Contains(content, want) {
					t.Errorf("manifest missing %s", want)
				}
			}
		})

		t.Run("WithFailedExports", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.json")
			result := &BulkExportResult{
				TotalPlaylists: 1,
				FailedExports:  1,
				Results: []ExportResult{
					{PlaylistID: 2, ExternalID: "PL2", PlaylistName: "Broken", Error: errors.New("disk full")},
				},
			}

			if err := WriteBulkExportManifest(result, "csv", path); err != nil {
				t.Fatalf("WriteBulkExportManifest failed: %v", err)
			}

			content := th.MustReadFile(t, path)
			if !strings.Contains(content, `"status": "failed"`) || !strings.Contains(content, `"error": "disk full"`) {
				t.Errorf("manifest missing failure details, got: %s", content)
			}
		})
	})
}
