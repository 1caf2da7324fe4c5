// package formatter provides functions to export mirrored playlists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
)

// ItemURL returns the public URL of an item on its provider.
func ItemURL(service models.Service, externalID string) string {
	switch service {
	case models.YouTube:
		return "https://www.youtube.com/watch?v=" + externalID
	case models.Spotify:
		return "https://open.spotify.com/track/" + externalID
	default:
		return ""
	}
}

func position(item models.PlaylistItem) string {
	if item.Position == nil {
		return ""
	}
	return strconv.FormatInt(*item.Position, 10)
}

func published(item models.PlaylistItem) string {
	if item.PublishedAt == nil {
		return ""
	}
	return item.PublishedAt.UTC().Format(time.DateOnly)
}

// ExportToCSV converts a playlist to CSV format with columns: Position, ID, Title, Channel, Published, URL
func ExportToCSV(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Channel", "Published", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range pl.Items {
		record := []string{
			position(item),
			item.ExternalID,
			item.Title,
			item.ChannelTitle,
			published(item),
			ItemURL(pl.Service, item.ExternalID),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown format with optional cover image
func ExportToMarkdown(pl *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", pl.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if pl.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", pl.Description)
	}

	fmt.Fprintf(&buf, "**Items**: %d\n", len(pl.Items))
	fmt.Fprintf(&buf, "**Service**: %s\n\n", pl.Service.Title())

	buf.WriteString("## Items\n\n")
	for i, item := range pl.Items {
		channelPart := ""
		if item.ChannelTitle != "" {
			channelPart = fmt.Sprintf(" - %s", item.ChannelTitle)
		}
		fmt.Fprintf(&buf, "%d. [%s](%s)%s\n", i+1, item.Title, ItemURL(pl.Service, item.ExternalID), channelPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", pl.Title)
	if pl.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", pl.Description)
	}
	fmt.Fprintf(&buf, "Items: %d\n\n", len(pl.Items))

	for i, item := range pl.Items {
		if item.ChannelTitle != "" {
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, item.ChannelTitle, item.Title)
			continue
		}
		fmt.Fprintf(&buf, "%d. %s\n", i+1, item.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a playlist with its items to indented JSON
func ExportToJSON(pl *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(pl, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

type playlistMetadata struct {
	ID           int64          `json:"id"`
	Service      models.Service `json:"service"`
	ExternalID   string         `json:"external_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ThumbnailURL *string        `json:"thumbnail_url"`
	ItemCount    int            `json:"item_count"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without items)
func ToMetadataJSON(pl *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlistMetadata{
		ID:           pl.ID,
		Service:      pl.Service,
		ExternalID:   pl.ExternalID,
		Title:        pl.Title,
		Description:  pl.Description,
		ThumbnailURL: pl.ThumbnailURL,
		ItemCount:    len(pl.Items),
		UpdatedAt:    pl.UpdatedAt,
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to the provider playlist ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(pl *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = pl.ExternalID
	}

	csvData, err := ExportToCSV(pl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(pl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the provider playlist ID.
// When downloadCover is set and the playlist has a thumbnail, it is saved next to the README.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(pl *models.Playlist, outputDir string, downloadCover bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = pl.ExternalID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if downloadCover && pl.ThumbnailURL != nil {
		imageData, err := DownloadImage(*pl.ThumbnailURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(pl, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {external_id}_items.txt as the filename.
func WriteTextExport(pl *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", pl.ExternalID)
	}

	textData, err := ExportToText(pl)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a playlist with its items as JSON.
//
// Defaults to {external_id}.json as the filename.
func WriteJSONExport(pl *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", pl.ExternalID)
	}

	data, err := ExportToJSON(pl)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}

	return path, nil
}

// ExportResult is the outcome of exporting one playlist.
type ExportResult struct {
	PlaylistID   int64
	ExternalID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a multi-playlist export.
type BulkExportResult struct {
	Service           models.Service
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []ExportResult
	OutputDirectory   string
	ManifestPath      string
}

type manifestEntry struct {
	PlaylistID int64    `json:"playlist_id"`
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type manifest struct {
	Service           models.Service  `json:"service"`
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	OutputDirectory   string          `json:"output_directory"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Playlists         []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	m := manifest{
		Service:           result.Service,
		Format:            format,
		ExportedAt:        time.Now().UTC(),
		OutputDirectory:   result.OutputDirectory,
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Playlists:         make([]manifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := manifestEntry{
			PlaylistID: res.PlaylistID,
			ExternalID: res.ExternalID,
			Name:       res.PlaylistName,
			Status:     "success",
			Files:      res.Files,
		}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
