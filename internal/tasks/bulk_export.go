package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/multitune/internal/formatter"
	"github.com/desertthunder/multitune/internal/models"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format         string // Export format: json, csv, markdown, txt
	OutputDir      string // Base output directory (default: {service}_export_{epoch})
	NumWorkers     int    // Concurrent workers (default: 5)
	DownloadCovers bool   // Save playlist thumbnails next to markdown exports
}

// BulkExport writes every mirrored playlist of the user on service to disk with a pool of workers.
//
// Only the local mirror is read; run [SyncEngine.SyncPlaylists] first to pick up remote changes. Individual
// failures are recorded in the result and a manifest summarizing the export is written to the output directory.
func (e *SyncEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	userID int64,
	service models.Service,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	snapshot, err := e.mirror.Snapshot(ctx, userID, service)
	if err != nil {
		return nil, err
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_export_%d", service, time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(snapshot.Playlists)
	result := &formatter.BulkExportResult{
		Service:         service,
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.ExportResult, 0, total),
	}

	jobs := make(chan *models.Playlist, total)
	results := make(chan formatter.ExportResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i := range snapshot.Playlists {
			select {
			case <-ctx.Done():
				return
			case jobs <- &snapshot.Playlists[i]:
				sendProgress(prog, exportingPlaylistUpdate(i+1, total, snapshot.Playlists[i].Title))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, total, res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, total, res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("export complete",
		"user", userID,
		"service", service,
		"format", opts.Format,
		"succeeded", result.SuccessfulExports,
		"failed", result.FailedExports,
		"dir", opts.OutputDir,
	)
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan *models.Playlist,
	results chan<- formatter.ExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for pl := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSinglePlaylist(pl, opts)
	}
}

// exportSinglePlaylist exports a single playlist to the appropriate format.
func exportSinglePlaylist(pl *models.Playlist, opts BulkExportOpts) formatter.ExportResult {
	result := formatter.ExportResult{
		PlaylistID:   pl.ID,
		ExternalID:   pl.ExternalID,
		PlaylistName: pl.Title,
		Files:        []string{},
	}

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(pl, filepath.Join(opts.OutputDir, pl.ExternalID))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.ItemsFile, csvRes.MetadataFile}
	case "markdown":
		mdRes, err := formatter.WriteMarkdownExport(pl, filepath.Join(opts.OutputDir, pl.ExternalID), opts.DownloadCovers)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files
	case "txt":
		path, err := formatter.WriteTextExport(pl, filepath.Join(opts.OutputDir, pl.ExternalID+"_items.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	case "json":
		fallthrough
	default:
		path, err := formatter.WriteJSONExport(pl, filepath.Join(opts.OutputDir, pl.ExternalID+".json"))
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
