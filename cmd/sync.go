package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/desertthunder/multitune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// printProgress writes updates until progress is closed, then closes the returned channel.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.LoadCredential, tasks.FetchPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SavePlaylists, tasks.FetchItems, tasks.ExportPlaylist:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.ResolveItems:
				r.writePlain("   🔍 %s\n", update.Message)
			case tasks.RefreshToken:
				r.writePlain("🔑 %s\n", update.Message)
			case tasks.SyncComplete:
				r.writePlain("\n✓ %s\n", update.Message)
			}
		}
	}()
	return done
}

// runSync syncs with progress printed unless quiet is set.
func (r *Runner) runSync(ctx context.Context, a *app, userID int64, service models.Service, quiet bool) (*models.Snapshot, error) {
	if quiet {
		return a.engine.SyncPlaylists(ctx, userID, service, nil)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progress)
	snapshot, err := a.engine.SyncPlaylists(ctx, userID, service, progress)
	close(progress)
	<-done
	return snapshot, err
}

// Sync mirrors the user's playlists on a service and prints the resulting snapshot.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceFrom(cmd)
	if err != nil {
		return err
	}
	userID, err := userFrom(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	useJSON := cmd.Bool("json")
	if !useJSON {
		r.writePlainHeader(fmt.Sprintf("Syncing %s playlists", service.Title()))
	}

	snapshot, err := r.runSync(ctx, a, userID, service, useJSON)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	r.writePlain("Mirror: %d playlists, %d items\n", len(snapshot.Playlists), snapshot.ItemCount())
	return nil
}

// Playlists prints the mirrored playlists of a user without contacting the provider.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceFrom(cmd)
	if err != nil {
		return err
	}
	userID, err := userFrom(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.playlists.Snapshot(ctx, userID, service)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	if len(snapshot.Playlists) == 0 {
		return r.writePlain("No %s playlists mirrored yet. Run 'multitune sync %s --user %d'.\n", service.Title(), service, userID)
	}

	showItems := cmd.Bool("items")
	r.writePlain("Found %d playlists:\n\n", len(snapshot.Playlists))
	for i, p := range snapshot.Playlists {
		r.writePlain("%d. %s\n", i+1, p.Title)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %d (%s)\n", p.ID, p.ExternalID)
		r.writePlain("   Items: %d\n", len(p.Items))
		if showItems {
			for _, item := range p.Items {
				title := item.Title
				if title == "" {
					title = item.ExternalID
				}
				r.writePlain("     - %s\n", title)
			}
		}
		r.writePlain("\n")
	}
	return nil
}

// Export writes every mirrored playlist of a user to disk, optionally syncing first.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceFrom(cmd)
	if err != nil {
		return err
	}
	userID, err := userFrom(cmd)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	switch format {
	case "json", "csv", "markdown", "txt":
	default:
		return fmt.Errorf("%w: unsupported format %q (json, csv, markdown or txt)", shared.ErrInvalidArgument, format)
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Bool("sync") {
		if _, err := r.runSync(ctx, a, userID, service, false); err != nil {
			return err
		}
	}

	opts := tasks.BulkExportOpts{
		Format:         format,
		OutputDir:      cmd.String("output"),
		NumWorkers:     cmd.Int("workers"),
		DownloadCovers: cmd.Bool("covers"),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progress)
	result, err := a.engine.BulkExport(ctx, progress, userID, service, opts)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.PlaylistName, res.Error)
			}
		}
	}
	return nil
}
