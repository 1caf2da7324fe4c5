package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/desertthunder/multitune/internal/ui"
	"github.com/urfave/cli/v3"
)

// Browse launches the interactive terminal UI over the mirror of one service.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceFrom(cmd)
	if err != nil {
		return err
	}
	userID, err := userFrom(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.users.Get(ctx, userID); err != nil {
		return err
	}

	var syncer ui.Syncer
	if linked, err := a.creds.Linked(ctx, userID, service); err != nil {
		return err
	} else if linked {
		syncer = a.engine
	}

	model := ui.NewModel(ctx, userID, service, a.playlists, syncer)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
