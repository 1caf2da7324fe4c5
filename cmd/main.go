package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/multitune/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "multitune",
		Usage:   "Mirror YouTube and Spotify playlists into a local database",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MULTITUNE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log_level (debug, info, warn, error)",
			},
		},
		Before:   runner.before,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Error("application error", "error", err)
		os.Exit(exitCode(err))
	}
}

// before loads configuration for every subcommand.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.Load(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config

	level := config.LogLevel
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}
