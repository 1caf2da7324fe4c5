// submodule cmd contains command definitions
package main

import (
	"fmt"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/urfave/cli/v3"
)

func userFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Local user id (see 'multitune users list')",
		Sources: cli.EnvVars("MULTITUNE_USER"),
	}
}

func serviceArg() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      "service",
			UsageText: "youtube | spotify",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// serviceFrom reads the service positional argument.
func serviceFrom(cmd *cli.Command) (models.Service, error) {
	name := cmd.StringArg("service")
	if name == "" {
		return "", fmt.Errorf("%w: service is required (youtube or spotify)", shared.ErrMissingArgument)
	}
	return models.ParseService(name)
}

// userFrom reads the --user flag.
func userFrom(cmd *cli.Command) (int64, error) {
	id := cmd.Int64("user")
	if id <= 0 {
		return 0, fmt.Errorf("%w: --user flag is required", shared.ErrMissingArgument)
	}
	return id, nil
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and initialize the database",
		Action: r.Setup,
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateDown,
			},
			{
				Name:   "status",
				Usage:  "Print the current schema version",
				Action: r.MigrateStatus,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage local users",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a local user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Usage:    "Unique username",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "Optional email address",
					},
				},
				Action: r.UsersCreate,
			},
			{
				Name:   "list",
				Usage:  "List local users",
				Flags:  outputFlags(),
				Action: r.UsersList,
			},
		},
	}
}

func linkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Link a YouTube or Spotify account through the browser",
		Arguments: serviceArg(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the consent URL instead of opening a browser",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the provider redirect",
				Value: linkTimeout,
			},
		},
		Action: r.Link,
	}
}

func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "token",
		Usage:  "Issue an API session token for a user",
		Flags:  []cli.Flag{userFlag()},
		Action: r.Token,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Mirror playlists and items of a linked account",
		Arguments: serviceArg(),
		Flags:     append([]cli.Flag{userFlag()}, outputFlags()...),
		Action:    r.Sync,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlists",
		Aliases:   []string{"ls"},
		Usage:     "Print the mirrored playlists without contacting the provider",
		Arguments: serviceArg(),
		Flags: append([]cli.Flag{
			userFlag(),
			&cli.BoolFlag{
				Name:  "items",
				Usage: "Include items in plain output",
			},
		}, outputFlags()...),
		Action: r.Playlists,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write mirrored playlists to disk",
		Arguments: serviceArg(),
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: {service}_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent export workers",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "covers",
				Usage: "Download playlist thumbnails for markdown exports",
			},
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "Sync with the provider before exporting",
			},
		},
		Action: r.Export,
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "browse",
		Aliases:   []string{"tui"},
		Usage:     "Browse the mirror in an interactive terminal UI",
		Arguments: serviceArg(),
		Flags: []cli.Flag{
			userFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI owns the terminal",
				Value: "./tmp/multitune-tui.log",
			},
		},
		Action: r.Browse,
	}
}
