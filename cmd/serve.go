package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/desertthunder/multitune/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	for service := range a.registry {
		if !a.oauth.Configured(service) {
			r.logger.Warn("oauth client not configured, linking disabled", "service", service)
		}
	}

	api := server.NewAPI(server.APIConfig{
		Sync:          a.engine,
		Credentials:   a.creds,
		Items:         a.playlists,
		Accounts:      a.accounts,
		OAuth:         a.oauth,
		Providers:     a.registry,
		Tokens:        a.tokens,
		DB:            a.db,
		FrontendURL:   cfg.FrontendURL,
		AllowedOrigin: cfg.AllowedOrigin,
		Logger:        r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, cfg.Addr(), api.Handler(), r.logger)
}
