package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/server"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const linkTimeout = 2 * time.Minute

// Link runs the OAuth consent flow for a service on a local callback listener, stores the resulting credential
// against the matching local user and prints a session token for that user.
func (r *Runner) Link(ctx context.Context, cmd *cli.Command) error {
	service, err := serviceFrom(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.oauth.Configured(service) {
		return fmt.Errorf("%w: %s client_id and client_secret must be set in %s",
			shared.ErrMissingConfig, service.Title(), r.configPath)
	}

	open := shared.OpenBrowser
	if cmd.Bool("no-browser") {
		open = func(string) error { return fmt.Errorf("browser disabled") }
	}

	token, err := r.doOAuth(ctx, a.oauth, service, r.redirectURI(service), open, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	provider, err := a.registry.Get(service)
	if err != nil {
		return err
	}

	profile, err := provider.Profile(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	user, err := a.accounts.Link(ctx, profile, token)
	if err != nil {
		return err
	}

	session, err := a.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	r.writePlainln("✓ %s account linked", service.Title())
	r.writePlain("✓ Local user: %s (id %d)\n", user.Username, user.ID)
	r.writePlain("✓ Session token: %s\n\n", session)
	r.writePlain("You can now use: multitune sync %s --user %d\n", service, user.ID)
	return nil
}

func (r *Runner) redirectURI(service models.Service) string {
	switch service {
	case models.Spotify:
		return r.config.Credentials.Spotify.RedirectURI
	case models.YouTube:
		return r.config.Credentials.YouTube.RedirectURI
	default:
		return ""
	}
}

// doOAuth listens on the host of redirect and waits for the provider to send the user back.
func (r *Runner) doOAuth(
	ctx context.Context,
	oauth server.Authorizer,
	service models.Service,
	redirect string,
	open func(string) error,
	timeout time.Duration,
) (*oauth2.Token, error) {
	u, err := url.Parse(redirect)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid %s redirect_uri %q", shared.ErrInvalidConfig, service, redirect)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for callback on %s: %w", u.Host, err)
	}

	return r.awaitOAuth(ctx, ln, u.Path, oauth, service, open, timeout)
}

// awaitOAuth serves the callback path on ln until one redirect arrives, the timeout passes or ctx ends.
func (r *Runner) awaitOAuth(
	ctx context.Context,
	ln net.Listener,
	path string,
	oauth server.Authorizer,
	service models.Service,
	open func(string) error,
	timeout time.Duration,
) (*oauth2.Token, error) {
	if path == "" {
		path = server.CallbackPath
	}
	if timeout <= 0 {
		timeout = linkTimeout
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(service, oauth, state)
	router := server.NewBasicRouter()
	router.Handle(http.MethodGet, path, handler)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeListener(srvCtx, ln, router, r.logger)
	}()
	defer func() {
		stop()
		if err := <-errCh; err != nil {
			r.logger.Warn("callback server error", "error", err)
		}
	}()

	authURL, err := oauth.AuthCodeURL(service, state)
	if err != nil {
		return nil, err
	}

	r.writePlain("Opening browser for %s authorization...\n", service.Title())
	r.writePlain("If the browser doesn't open, visit this URL:\n\n%s\n\n", authURL)

	if err := open(authURL); err != nil {
		r.logger.Debug("failed to open browser", "error", err)
	}

	r.writePlain("Waiting for authorization...\n")

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("%s authorization failed: %w", service.Title(), err)
		}
		return result.Token, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: no %s redirect within %s", shared.ErrAuthExpired, service.Title(), timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
