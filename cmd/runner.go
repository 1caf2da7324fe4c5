package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/multitune/internal/repositories"
	"github.com/desertthunder/multitune/internal/server"
	"github.com/desertthunder/multitune/internal/services"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/desertthunder/multitune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger used by commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// client returns the outbound HTTP client, throttled by the sync settings unless one was injected.
func (r *Runner) client() *http.Client {
	if r.httpClient == nil {
		r.httpClient = services.NewHTTPClient(r.config.Sync.RequestsPerSecond, r.config.Sync.Burst)
	}
	return r.httpClient
}

// app is the wired object graph a command works against. Close releases the database.
type app struct {
	db        *sql.DB
	users     *repositories.UserRepository
	creds     *repositories.CredentialRepository
	playlists *repositories.PlaylistRepository
	registry  services.Registry
	oauth     *services.OAuthRefresher
	accounts  *tasks.Accounts
	engine    *tasks.SyncEngine
	tokens    *server.TokenIssuer
}

func (a *app) Close() error {
	return a.db.Close()
}

// openDB connects to the configured database without touching its schema.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabaseFromConfig(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// open connects to the database, applies pending migrations and wires repositories, providers and tasks.
func (r *Runner) open() (*app, error) {
	db, err := r.openDB()
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrationsWithLogger(db, r.config.Database.Driver, r.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	client := r.client()
	users := repositories.NewUserRepository(db)
	creds := repositories.NewCredentialRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	registry := services.NewRegistry(
		services.NewYouTubeService(client),
		services.NewSpotifyService(client),
	)
	oauth := services.NewOAuthRefresher(client, services.NewOAuthConfigs(r.config.Credentials))

	return &app{
		db:        db,
		users:     users,
		creds:     creds,
		playlists: playlists,
		registry:  registry,
		oauth:     oauth,
		accounts:  tasks.NewAccounts(users, creds, r.logger),
		engine:    tasks.NewSyncEngine(creds, playlists, registry, oauth, r.logger),
		tokens:    server.NewTokenIssuer(r.config.Auth.JWTSecret, r.config.Auth.TokenTTL),
	}, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, migrateCommand, serveCommand, usersCommand, linkCommand, tokenCommand,
		syncCommand, playlistsCommand, exportCommand, browseCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// exitCode maps an action error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrUnknownService):
		return 2
	case errors.Is(err, shared.ErrNotLinked), errors.Is(err, shared.ErrAuthExpired):
		return 3
	default:
		return 1
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
