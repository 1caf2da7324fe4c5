package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"

	"github.com/desertthunder/multitune/internal/models"
	"github.com/desertthunder/multitune/internal/services"
	"github.com/desertthunder/multitune/internal/shared"
	"github.com/desertthunder/multitune/internal/tasks"
)

// StateTTL bounds how long an OAuth consent redirect stays valid.
const StateTTL = 10 * time.Minute

// Syncer runs the sync engine for one user and service.
type Syncer interface {
	SyncPlaylists(ctx context.Context, userID int64, service models.Service, progress chan<- tasks.ProgressUpdate) (*models.Snapshot, error)
}

// LinkChecker reports whether a user has linked a service.
type LinkChecker interface {
	Linked(ctx context.Context, userID int64, service models.Service) (bool, error)
}

// ItemReader reads mirrored items of a playlist owned by a user.
type ItemReader interface {
	ItemsForUser(ctx context.Context, userID, playlistID int64) ([]models.PlaylistItem, error)
}

// AccountLinker resolves a provider profile to a local user and stores its token.
type AccountLinker interface {
	Link(ctx context.Context, profile *models.Profile, tok *oauth2.Token) (*models.User, error)
}

// Authorizer drives the provider side of the authorization code flow.
type Authorizer interface {
	AuthCodeURL(service models.Service, state string) (string, error)
	Exchange(ctx context.Context, service models.Service, code string) (*oauth2.Token, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// APIConfig holds the dependencies of [API].
type APIConfig struct {
	Sync          Syncer
	Credentials   LinkChecker
	Items         ItemReader
	Accounts      AccountLinker
	OAuth         Authorizer
	Providers     services.Registry
	Tokens        *TokenIssuer
	DB            Pinger
	FrontendURL   string
	AllowedOrigin string
	Logger        *log.Logger
}

// API serves the HTTP surface: OAuth linking, sync and mirror reads.
type API struct {
	APIConfig
	states *cache.Cache
}

// NewAPI creates an [API]. OAuth states live in an in-memory cache for [StateTTL].
func NewAPI(cfg APIConfig) *API {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &API{
		APIConfig: cfg,
		states:    cache.New(StateTTL, 2*StateTTL),
	}
}

// Register adds every route to router. Routes under /api require a session token.
func (a *API) Register(router *BasicRouter) {
	authed := RequireAuth(a.Tokens)

	router.HandleFunc(http.MethodGet, "/health", a.health)
	router.HandleFunc(http.MethodGet, "/auth/{service}", a.authStart)
	router.HandleFunc(http.MethodGet, "/auth/{service}/callback", a.authCallback)

	router.Handle(http.MethodGet, "/api/{service}/linked", authed(http.HandlerFunc(a.linked)))
	router.Handle(http.MethodGet, "/api/{service}/playlists", authed(http.HandlerFunc(a.playlists)))
	router.Handle(http.MethodGet, "/api/{service}/sync/stream", authed(http.HandlerFunc(a.syncStream)))
	router.Handle(http.MethodGet, "/api/db/playlists/{id}/items", authed(http.HandlerFunc(a.items)))
}

// Handler returns the complete HTTP handler: routes wrapped with request logging and CORS.
func (a *API) Handler() http.Handler {
	router := NewBasicRouter()
	a.Register(router)
	return Chain(router, RequestLogger(a.Logger), CORS(a.AllowedOrigin))
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.DB != nil {
		if err := a.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) authStart(w http.ResponseWriter, r *http.Request) {
	service, err := models.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := shared.GenerateID()
	authURL, err := a.OAuth.AuthCodeURL(service, state)
	if err != nil {
		writeError(w, err)
		return
	}
	a.states.Set(state, service, cache.DefaultExpiration)

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *API) authCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	service, err := models.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	state := query.Get("state")
	stored, found := a.states.Get(state)
	if state == "" || !found || stored != service {
		writeError(w, fmt.Errorf("%w: unknown or expired state", shared.ErrInvalidArgument))
		return
	}
	a.states.Delete(state)

	code := query.Get("code")
	if code == "" {
		writeError(w, fmt.Errorf("%w: authorization failed: %s %s",
			shared.ErrInvalidCredential, query.Get("error"), query.Get("error_description")))
		return
	}

	tok, err := a.OAuth.Exchange(ctx, service, code)
	if err != nil {
		writeError(w, err)
		return
	}

	provider, err := a.Providers.Get(service)
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := provider.Profile(ctx, tok.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := a.Accounts.Link(ctx, profile, tok)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := a.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	a.Logger.Info("account linked", "user", user.ID, "service", service)

	if a.FrontendURL == "" {
		writeJSON(w, http.StatusOK, map[string]any{"token": session, "user_id": user.ID, "linked": service})
		return
	}

	params := url.Values{}
	params.Set("token", session)
	params.Set("linked", string(service))
	http.Redirect(w, r, strings.TrimRight(a.FrontendURL, "/")+"/?"+params.Encode(), http.StatusFound)
}

// authorized returns the session user and the service named in the path.
func authorized(r *http.Request) (int64, models.Service, error) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		return 0, "", shared.ErrMissingCredential
	}
	service, err := models.ParseService(r.PathValue("service"))
	if err != nil {
		return 0, "", err
	}
	return userID, service, nil
}

func (a *API) linked(w http.ResponseWriter, r *http.Request) {
	userID, service, err := authorized(r)
	if err != nil {
		writeError(w, err)
		return
	}

	linked, err := a.Credentials.Linked(r.Context(), userID, service)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"linked": linked})
}

func (a *API) playlists(w http.ResponseWriter, r *http.Request) {
	userID, service, err := authorized(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snapshot, err := a.Sync.SyncPlaylists(r.Context(), userID, service, nil)
	if err != nil {
		a.Logger.Error("sync failed", "user", userID, "service", service, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type streamEvent struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// syncStream runs a sync and streams its progress as server-sent events, ending with a "done" or "error" event.
func (a *API) syncStream(w http.ResponseWriter, r *http.Request) {
	userID, service, err := authorized(r)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("%w: streaming unsupported", shared.ErrNotImplemented))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progress := make(chan tasks.ProgressUpdate, 64)
	type outcome struct {
		snapshot *models.Snapshot
		err      error
	}
	done := make(chan outcome, 1)

	go func() {
		snapshot, err := a.Sync.SyncPlaylists(r.Context(), userID, service, progress)
		close(progress)
		done <- outcome{snapshot, err}
	}()

	for update := range progress {
		writeEvent(w, "progress", streamEvent{
			Phase:   update.Phase.String(),
			Step:    update.Step,
			Total:   update.Total,
			Message: update.Message,
		})
		flusher.Flush()
	}

	res := <-done
	if res.err != nil {
		writeEvent(w, "error", errorResponse{Error: res.err.Error(), Details: errorDetails(res.err)})
	} else {
		writeEvent(w, "done", map[string]int{
			"playlists": len(res.snapshot.Playlists),
			"items":     res.snapshot.ItemCount(),
		})
	}
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (a *API) items(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		writeError(w, shared.ErrMissingCredential)
		return
	}

	playlistID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || playlistID <= 0 {
		writeError(w, fmt.Errorf("%w: playlist id %q", shared.ErrInvalidArgument, r.PathValue("id")))
		return
	}

	items, err := a.Items.ItemsForUser(r.Context(), userID, playlistID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.PlaylistItem{"items": items})
}
