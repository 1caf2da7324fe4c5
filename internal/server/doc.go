// Package server provides HTTP routing, middleware, and OAuth handling for the Multitune API and the CLI link flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers method patterns on
// [http.ServeMux], so handlers read path values with [http.Request.PathValue].
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # API
//
// [API] serves the backend routes:
//
//	GET /health                        status plus database ping
//	GET /auth/{service}                redirect to provider consent
//	GET /auth/{service}/callback       link the account, redirect to the frontend with a session token
//	GET /api/{service}/linked          {"linked": bool}
//	GET /api/{service}/playlists       run a sync and return the mirrored playlists
//	GET /api/{service}/sync/stream     run a sync and stream progress as server-sent events
//	GET /api/db/playlists/{id}/items   mirrored items of one owned playlist
//
// Routes under /api require a bearer session token issued by [TokenIssuer]. Errors are JSON objects with an
// "error" message and, for provider failures, the raw provider payload under "details". [StatusFor] maps the
// error taxonomy to status codes.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback for the terminal link flow. It validates the state
// parameter, exchanges the code and sends the result through a channel. It only processes one callback.
package server
