package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/multitune/internal/shared"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// StatusFor maps an error from the sync engine or the identity check to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotLinked),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAuthExpired),
		errors.Is(err, shared.ErrMissingCredential),
		errors.Is(err, shared.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrUnknownService):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails extracts the raw provider diagnostic carried by err, if any.
func errorDetails(err error) any {
	var payload []byte

	var perr *shared.ProviderError
	var rerr *shared.RefreshError
	switch {
	case errors.As(err, &perr):
		payload = perr.Payload
	case errors.As(err, &rerr):
		payload = rerr.Payload
	}

	if len(payload) == 0 {
		return nil
	}
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	return string(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorResponse{Error: err.Error(), Details: errorDetails(err)})
}
