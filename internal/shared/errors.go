package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Identity errors
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")

	// Sync errors
	ErrNotLinked        = errors.New("service not linked")
	ErrUnauthorized     = errors.New("provider rejected access token")
	ErrAuthExpired      = errors.New("authorization expired, re-link required")
	ErrProvider         = errors.New("provider request failed")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrStore            = errors.New("store operation failed")
	ErrUnknownService   = errors.New("unknown service")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrUserNotFound     = errors.New("user not found")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProviderError is a non-authorization provider failure. Payload holds the raw diagnostic body.
type ProviderError struct {
	Service string
	Status  int
	Payload []byte
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned status %d", ErrProvider, e.Service, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", ErrProvider, e.Service, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// RefreshError reports a failed refresh-token exchange. Payload holds the token endpoint's response body.
type RefreshError struct {
	Service string
	Payload []byte
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRefreshFailed, e.Service, e.Err)
}

func (e *RefreshError) Unwrap() []error { return []error{ErrRefreshFailed, e.Err} }

// AuthExpiredError means the stored credential can no longer be used and the user must re-link.
type AuthExpiredError struct {
	Service string
	Cause   error
}

func (e *AuthExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrAuthExpired, e.Service, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrAuthExpired, e.Service)
}

func (e *AuthExpiredError) Unwrap() []error { return []error{ErrAuthExpired, e.Cause} }

// StoreError wraps a database failure with the operation that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// NewStoreError wraps err as a [StoreError] for op. A nil err yields nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
