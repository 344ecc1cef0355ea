package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrInvalidCredentials is returned when the backend rejects an
	// email/password pair. Recoverable: the user can retry.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNetworkUnavailable is returned when the backend cannot be
	// reached at the transport level. Recoverable: retry or serve cache.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTokenExpiredUnrefreshable is returned when the access token has
	// expired and the refresh token was rejected. Terminal for the
	// session: the store signs out.
	ErrTokenExpiredUnrefreshable = errors.New("token expired and refresh rejected")

	// ErrServerRejected is returned when the backend answered with a
	// definitive error (bad request, revoked account, malformed body).
	ErrServerRejected = errors.New("server rejected request")

	// ErrNoSession is returned when an operation requires a session and
	// none is held.
	ErrNoSession = errors.New("no session")
)

// ServerError is a backend rejection carrying the backend's own
// message, for display to the user.
type ServerError struct {
	// Status is the HTTP status code, when the rejection came over HTTP.
	Status int
	// Message is the backend-provided description.
	Message string
}

// Error returns a human-readable description of the rejection.
func (e *ServerError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server rejected request: %s", e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerRejected).
func (e *ServerError) Is(target error) bool {
	return target == ErrServerRejected
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error returns a human-readable description of the failure.
func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network unavailable: %v", e.Cause)
	}
	return "network unavailable"
}

// Unwrap returns the underlying error cause.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrNetworkUnavailable).
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkUnavailable
}
