package spotify

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error response from the Web API.
//
// Status carries the HTTP status code reported in the error object, Message
// the human readable explanation.
type Error struct {
	Status  int    // HTTP status code
	Message string // Error message from Spotify
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("spotify: error %d: %s", e.Status, e.Message)
}

// Is checks if the target error is a Spotify error with the same status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// Temporary returns true for rate limiting and server side failures.
func (e *Error) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Unauthorized returns true when the token was rejected.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Predefined errors for common cases.
var (
	// ErrNoToken is returned when an operation requires authentication
	// but no token has been set.
	ErrNoToken = errors.New("spotify: token required")

	// ErrNoPendingAuth is returned by Exchange when Begin was never called.
	ErrNoPendingAuth = errors.New("spotify: no authorization in progress")

	// ErrVerifierConsumed is returned when the one-time PKCE verifier for an
	// authorization attempt has already been exchanged.
	ErrVerifierConsumed = errors.New("spotify: verifier already used")

	// ErrStateMismatch is returned when the redirect state does not match
	// the pending authorization attempt.
	ErrStateMismatch = errors.New("spotify: authorization state mismatch")
)
