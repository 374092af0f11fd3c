package pinata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error represents an error response from the Pinata API.
type Error struct {
	StatusCode int    // HTTP status code
	Message    string // Error reason or details from Pinata
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("pinata: error %d: %s", e.StatusCode, e.Message)
}

// Is checks if the target error is a Pinata error with the same status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// NotFound reports whether the content was not pinned in the first place.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ErrEmptyHash is returned when a pin succeeds without returning a hash.
var ErrEmptyHash = errors.New("pinata: response carried no IpfsHash")

// parseError builds an *Error from a non-2xx response. Pinata reports errors
// either as {"error": {"reason", "details"}} or {"error": "message"}.
func parseError(status int, body []byte) *Error {
	var structured struct {
		Error struct {
			Reason  string `json:"reason"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && structured.Error.Reason != "" {
		msg := structured.Error.Reason
		if structured.Error.Details != "" {
			msg += ": " + structured.Error.Details
		}
		return &Error{StatusCode: status, Message: msg}
	}

	var plain struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &plain); err == nil && plain.Error != "" {
		return &Error{StatusCode: status, Message: plain.Error}
	}

	return &Error{StatusCode: status, Message: http.StatusText(status)}
}
