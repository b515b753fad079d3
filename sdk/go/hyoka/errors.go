// Package hyoka provides a Go client for the Hyoka decision-quality API.
package hyoka

import (
	"errors"
	"fmt"
)

// Error represents an error from the Hyoka API with the HTTP status code
// and the server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []FieldError
}

func (e *Error) Error() string {
	return fmt.Sprintf("hyoka: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// FieldError is one rejected field of an INVALID_INPUT response.
type FieldError struct {
	Field  string `json:"field"`
	Index  *int   `json:"index,omitempty"`
	Reason string `json:"reason"`
}

func statusIs(err error, code int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == code
	}
	return false
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool { return statusIs(err, 404) }

// IsInvalidInput returns true if the error is a 400.
func IsInvalidInput(err error) bool { return statusIs(err, 400) }

// IsInsufficientData returns true if the error is a 422, returned when an
// analysis has nothing to work with (e.g. calibration with no predictions).
func IsInsufficientData(err error) bool { return statusIs(err, 422) }

// IsConflict returns true if the error is a 409.
func IsConflict(err error) bool { return statusIs(err, 409) }

// IsRateLimited returns true if the error is a 429 (Too Many Requests).
func IsRateLimited(err error) bool { return statusIs(err, 429) }
