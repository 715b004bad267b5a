package enrollment

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout         = errors.New("enrollment request timeout")
	ErrTransport       = errors.New("enrollment service unreachable")
	ErrRequestFailed   = errors.New("enrollment request failed")
	ErrInvalidResponse = errors.New("invalid response from enrollment service")
	ErrSessionInit     = errors.New("enrollment session could not be started")
)

// APIError is a non-2xx response from the enrollment service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("enrollment service returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("enrollment service returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrRequestFailed
}

// Retryable reports whether the failure is on the server side.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}
