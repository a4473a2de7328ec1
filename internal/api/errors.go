package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the backend could not be reached at all:
	// connection refused, DNS failure or timeout.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrMalformedResponse indicates the backend answered with a success
	// status but the body could not be interpreted.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrDimensionMismatch indicates an embedding whose length does not
	// match the configured vector dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBlankQuery rejects empty questions and queries before any
	// network call is made.
	ErrBlankQuery = errors.New("query must not be blank")
)

// BackendError is returned when a backend was reached but answered with
// a non-success status code.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}
