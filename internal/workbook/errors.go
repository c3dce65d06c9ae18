// Package workbook provides an HTTP client for the Microsoft Graph workbook
// and mail endpoints with bounded retry for throttling and workbook lock
// contention.
package workbook

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for terminal response classification.
// Use errors.Is(err, workbook.ErrThrottled) to check.
var (
	ErrBadRequest   = errors.New("workbook: bad request")
	ErrUnauthorized = errors.New("workbook: unauthorized")
	ErrForbidden    = errors.New("workbook: forbidden")
	ErrNotFound     = errors.New("workbook: not found")
	ErrThrottled    = errors.New("workbook: throttled")
	ErrLocked       = errors.New("workbook: workbook edit lock contended")
	ErrServerError  = errors.New("workbook: server error")
)

// CallError is a terminal (non-retried or retry-exhausted) Graph API failure.
// It carries the HTTP status code, the request ID when the service returned
// one, and the raw response body verbatim.
type CallError struct {
	StatusCode int
	RequestID  string
	Body       string
	Err        error // sentinel, for errors.Is()
}

func (e *CallError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("workbook: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Body)
	}

	return fmt.Sprintf("workbook: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
