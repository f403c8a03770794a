// Package gapi holds the plumbing shared by the Google Sheets and Drive
// backends: error classification and per-call bearer HTTP clients.
package gapi

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/tonimelisma/niwalog/internal/auth"
)

// Sentinel errors for HTTP status code classification. A 401 maps to
// auth.ErrUnauthorized so the Executor can recognize it.
// Use errors.Is(err, gapi.ErrNotFound) to check.
var (
	ErrBadRequest  = errors.New("gapi: bad request")
	ErrForbidden   = errors.New("gapi: forbidden")
	ErrNotFound    = errors.New("gapi: not found")
	ErrConflict    = errors.New("gapi: conflict")
	ErrThrottled   = errors.New("gapi: throttled")
	ErrServerError = errors.New("gapi: server error")
)

// APIError wraps a sentinel with the HTTP status and the API's message.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Wrap converts an error returned by a Google API call into an APIError when
// it carries an HTTP status. Other errors are wrapped with op unchanged.
// Returns nil for nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}

		return &APIError{Op: op, StatusCode: gerr.Code, Message: msg, Err: classifyStatus(gerr.Code)}
	}

	// The bearer transport surfaces token endpoint failures this way.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		code := rerr.Response.StatusCode
		return &APIError{Op: op, StatusCode: code, Message: rerr.ErrorCode, Err: classifyStatus(code)}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return auth.ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
