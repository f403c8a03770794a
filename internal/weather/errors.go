// Package weather fetches forecasts and daily history from the Open-Meteo
// API, with automatic retry and error classification, and turns a forecast
// into gardening work advice.
package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, weather.ErrBadRequest) to check.
var (
	ErrBadRequest  = errors.New("weather: bad request")
	ErrNotFound    = errors.New("weather: not found")
	ErrThrottled   = errors.New("weather: throttled")
	ErrServerError = errors.New("weather: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the reason
// Open-Meteo gave.
type APIError struct {
	StatusCode int
	Reason     string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weather: HTTP %d: %s", e.StatusCode, e.Reason)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
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

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
