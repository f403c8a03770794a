package gapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/tonimelisma/niwalog/internal/auth"
)

func TestWrap_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, auth.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"throttled", http.StatusTooManyRequests, ErrThrottled},
		{"server error", http.StatusServiceUnavailable, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap("sheets: values get", &googleapi.Error{Code: tt.status, Message: "boom"})

			require.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, fmt.Sprintf("sheets: values get: HTTP %d: boom", tt.status), err.Error())
		})
	}
}

func TestWrap_OnlyUnauthorizedIsAuthorizationFailure(t *testing.T) {
	assert.Equal(t, auth.KindAuthorization,
		auth.Classify(Wrap("op", &googleapi.Error{Code: http.StatusUnauthorized})))
	assert.Equal(t, auth.KindOther,
		auth.Classify(Wrap("op", &googleapi.Error{Code: http.StatusForbidden})))
}

func TestWrap_EmptyMessageUsesStatusText(t *testing.T) {
	err := Wrap("drive: files list", &googleapi.Error{Code: http.StatusNotFound})
	assert.Contains(t, err.Error(), "Not Found")
}

func TestWrap_RetrieveError(t *testing.T) {
	rerr := &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusUnauthorized},
		ErrorCode: "invalid_token",
	}

	err := Wrap("drive: upload", rerr)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestWrap_PlainError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap("sheets: append", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, auth.KindOther, auth.Classify(err))
	assert.Equal(t, "sheets: append: dial tcp: connection refused", err.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))
}

func TestHTTPClient_SetsBearer(t *testing.T) {
	var got string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := Config{}.HTTPClient("ya29.token").Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer ya29.token", got)
}
