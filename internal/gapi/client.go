package gapi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// defaultTimeout bounds each Google API call made through HTTPClient.
const defaultTimeout = 60 * time.Second

// Config carries what every per-call Google API client needs besides the
// token: an optional base transport, endpoint override (tests) and user agent.
type Config struct {
	Transport http.RoundTripper
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// HTTPClient returns an HTTP client that presents token as a bearer
// credential. The token is fixed for the client's lifetime: refresh is the
// Executor's job, not the transport's.
func (c Config) HTTPClient(token string) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}

// Options returns the client options for a service bound to token.
func (c Config) Options(token string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(c.HTTPClient(token))}

	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	if c.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(c.UserAgent))
	}

	return opts
}

// Service builds a Google API service bound to token with newService (for
// example sheets.NewService) and wraps construction failures with op.
func Service[S any](
	ctx context.Context, c Config, token, op string,
	newService func(context.Context, ...option.ClientOption) (S, error),
) (S, error) {
	svc, err := newService(ctx, c.Options(token)...)
	if err != nil {
		var zero S
		return zero, Wrap(op, err)
	}

	return svc, nil
}
