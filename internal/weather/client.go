package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25

	defaultUserAgent = "niwalog/0.1"
)

// Production Open-Meteo endpoints.
const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
)

// Config configures a Client. Zero fields take production defaults.
type Config struct {
	ForecastURL string
	ArchiveURL  string
	HTTPClient  *http.Client
	UserAgent   string
}

// Client is an HTTP client for the Open-Meteo API. The API needs no
// credentials, so calls do not go through the auth executor.
type Client struct {
	forecastURL string
	archiveURL  string
	httpClient  *http.Client
	userAgent   string
	logger      *slog.Logger

	// sleepFunc is called to wait between retries. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error

	// now stamps fetched data. Tests override it.
	now func() time.Time
}

// NewClient creates an Open-Meteo client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		forecastURL: cfg.ForecastURL,
		archiveURL:  cfg.ArchiveURL,
		httpClient:  cfg.HTTPClient,
		userAgent:   cfg.UserAgent,
		logger:      logger,
		sleepFunc:   timeSleep,
		now:         time.Now,
	}

	if c.forecastURL == "" {
		c.forecastURL = DefaultForecastURL
	}

	if c.archiveURL == "" {
		c.archiveURL = DefaultArchiveURL
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}

	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	return c
}

// getJSON GETs base with query and decodes the JSON response into out,
// retrying network errors and retryable statuses.
func (c *Client) getJSON(ctx context.Context, base string, query url.Values, out any) error {
	target := base + "?" + query.Encode()

	var attempt int
	for {
		resp, err := c.doOnce(ctx, target)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return fmt.Errorf("weather: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("url", base),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return fmt.Errorf("weather: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return fmt.Errorf("weather: GET %s failed after %d retries: %w", base, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			defer resp.Body.Close()

			c.logger.Debug("request succeeded",
				slog.String("url", base),
				slog.Int("status", resp.StatusCode),
			)

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("weather: decoding response: %w", err)
			}

			return nil
		}

		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("url", base),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return fmt.Errorf("weather: request canceled: %w", err)
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("url", base),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return &APIError{
			StatusCode: resp.StatusCode,
			Reason:     errorReason(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// errorReason extracts Open-Meteo's {"error":true,"reason":"..."} message,
// falling back to the raw body.
func errorReason(body []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}

	if json.Unmarshal(body, &e) == nil && e.Reason != "" {
		return e.Reason
	}

	return string(body)
}

// doOnce executes a single GET request (no retry).
func (c *Client) doOnce(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
