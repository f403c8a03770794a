// Package google is the identity provider client: interactive sign-in with
// Google (authorization code + PKCE over a loopback redirect), silent token
// refresh from the saved refresh token, revocation, and identity lookup.
//
// Only Login ever involves the user. Refresh never opens a browser; when the
// saved refresh token is missing or rejected it fails and the caller decides
// what signed-out means.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/tokenfile"
)

// Google endpoints that golang.org/x/oauth2/google does not carry.
const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// Scopes requested at sign-in: spreadsheet read/write, files this app
// creates, and the signed-in identity.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

var (
	// ErrNoRefreshToken means there is no saved session to refresh silently.
	ErrNoRefreshToken = errors.New("google: no saved refresh token")

	// ErrMissingClientID means the OAuth client is not configured.
	ErrMissingClientID = errors.New("google: OAuth client ID not configured")
)

// Config configures a Provider. Endpoint and the URL fields default to
// Google's production endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenPath    string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	RevokeURL    string
	HTTPClient   *http.Client
}

// Provider implements auth.Refresher against Google's token endpoint and
// persists tokens through tokenfile.
type Provider struct {
	oauth       *oauth2.Config
	tokenPath   string
	userInfoURL string
	revokeURL   string
	httpClient  *http.Client
	logger      *slog.Logger
}

// UserInfo is the signed-in user's profile.
type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// New creates a Provider.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}

	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleoauth.Endpoint
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		tokenPath:   cfg.TokenPath,
		userInfoURL: cfg.UserInfoURL,
		revokeURL:   cfg.RevokeURL,
		httpClient:  cfg.HTTPClient,
		logger:      logger,
	}

	if p.userInfoURL == "" {
		p.userInfoURL = defaultUserInfoURL
	}

	if p.revokeURL == "" {
		p.revokeURL = defaultRevokeURL
	}

	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}

	return p, nil
}

// Refresh implements auth.Refresher: it exchanges the saved refresh token for
// a new access token. It never prompts.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	saved, meta, err := tokenfile.Load(p.tokenPath)
	if err != nil {
		return "", fmt.Errorf("google: silent refresh: %w", err)
	}

	if saved == nil || saved.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	// No access token: the token source goes straight to the refresh grant.
	stale := &oauth2.Token{RefreshToken: saved.RefreshToken}

	fresh, err := p.oauth.TokenSource(p.clientContext(ctx), stale).Token()
	if err != nil {
		p.logger.Warn("silent refresh rejected", slog.String("error", err.Error()))
		return "", fmt.Errorf("google: silent refresh: %w", err)
	}

	// Google usually omits the refresh token on a refresh grant.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = saved.RefreshToken
	}

	if saveErr := tokenfile.Save(p.tokenPath, fresh, meta); saveErr != nil {
		p.logger.Warn("failed to persist refreshed token",
			slog.String("path", p.tokenPath),
			slog.String("error", saveErr.Error()),
		)
	}

	p.logger.Info("access token refreshed",
		slog.String("path", p.tokenPath),
		slog.Time("expiry", fresh.Expiry),
	)

	return fresh.AccessToken, nil
}

// Revoke invalidates token (access or refresh) at Google. Used on sign-out.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("google: creating revoke request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google: revoking token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("google: revoking token: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	p.logger.Info("token revoked")

	return nil
}

// UserInfo fetches the profile for token. A rejected token wraps
// auth.ErrUnauthorized, so the call can run under an auth.Executor.
func (p *Provider) UserInfo(ctx context.Context, token string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: creating userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("google: userinfo: HTTP 401: %w", auth.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("google: userinfo: HTTP %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("google: decoding userinfo: %w", err)
	}

	return &info, nil
}

// identity resolves the signed-in user for a freshly issued token: the
// id_token claims when present, otherwise the userinfo endpoint.
func (p *Provider) identity(ctx context.Context, tok *oauth2.Token) (*UserInfo, error) {
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		info, err := identityFromIDToken(raw)
		if err == nil && info.Email != "" {
			return info, nil
		}

		p.logger.Debug("id_token unusable, falling back to userinfo")
	}

	return p.UserInfo(ctx, tok.AccessToken)
}

// identityFromIDToken reads the email and name claims. The signature is not
// verified: the token came directly from Google's token endpoint over TLS in
// this process, not from an untrusted party.
func identityFromIDToken(raw string) (*UserInfo, error) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("google: parsing id_token: %w", err)
	}

	info := &UserInfo{}
	info.Email, _ = claims["email"].(string)
	info.Name, _ = claims["name"].(string)
	info.Picture, _ = claims["picture"].(string)

	return info, nil
}

// clientContext makes the oauth2 package use the Provider's HTTP client.
func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}
