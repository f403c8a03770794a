package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/config"
	"github.com/tonimelisma/niwalog/internal/diary"
	"github.com/tonimelisma/niwalog/internal/gapi"
	"github.com/tonimelisma/niwalog/internal/google"
	"github.com/tonimelisma/niwalog/internal/tokenfile"
	"github.com/tonimelisma/niwalog/internal/weather"
)

// userAgent is sent to Google and Open-Meteo unless the config sets one.
func userAgent(cfg *config.Resolved) string {
	if cfg.Network.UserAgent != "" {
		return cfg.Network.UserAgent
	}

	return "niwalog/" + version
}

// Session holds everything a diary command needs: the credential store, the
// identity provider that refreshes it, the executor that runs every Google
// call and the diary service on top.
type Session struct {
	Store    *auth.FileStore
	Provider *google.Provider
	Exec     *auth.Executor
	Diary    *diary.Service
}

// newProvider builds the Google identity provider from config.
func newProvider(cfg *config.Resolved, logger *slog.Logger) (*google.Provider, error) {
	return google.New(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		TokenPath:    cfg.TokenPath(),
		HTTPClient:   &http.Client{Timeout: cfg.Network.TimeoutDuration()},
	}, logger)
}

// openSession opens the saved credential and wires the diary. It does not
// require a signed-in user: operations report auth.ErrNotAuthenticated.
func openSession(cc *CLIContext) (*Session, error) {
	cfg, logger := cc.Cfg, cc.Logger

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := auth.OpenFileStore(cfg.TokenPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	exec := auth.NewExecutor(store, provider, logger)

	api := gapi.Config{
		UserAgent: userAgent(cfg),
		Timeout:   cfg.Network.TimeoutDuration(),
	}

	userName := ""
	if meta, err := tokenfile.ReadMeta(cfg.TokenPath()); err == nil {
		userName = meta[tokenfile.MetaDisplayName]
		if userName == "" {
			userName = meta[tokenfile.MetaSubject]
		}
	} else {
		logger.Debug("credential metadata unavailable", slog.String("error", err.Error()))
	}

	wc := weather.NewClient(weather.Config{
		HTTPClient: &http.Client{Timeout: cfg.Network.TimeoutDuration()},
		UserAgent:  userAgent(cfg),
	}, logger)

	svc := diary.New(exec, diary.Config{
		Sheets:        api,
		Drive:         api,
		SpreadsheetID: cfg.Google.SpreadsheetID,
		FolderID:      cfg.Google.FolderID,
		UserName:      userName,
		Weather:       wc,
		Logger:        logger,
	})

	return &Session{Store: store, Provider: provider, Exec: exec, Diary: svc}, nil
}
