// Package diary implements the gardening diary's features on top of the
// spreadsheet and Drive backends: planters, activity logs with photos,
// weather history, soil readings, settings, sharing and the derived
// analytics views.
//
// Every remote call runs through an auth.Executor, so a rejected access
// token is refreshed silently once and the call retried once. Services
// build a fresh backend client per attempt, bound to the token the
// Executor hands them.
package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/drive"
	"github.com/tonimelisma/niwalog/internal/gapi"
	"github.com/tonimelisma/niwalog/internal/sheets"
	"github.com/tonimelisma/niwalog/internal/weather"
)

// Errors returned by diary operations.
var (
	ErrNotFound        = errors.New("diary: not found")
	ErrNoSpreadsheet   = errors.New("diary: no spreadsheet configured")
	ErrInvalidActivity = errors.New("diary: invalid activity")
	ErrTooManyPhotos   = errors.New("diary: too many photos")
	ErrInvalidPlanter  = errors.New("diary: invalid planter")
	ErrNoLocation      = errors.New("diary: no garden location configured")
)

// Config wires a Service to its backends.
type Config struct {
	// Sheets and Drive configure the per-call Google API clients.
	Sheets gapi.Config
	Drive  gapi.Config

	SpreadsheetID string
	// FolderID is the app folder id when already known.
	FolderID string
	// UserName is recorded on activity logs.
	UserName string

	Weather *weather.Client
	Logger  *slog.Logger
}

// Service is the diary. Safe for concurrent use.
type Service struct {
	exec          *auth.Executor
	sheetsCfg     gapi.Config
	driveCfg      gapi.Config
	spreadsheetID string
	userName      string
	weather       *weather.Client
	logger        *slog.Logger

	mu       sync.Mutex
	folderID string

	now   func() time.Time
	newID func() string
}

// New creates a Service running its remote calls through exec.
func New(exec *auth.Executor, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	wc := cfg.Weather
	if wc == nil {
		wc = weather.NewClient(weather.Config{}, logger)
	}

	return &Service{
		exec:          exec,
		sheetsCfg:     cfg.Sheets,
		driveCfg:      cfg.Drive,
		spreadsheetID: cfg.SpreadsheetID,
		userName:      cfg.UserName,
		weather:       wc,
		logger:        logger,
		folderID:      cfg.FolderID,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// SpreadsheetID returns the spreadsheet the diary writes to.
func (s *Service) SpreadsheetID() string {
	return s.spreadsheetID
}

func (s *Service) today() string {
	return s.now().Format(time.DateOnly)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// withSheets runs fn against a spreadsheet client bound to the executor's
// current token. A rejected token reruns fn once with the refreshed one.
func withSheets[T any](ctx context.Context, s *Service, fn func(context.Context, *sheets.Client) (T, error)) (T, error) {
	if s.spreadsheetID == "" {
		var zero T
		return zero, ErrNoSpreadsheet
	}

	return auth.Execute(ctx, s.exec, func(ctx context.Context, token string) (T, error) {
		c, err := sheets.New(ctx, s.sheetsCfg, token, s.spreadsheetID)
		if err != nil {
			var zero T
			return zero, err
		}

		return fn(ctx, c)
	})
}

func (s *Service) runSheets(ctx context.Context, fn func(context.Context, *sheets.Client) error) error {
	_, err := withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) (struct{}, error) {
		return struct{}{}, fn(ctx, c)
	})

	return err
}

// withDrive is withSheets for Drive.
func withDrive[T any](ctx context.Context, s *Service, fn func(context.Context, *drive.Client) (T, error)) (T, error) {
	return auth.Execute(ctx, s.exec, func(ctx context.Context, token string) (T, error) {
		c, err := drive.New(ctx, s.driveCfg, token)
		if err != nil {
			var zero T
			return zero, err
		}

		return fn(ctx, c)
	})
}

func (s *Service) runDrive(ctx context.Context, fn func(context.Context, *drive.Client) error) error {
	_, err := withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (struct{}, error) {
		return struct{}{}, fn(ctx, c)
	})

	return err
}

// readSheet returns the decoded records of one sheet.
func readSheet[T any](ctx context.Context, s *Service, sheet string, parse func([]string) T) ([]T, error) {
	return withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) ([]T, error) {
		rows, err := c.Values(ctx, sheet)
		if err != nil {
			return nil, err
		}

		return sheets.Records(rows, parse), nil
	})
}

// clearRecord blanks the row of sheet whose id is id. kind names the
// record in the not-found error.
func (s *Service) clearRecord(ctx context.Context, sheet, kind, id string) error {
	return s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		idx, err := c.FindRowIndex(ctx, sheet, id)
		if errors.Is(err, sheets.ErrRowNotFound) {
			return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
		}

		if err != nil {
			return err
		}

		return c.ClearRow(ctx, sheet, idx)
	})
}

// InitSpreadsheet creates missing sheets and header rows.
func (s *Service) InitSpreadsheet(ctx context.Context) (sheets.InitResult, error) {
	res, err := withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) (sheets.InitResult, error) {
		return c.Initialize(ctx)
	})
	if err != nil {
		return res, err
	}

	s.logger.Info("spreadsheet initialized",
		slog.String("spreadsheet_id", s.spreadsheetID),
		slog.Any("created_sheets", res.CreatedSheets),
		slog.Any("wrote_headers", res.WroteHeaders),
	)

	return res, nil
}

// EnsureAppFolder returns the Drive app folder id. The id is looked up in
// the settings sheet first, then in Drive, creating the folder when
// missing, and recorded in settings.
func (s *Service) EnsureAppFolder(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.folderID
	s.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return "", err
	}

	id := settings[sheets.SettingDriveFolderID]
	if id == "" {
		id, err = withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (string, error) {
			return c.EnsureAppFolder(ctx)
		})
		if err != nil {
			return "", err
		}

		if err := s.PutSetting(ctx, sheets.SettingDriveFolderID, id); err != nil {
			return "", err
		}

		s.logger.Info("app folder ready", slog.String("folder_id", id))
	}

	s.mu.Lock()
	s.folderID = id
	s.mu.Unlock()

	return id, nil
}
