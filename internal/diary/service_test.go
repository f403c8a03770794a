package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/drive"
	"github.com/tonimelisma/niwalog/internal/gapi"
	"github.com/tonimelisma/niwalog/internal/sheets"
	"github.com/tonimelisma/niwalog/internal/weather"
	"github.com/tonimelisma/niwalog/testutil"
)

const (
	firstToken  = "ya29.first"
	secondToken = "ya29.second"
)

var testNow = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// harness is a Service wired to fake Sheets and Drive APIs through a real
// Executor. Both fakes start out accepting firstToken; the refresher
// hands out secondToken.
type harness struct {
	svc        *Service
	sheets     *testutil.Sheets
	drive      *testutil.Drive
	store      *auth.MemoryStore
	refreshes  atomic.Int32
	refreshErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		sheets: testutil.NewSheets(t, firstToken),
		drive:  testutil.NewDrive(t, firstToken),
		store:  auth.NewMemoryStore(),
	}

	for _, hdr := range sheets.Headers {
		h.sheets.AddSheet(hdr.Sheet, hdr.Columns)
	}

	h.drive.Put(testutil.File{
		ID: h.sheets.SpreadsheetID, Name: "niwalog", MimeType: "application/vnd.google-apps.spreadsheet",
	})

	h.store.Replace(auth.Credential{Subject: "gardener@example.com", BearerToken: firstToken})

	exec := auth.NewExecutor(h.store, auth.RefresherFunc(func(context.Context) (string, error) {
		h.refreshes.Add(1)

		if h.refreshErr != nil {
			return "", h.refreshErr
		}

		return secondToken, nil
	}), testLogger(t))

	h.svc = New(exec, Config{
		Sheets:        gapi.Config{Endpoint: h.sheets.URL},
		Drive:         gapi.Config{Endpoint: h.drive.URL},
		SpreadsheetID: h.sheets.SpreadsheetID,
		UserName:      "Hana",
		Logger:        testLogger(t),
	})
	h.svc.now = func() time.Time { return testNow }

	var n atomic.Int32
	h.svc.newID = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }

	return h
}

// expire makes both fakes reject the first token, as if it had expired.
func (h *harness) expire() {
	h.sheets.SetToken(secondToken)
	h.drive.SetToken(secondToken)
}

func TestNew_Defaults(t *testing.T) {
	svc := New(auth.NewExecutor(auth.NewMemoryStore(), nil, nil), Config{SpreadsheetID: "s"})

	assert.Equal(t, "s", svc.SpreadsheetID())
	assert.NotNil(t, svc.weather)
	assert.NotNil(t, svc.logger)
}

func TestInitSpreadsheet(t *testing.T) {
	h := newHarness(t)
	fresh := testutil.NewSheets(t, firstToken)
	h.svc.sheetsCfg = gapi.Config{Endpoint: fresh.URL}

	res, err := h.svc.InitSpreadsheet(t.Context())
	require.NoError(t, err)
	assert.Len(t, res.CreatedSheets, len(sheets.Headers))
	assert.Equal(t, []string{"key", "value"}, fresh.Rows(sheets.Settings)[0])

	res, err = h.svc.InitSpreadsheet(t.Context())
	require.NoError(t, err)
	assert.Empty(t, res.CreatedSheets)
	assert.Empty(t, res.WroteHeaders)
}

func TestNoSpreadsheetConfigured(t *testing.T) {
	h := newHarness(t)
	h.svc.spreadsheetID = ""

	_, err := h.svc.ListPlanters(t.Context(), "")
	require.ErrorIs(t, err, ErrNoSpreadsheet)
	assert.Zero(t, h.sheets.Calls("values.get"))
}

func TestNotSignedIn(t *testing.T) {
	h := newHarness(t)
	h.store.Clear()

	_, err := h.svc.ListPlanters(t.Context(), "")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Zero(t, h.refreshes.Load())
}

func TestRejectedTokenRefreshedOnce(t *testing.T) {
	h := newHarness(t)
	h.expire()

	p, err := h.svc.AddPlanter(t.Context(), PlanterInput{CropName: "Tomato"})
	require.NoError(t, err)
	assert.Equal(t, "Tomato", p.Name)
	assert.Equal(t, int32(1), h.refreshes.Load())

	cred, ok := h.store.Current()
	require.True(t, ok)
	assert.Equal(t, secondToken, cred.BearerToken)
	assert.Equal(t, "gardener@example.com", cred.Subject)

	// Later calls use the refreshed token without another refresh.
	planters, err := h.svc.ListPlanters(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, planters, 1)
	assert.Equal(t, int32(1), h.refreshes.Load())
}

func TestRefreshFailureSignsOut(t *testing.T) {
	h := newHarness(t)
	h.expire()
	h.refreshErr = errors.New("invalid_grant")

	_, err := h.svc.ListPlanters(t.Context(), "")
	require.ErrorIs(t, err, auth.ErrSessionExpired)

	_, ok := h.store.Current()
	assert.False(t, ok)

	_, err = h.svc.ListPlanters(t.Context(), "")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Equal(t, int32(1), h.refreshes.Load())
}

func TestServerErrorNotRetried(t *testing.T) {
	h := newHarness(t)
	h.sheets.FailNext("values.get", 503, 1)

	_, err := h.svc.ListPlanters(t.Context(), "")
	require.ErrorIs(t, err, gapi.ErrServerError)
	assert.Equal(t, 1, h.sheets.Calls("values.get"))
	assert.Zero(t, h.refreshes.Load())
}

func TestEnsureAppFolder(t *testing.T) {
	h := newHarness(t)

	id, err := h.svc.EnsureAppFolder(t.Context())
	require.NoError(t, err)

	folders := h.drive.Children("root")
	require.Len(t, folders, 1)
	assert.Equal(t, drive.AppFolderName, folders[0].Name)
	assert.Equal(t, id, folders[0].ID)

	settings, err := h.svc.Settings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, id, settings[sheets.SettingDriveFolderID])

	reads := h.sheets.Calls("values.get")

	again, err := h.svc.EnsureAppFolder(t.Context())
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, reads, h.sheets.Calls("values.get"), "cached id must not hit the spreadsheet")
}

func TestEnsureAppFolder_FromSettings(t *testing.T) {
	h := newHarness(t)
	h.sheets.AddSheet(sheets.Settings, []string{"key", "value"}, []string{sheets.SettingDriveFolderID, "folder-from-settings"})

	id, err := h.svc.EnsureAppFolder(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "folder-from-settings", id)
	assert.Empty(t, h.drive.Children("root"))
}

func TestSettingsAndLocation(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	_, err := h.svc.SavedLocation(ctx)
	require.ErrorIs(t, err, ErrNoLocation)

	loc := weather.Location{Latitude: 35.68, Longitude: 139.76, Timezone: "Asia/Tokyo"}
	require.NoError(t, h.svc.SaveLocation(ctx, loc))

	got, err := h.svc.SavedLocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	require.NoError(t, h.svc.PutSetting(ctx, sheets.SettingOwnerEmail, "hana@example.com"))

	settings, err := h.svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hana@example.com", settings[sheets.SettingOwnerEmail])
	assert.Equal(t, "35.68", settings[sheets.SettingLatitude])
}

func TestLocationFromSettings_BadNumber(t *testing.T) {
	_, err := locationFromSettings(map[string]string{sheets.SettingLatitude: "north", sheets.SettingLongitude: "1"})
	assert.ErrorContains(t, err, "parsing latitude")
}
