package sheets

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/gapi"
	"github.com/tonimelisma/niwalog/testutil"
)

const testToken = "ya29.sheets"

func newTestClient(t *testing.T) (*Client, *testutil.Sheets) {
	t.Helper()

	fake := testutil.NewSheets(t, testToken)

	c, err := New(context.Background(), gapi.Config{Endpoint: fake.URL}, testToken, fake.SpreadsheetID)
	require.NoError(t, err)

	return c, fake
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), gapi.Config{}, testToken, "")
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "A"},
		{10, "J"},
		{12, "L"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.n), "column %d", tt.n)
	}
}

func TestValues(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Settings, []string{"key", "value"}, []string{"latitude", "35.6"})

	rows, err := c.Values(t.Context(), Settings)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"key", "value"}, {"latitude", "35.6"}}, rows)
}

func TestValues_EmptySheet(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Planters)

	rows, err := c.Values(t.Context(), Planters)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestValues_Unauthorized(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Planters)
	fake.SetToken("rotated")

	_, err := c.Values(t.Context(), Planters)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Equal(t, auth.KindAuthorization, auth.Classify(err))
}

func TestValues_ServerErrorIsNotAuthorization(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Planters)
	fake.FailNext("values.get", http.StatusServiceUnavailable, 1)

	_, err := c.Values(t.Context(), Planters)
	require.ErrorIs(t, err, gapi.ErrServerError)
	assert.Equal(t, auth.KindOther, auth.Classify(err))
}

func TestAppendUpdateClear(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(ActivityLogs, []string{"id", "planter_id"})
	ctx := t.Context()

	require.NoError(t, c.Append(ctx, ActivityLogs, [][]string{{"a1", "p1"}, {"a2", "p1"}}))
	require.NoError(t, c.UpdateRow(ctx, ActivityLogs, 3, []string{"a2", "p2"}))
	require.NoError(t, c.ClearRow(ctx, ActivityLogs, 2))

	assert.Equal(t, [][]string{{"id", "planter_id"}, nil, {"a2", "p2"}}, fake.Rows(ActivityLogs))
}

func TestAppend_NoRowsIsNoop(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.Append(t.Context(), Planters, nil))
	assert.Zero(t, fake.Calls("values.append"))
}

func TestUpdateRow_InvalidIndex(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Error(t, c.UpdateRow(t.Context(), Planters, 0, []string{"x"}))
}

func TestWriteRowsAndClearFrom(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(HarvestSummary, Headers[5].Columns, []string{"2024", "6"}, []string{"2024", "7"}, []string{"2024", "8"})
	ctx := t.Context()

	require.NoError(t, c.ClearFrom(ctx, HarvestSummary, 2))
	require.NoError(t, c.WriteRows(ctx, HarvestSummary, 2, [][]string{{"2025", "5"}}))

	rows, err := c.Values(ctx, HarvestSummary)
	require.NoError(t, err)
	assert.Equal(t, [][]string{Headers[5].Columns, {"2025", "5"}}, rows)
}

func TestFindRowIndex(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Planters, []string{"id"}, []string{"p1"}, nil, []string{"p3"})

	idx, err := c.FindRowIndex(t.Context(), Planters, "p3")
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	_, err = c.FindRowIndex(t.Context(), Planters, "missing")
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestInitialize_EmptySpreadsheet(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet("Sheet1")

	res, err := c.Initialize(t.Context())
	require.NoError(t, err)

	want := []string{Planters, ActivityLogs, WeatherData, SoilSensorData, Settings, HarvestSummary}
	assert.Equal(t, want, res.CreatedSheets)
	assert.Equal(t, want, res.WroteHeaders)
	assert.Equal(t, append([]string{"Sheet1"}, want...), fake.Titles())

	for _, h := range Headers {
		assert.Equal(t, [][]string{h.Columns}, fake.Rows(h.Sheet), h.Sheet)
	}
}

func TestInitialize_KeepsExistingData(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Planters, Headers[0].Columns, []string{"p1", "Tomato bed"})
	fake.AddSheet(Settings)

	res, err := c.Initialize(t.Context())
	require.NoError(t, err)

	assert.NotContains(t, res.CreatedSheets, Planters)
	assert.NotContains(t, res.CreatedSheets, Settings)
	assert.Contains(t, res.WroteHeaders, Settings)
	assert.NotContains(t, res.WroteHeaders, Planters)
	assert.Len(t, fake.Rows(Planters), 2)
}

func TestInitialize_Idempotent(t *testing.T) {
	c, fake := newTestClient(t)

	_, err := c.Initialize(t.Context())
	require.NoError(t, err)

	res, err := c.Initialize(t.Context())
	require.NoError(t, err)
	assert.Empty(t, res.CreatedSheets)
	assert.Empty(t, res.WroteHeaders)
	assert.Equal(t, 1, fake.Calls("batchUpdate"))
}

func TestInitialize_ProbeFailure(t *testing.T) {
	c, fake := newTestClient(t)
	fake.FailNext("values.get", http.StatusForbidden, 1)

	_, err := c.Initialize(t.Context())
	require.ErrorIs(t, err, gapi.ErrForbidden)
}

func TestSettings(t *testing.T) {
	c, fake := newTestClient(t)
	fake.AddSheet(Settings, []string{"key", "value"}, []string{SettingLatitude, "35.0"})
	ctx := t.Context()

	require.NoError(t, c.PutSetting(ctx, SettingLatitude, "35.6895"))
	require.NoError(t, c.PutSetting(ctx, SettingTimezone, "Asia/Tokyo"))

	got, err := c.ReadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		SettingLatitude: "35.6895",
		SettingTimezone: "Asia/Tokyo",
	}, got)
	assert.Len(t, fake.Rows(Settings), 3)
}
