package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.InDelta(t, 10.0, cfg.Analytics.GDDBaseTemp, 0)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
	assert.Equal(t, "60s", cfg.Network.Timeout)
	assert.Equal(t, "2s", cfg.Soil.Debounce)
	assert.Empty(t, cfg.Google.SpreadsheetID)
	assert.False(t, cfg.Location.Set())
}

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Minute, cfg.Network.TimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.Soil.DebounceDuration())

	cfg.Soil.Debounce = "soon"
	assert.Zero(t, cfg.Soil.DebounceDuration())
}

func TestLocationConfig_TimeLocation(t *testing.T) {
	assert.Equal(t, time.Local, LocationConfig{}.TimeLocation())

	loc := LocationConfig{Timezone: "Asia/Tokyo"}.TimeLocation()
	assert.Equal(t, "Asia/Tokyo", loc.String())

	assert.Equal(t, time.Local, LocationConfig{Timezone: "Mars/Olympus"}.TimeLocation())
}
