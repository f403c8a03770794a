package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range []string{EnvConfig, EnvClientID, EnvClientSecret, EnvSpreadsheetID, EnvFolderID} {
		t.Setenv(k, "")
	}
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[google]
client_id = "client.apps.googleusercontent.com"
client_secret = "secret"
spreadsheet_id = "1AbC"
folder_id = "0Fold"

[location]
latitude = 35.6812
longitude = 139.7671
timezone = "Asia/Tokyo"

[analytics]
gdd_base_temp = 5.0

[logging]
log_level = "debug"
log_format = "json"

[network]
timeout = "30s"
user_agent = "niwalog-test"

[soil]
watch_dir = "/srv/sensors"
planter_id = "p-1"
debounce = "500ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1AbC", cfg.Google.SpreadsheetID)
	require.True(t, cfg.Location.Set())
	assert.InDelta(t, 35.6812, *cfg.Location.Latitude, 1e-9)
	assert.InDelta(t, 5.0, cfg.Analytics.GDDBaseTemp, 0)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "niwalog-test", cfg.Network.UserAgent)
	assert.Equal(t, "p-1", cfg.Soil.PlanterID)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, "[logging]\nlog_level = \"warn\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
	assert.Equal(t, "2s", cfg.Soil.Debounce)
}

func TestLoad_SyntaxError(t *testing.T) {
	_, err := Load(writeTestConfig(t, "[google\nclient_id = 1"))
	require.ErrorContains(t, err, "parsing config file")
}

func TestLoad_ValidationError(t *testing.T) {
	_, err := Load(writeTestConfig(t, "[logging]\nlog_level = \"loud\"\n"))
	require.ErrorContains(t, err, "config validation failed")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)

	path := writeTestConfig(t, `
[google]
client_id = "file-client"
spreadsheet_id = "file-sheet"
folder_id = "file-folder"
`)

	env := EnvOverrides{ConfigPath: path, SpreadsheetID: "env-sheet", FolderID: "env-folder"}
	flagSheet := "flag-sheet"
	level := "debug"

	r, err := Resolve(env, CLIOverrides{SpreadsheetID: &flagSheet, LogLevel: &level})
	require.NoError(t, err)

	assert.Equal(t, path, r.Path)
	assert.Equal(t, "file-client", r.Google.ClientID)
	assert.Equal(t, "env-folder", r.Google.FolderID)
	assert.Equal(t, "flag-sheet", r.Google.SpreadsheetID)
	assert.Equal(t, "debug", r.Logging.LogLevel)
	assert.NotEmpty(t, r.DataDir)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	clearEnv(t)

	envPath := writeTestConfig(t, "[network]\ntimeout = \"10s\"\n")
	cliPath := writeTestConfig(t, "[network]\ntimeout = \"20s\"\n")

	r, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, "20s", r.Network.Timeout)
}

func TestResolve_NoFileUsesDefaultsAndEnv(t *testing.T) {
	clearEnv(t)

	r, err := Resolve(
		EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml"), ClientID: "env-client"},
		CLIOverrides{},
	)
	require.NoError(t, err)
	assert.Equal(t, "env-client", r.Google.ClientID)
	assert.Equal(t, "info", r.Logging.LogLevel)
}

func TestResolve_InvalidOverride(t *testing.T) {
	clearEnv(t)

	bad := "has space"

	_, err := Resolve(
		EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "none.toml")},
		CLIOverrides{SpreadsheetID: &bad},
	)
	require.ErrorContains(t, err, "spreadsheet_id")
}

func TestLoad_ZeroGDDBaseTempKept(t *testing.T) {
	cfg, err := Load(writeTestConfig(t, "[analytics]\ngdd_base_temp = 0.0\n"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, cfg.Analytics.GDDBaseTemp, 0)
}
