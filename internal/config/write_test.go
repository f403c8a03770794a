package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetKey_CreatesFromTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	require.NoError(t, SetKey(path, "google", "spreadsheet_id", "1AbC"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFilePermissions), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1AbC", cfg.Google.SpreadsheetID)
	assert.Empty(t, cfg.Google.FolderID)
}

func TestSetKey_ReplacesExistingAndKeepsComments(t *testing.T) {
	path := writeTestConfig(t, `# my garden
[google]
# the diary
spreadsheet_id = "old"

[soil]
debounce = "5s"
`)

	require.NoError(t, SetKey(path, "google", "spreadsheet_id", "new"))
	require.NoError(t, SetKey(path, "google", "folder_id", "fold"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# my garden")
	assert.Contains(t, string(data), "# the diary")
	assert.NotContains(t, string(data), `"old"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new", cfg.Google.SpreadsheetID)
	assert.Equal(t, "fold", cfg.Google.FolderID)
	assert.Equal(t, "5s", cfg.Soil.Debounce)
}

func TestSetKey_DoesNotTouchOtherSections(t *testing.T) {
	path := writeTestConfig(t, "[soil]\nplanter_id = \"p\"\n\n[google]\nclient_id = \"c\"\n")

	require.NoError(t, SetKey(path, "google", "planter_id", "x"))

	cfg, err := Load(path)
	require.Error(t, err, "planter_id is not a google key")
	assert.Nil(t, cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[soil]\nplanter_id = \"p\"")
}

func TestSetKey_AppendsMissingSection(t *testing.T) {
	path := writeTestConfig(t, "[google]\nclient_id = \"c\"\n")

	require.NoError(t, SetKey(path, "location", "latitude", "35.5"))

	cfg, err := Load(path)
	require.Error(t, err, "longitude is still missing")
	assert.Nil(t, cfg)

	require.NoError(t, SetKey(path, "location", "longitude", "139.5"))

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 35.5, *cfg.Location.Latitude, 0)
	assert.InDelta(t, 139.5, *cfg.Location.Longitude, 0)
}

func TestSetKey_UnknownSection(t *testing.T) {
	require.ErrorContains(t, SetKey(filepath.Join(t.TempDir(), "c.toml"), "garden", "x", "y"), "unknown config section")
}

func TestFormatTOMLValue(t *testing.T) {
	assert.Equal(t, "true", formatTOMLValue("true"))
	assert.Equal(t, "35.5", formatTOMLValue("35.5"))
	assert.Equal(t, `"2s"`, formatTOMLValue("2s"))
	assert.Equal(t, `"say \"hi\""`, formatTOMLValue(`say "hi"`))
}
