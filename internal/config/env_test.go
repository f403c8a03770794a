package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvOverrides_AllSet(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config.toml")
	t.Setenv(EnvClientID, "client-1")
	t.Setenv(EnvClientSecret, "s3cret")
	t.Setenv(EnvSpreadsheetID, "sheet-1")
	t.Setenv(EnvFolderID, "folder-1")

	assert.Equal(t, EnvOverrides{
		ConfigPath:    "/custom/config.toml",
		ClientID:      "client-1",
		ClientSecret:  "s3cret",
		SpreadsheetID: "sheet-1",
		FolderID:      "folder-1",
	}, ReadEnvOverrides())
}

func TestReadEnvOverrides_NoneSet(t *testing.T) {
	for _, k := range []string{EnvConfig, EnvClientID, EnvClientSecret, EnvSpreadsheetID, EnvFolderID} {
		t.Setenv(k, "")
	}

	assert.Equal(t, EnvOverrides{}, ReadEnvOverrides())
}

func TestEnvOverrides_ApplyKeepsUnsetFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Google.ClientID = "from-file"
	cfg.Google.FolderID = "folder-file"

	EnvOverrides{ClientID: "from-env"}.apply(cfg)

	assert.Equal(t, "from-env", cfg.Google.ClientID)
	assert.Equal(t, "folder-file", cfg.Google.FolderID)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NIWALOG_CLIENT_ID=dotenv-id\nNIWALOG_FOLDER_ID=dotenv-folder\n"), 0o600))

	t.Setenv(EnvClientID, "real-env")
	t.Setenv(EnvFolderID, "")
	require.NoError(t, os.Unsetenv(EnvFolderID))

	require.NoError(t, LoadDotEnv(path))

	assert.Equal(t, "real-env", os.Getenv(EnvClientID), "real environment wins over .env")
	assert.Equal(t, "dotenv-folder", os.Getenv(EnvFolderID))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NIWALOG_CLIENT_ID='unterminated\n"), 0o600))

	require.ErrorContains(t, LoadDotEnv(path), ".env")
}
