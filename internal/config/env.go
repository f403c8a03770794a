package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names for overrides.
const (
	EnvConfig        = "NIWALOG_CONFIG"
	EnvClientID      = "NIWALOG_CLIENT_ID"
	EnvClientSecret  = "NIWALOG_CLIENT_SECRET"
	EnvSpreadsheetID = "NIWALOG_SPREADSHEET_ID"
	EnvFolderID      = "NIWALOG_FOLDER_ID"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath    string // NIWALOG_CONFIG: override config file path
	ClientID      string // NIWALOG_CLIENT_ID
	ClientSecret  string // NIWALOG_CLIENT_SECRET
	SpreadsheetID string // NIWALOG_SPREADSHEET_ID
	FolderID      string // NIWALOG_FOLDER_ID
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify a Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:    os.Getenv(EnvConfig),
		ClientID:      os.Getenv(EnvClientID),
		ClientSecret:  os.Getenv(EnvClientSecret),
		SpreadsheetID: os.Getenv(EnvSpreadsheetID),
		FolderID:      os.Getenv(EnvFolderID),
	}
}

// LoadDotEnv loads variables from the .env file at path into the process
// environment. Variables already set are never overridden, and a missing
// file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("config: loading %s: %w", path, err)
}

func (e EnvOverrides) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&cfg.Google.ClientID, e.ClientID)
	set(&cfg.Google.ClientSecret, e.ClientSecret)
	set(&cfg.Google.SpreadsheetID, e.SpreadsheetID)
	set(&cfg.Google.FolderID, e.FolderID)
}
