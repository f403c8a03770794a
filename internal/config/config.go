// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for niwalog. Values resolve through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

import (
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Google    GoogleConfig    `toml:"google"`
	Location  LocationConfig  `toml:"location"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Logging   LoggingConfig   `toml:"logging"`
	Network   NetworkConfig   `toml:"network"`
	Soil      SoilConfig      `toml:"soil"`
}

// GoogleConfig holds the OAuth client and the diary's spreadsheet and Drive
// folder. Client credentials usually come from the environment or .env.
type GoogleConfig struct {
	ClientID      string `toml:"client_id"`
	ClientSecret  string `toml:"client_secret"`
	SpreadsheetID string `toml:"spreadsheet_id"`
	FolderID      string `toml:"folder_id"`
}

// LocationConfig is the garden's position, used for weather. A location
// saved in the diary settings sheet takes over when this is unset.
type LocationConfig struct {
	Latitude  *float64 `toml:"latitude"`
	Longitude *float64 `toml:"longitude"`
	Timezone  string   `toml:"timezone"`
}

// Set reports whether both coordinates are configured.
func (l LocationConfig) Set() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// TimeLocation loads the configured time zone, or time.Local when unset.
// Validate has already rejected unknown zone names.
func (l LocationConfig) TimeLocation() *time.Location {
	if l.Timezone == "" {
		return time.Local
	}

	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.Local
	}

	return loc
}

// AnalyticsConfig tunes derived views.
type AnalyticsConfig struct {
	GDDBaseTemp float64 `toml:"gdd_base_temp"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior for Google and Open-Meteo.
type NetworkConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// TimeoutDuration parses Timeout. Validate has already rejected bad values.
func (n NetworkConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return 0
	}

	return d
}

// SoilConfig configures the sensor CSV watcher.
type SoilConfig struct {
	WatchDir  string `toml:"watch_dir"`
	PlanterID string `toml:"planter_id"`
	Debounce  string `toml:"debounce"`
}

// DebounceDuration parses Debounce. Validate has already rejected bad values.
func (s SoilConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil {
		return 0
	}

	return d
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath    string  // --config flag (empty = use default)
	SpreadsheetID *string // --spreadsheet flag
	LogLevel      *string // --verbose / --quiet
}

// Resolved is a fully layered and validated configuration.
type Resolved struct {
	Config

	// Path is the config file the values were read from. The file may not
	// exist when everything comes from defaults and the environment.
	Path string

	// DataDir holds the credential file and the soil import ledger.
	DataDir string
}
