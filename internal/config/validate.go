package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Validation range constants.
const (
	minLatitude     = -90.0
	maxLatitude     = 90.0
	minLongitude    = -180.0
	maxLongitude    = 180.0
	minGDDBaseTemp  = -10.0
	maxGDDBaseTemp  = 40.0
	minTimeout      = 1 * time.Second
	minDebounce     = 100 * time.Millisecond
	maxDebounce     = 10 * time.Minute
	maxUserAgentLen = 256
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
)

// Validate checks all configuration values and returns all errors found,
// so users see a complete report and can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateGoogle(&cfg.Google)...)
	errs = append(errs, validateLocation(&cfg.Location)...)
	errs = append(errs, validateAnalytics(&cfg.Analytics)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateSoil(&cfg.Soil)...)

	return errors.Join(errs...)
}

func validateGoogle(g *GoogleConfig) []error {
	var errs []error

	ids := []struct{ key, value string }{
		{"client_id", g.ClientID},
		{"spreadsheet_id", g.SpreadsheetID},
		{"folder_id", g.FolderID},
	}

	for _, id := range ids {
		if strings.ContainsAny(id.value, " \t/") {
			errs = append(errs, fmt.Errorf("google.%s: must be a bare ID, got %q", id.key, id.value))
		}
	}

	if g.ClientSecret != "" && g.ClientID == "" {
		errs = append(errs, errors.New("google.client_secret: set without client_id"))
	}

	return errs
}

func validateLocation(l *LocationConfig) []error {
	var errs []error

	if (l.Latitude == nil) != (l.Longitude == nil) {
		errs = append(errs, errors.New("location: latitude and longitude must be set together"))
	}

	if l.Latitude != nil && (*l.Latitude < minLatitude || *l.Latitude > maxLatitude) {
		errs = append(errs, fmt.Errorf("location.latitude: must be between %g and %g, got %g",
			minLatitude, maxLatitude, *l.Latitude))
	}

	if l.Longitude != nil && (*l.Longitude < minLongitude || *l.Longitude > maxLongitude) {
		errs = append(errs, fmt.Errorf("location.longitude: must be between %g and %g, got %g",
			minLongitude, maxLongitude, *l.Longitude))
	}

	if l.Timezone != "" {
		if _, err := time.LoadLocation(l.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("location.timezone: %w", err))
		}
	}

	return errs
}

func validateAnalytics(a *AnalyticsConfig) []error {
	if a.GDDBaseTemp < minGDDBaseTemp || a.GDDBaseTemp > maxGDDBaseTemp {
		return []error{fmt.Errorf("analytics.gdd_base_temp: must be between %g and %g, got %g",
			minGDDBaseTemp, maxGDDBaseTemp, a.GDDBaseTemp)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if err := validateOneOf("logging.log_level", l.LogLevel, validLogLevels); err != nil {
		errs = append(errs, err)
	}

	if err := validateOneOf("logging.log_format", l.LogFormat, validLogFormats); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if err := validateDurationMin("network.timeout", n.Timeout, minTimeout); err != nil {
		errs = append(errs, err)
	}

	if len(n.UserAgent) > maxUserAgentLen {
		errs = append(errs, fmt.Errorf("network.user_agent: must be at most %d characters", maxUserAgentLen))
	}

	return errs
}

func validateSoil(s *SoilConfig) []error {
	var errs []error

	d, err := time.ParseDuration(s.Debounce)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("soil.debounce: invalid duration %q: %w", s.Debounce, err))
	case d < minDebounce || d > maxDebounce:
		errs = append(errs, fmt.Errorf("soil.debounce: must be between %s and %s, got %s",
			minDebounce, maxDebounce, d))
	}

	if s.WatchDir != "" && !filepath.IsAbs(expandTilde(s.WatchDir)) {
		errs = append(errs, fmt.Errorf("soil.watch_dir: must be absolute, got %q", s.WatchDir))
	}

	return errs
}

func validateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return fmt.Errorf("%s: must be one of [%s], got %q", field, strings.Join(allowed, ", "), value)
}

func validateDurationMin(field, value string, minDur time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minDur {
		return fmt.Errorf("%s: must be at least %s, got %s", field, minDur, d)
	}

	return nil
}

// WarnUnusable logs configured values that are valid but cannot take effect,
// so users do not assume they do.
func WarnUnusable(cfg *Config, logger *slog.Logger) {
	if cfg.Soil.PlanterID != "" && cfg.Soil.WatchDir == "" {
		logger.Warn("soil.planter_id is set but soil.watch_dir is not; it only applies to 'soil watch'")
	}

	if cfg.Location.Timezone != "" && !cfg.Location.Set() {
		logger.Warn("location.timezone is set without coordinates; weather uses the saved diary location")
	}
}
