package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work without any config file.
const (
	defaultGDDBaseTemp = 10.0
	defaultLogLevel    = "info"
	defaultLogFormat   = "auto"
	defaultTimeout     = "60s"
	defaultDebounce    = "2s"
)

// DefaultConfig returns a Config populated with all default values.
// It is both the starting point for TOML decoding (so unset fields retain
// defaults) and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Analytics: AnalyticsConfig{GDDBaseTemp: defaultGDDBaseTemp},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{Timeout: defaultTimeout},
		Soil:    SoilConfig{Debounce: defaultDebounce},
	}
}
