package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/niwalog/internal/config"
)

// isolateEnv points every config and data lookup at temp dirs and clears
// the NIWALOG_* overrides.
func isolateEnv(t *testing.T) string {
	t.Helper()

	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))

	for _, k := range []string{
		config.EnvConfig, config.EnvClientID, config.EnvClientSecret,
		config.EnvSpreadsheetID, config.EnvFolderID,
	} {
		t.Setenv(k, "")
	}

	return tmp
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// --- logger ---

func TestBuildLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		hidden  slog.Level
	}{
		{"", slog.LevelInfo, slog.LevelDebug},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			logger := buildLogger(&bytes.Buffer{}, tt.level, "text")

			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.hidden))
		})
	}
}

func TestBuildLogger_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		buildLogger(&buf, "info", "json").Info("hello")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "hello", rec["msg"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		buildLogger(&buf, "info", "text").Info("hello")

		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("auto_not_terminal", func(t *testing.T) {
		var buf bytes.Buffer
		buildLogger(&buf, "info", "auto").Info("hello")

		assert.True(t, json.Valid(buf.Bytes()), "a buffer is not a terminal, so auto picks JSON")
	})
}

func TestFlagLogLevel(t *testing.T) {
	assert.Equal(t, "debug", flagLogLevel(CLIFlags{Verbose: true}))
	assert.Equal(t, "error", flagLogLevel(CLIFlags{Quiet: true}))
	assert.Empty(t, flagLogLevel(CLIFlags{}))
}

// --- command tree ---

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{
		"login", "logout", "whoami", "init", "planter", "log", "photo",
		"weather", "soil", "analytics", "share", "settings", "config",
	} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	pf := newRootCmd().PersistentFlags()

	for _, name := range []string{"config", "spreadsheet", "json", "verbose", "quiet"} {
		assert.NotNil(t, pf.Lookup(name), "missing flag --%s", name)
	}
}

func TestNewRootCmd_VerboseQuietExclusive(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--verbose", "--quiet", "log", "types")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestLogTypes_SkipsConfig(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[nope]\n")

	out, err := execute(t, "--config", path, "--json", "log", "types")
	require.NoError(t, err)

	var types []string
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	assert.Contains(t, types, "harvest")
	assert.Contains(t, types, "pest_control")
}

// --- config loading through the root command ---

func TestConfigShow_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.EnvClientSecret, "shh")
	t.Setenv(config.EnvClientID, "client")

	path := writeConfig(t, `
[google]
spreadsheet_id = "from-file"

[location]
timezone = "Asia/Tokyo"
`)

	out, err := execute(t, "--config", path, "--spreadsheet", "from-flag", "config", "show")
	require.NoError(t, err)

	assert.Contains(t, out, `spreadsheet_id = "from-flag"`)
	assert.Contains(t, out, `timezone  = "Asia/Tokyo"`)
	assert.Contains(t, out, `client_secret  = "(set)"`)
	assert.NotContains(t, out, "shh")
}

func TestConfigShow_JSON(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[soil]\nplanter_id = \"p-1\"\n")

	out, err := execute(t, "--config", path, "--json", "config", "show")
	require.NoError(t, err)

	var got config.Resolved
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "p-1", got.Soil.PlanterID)
	assert.Equal(t, path, got.Path)
}

func TestBrokenConfig_FailsBeforeCommand(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[location]\ntimezon = \"UTC\"\n")

	_, err := execute(t, "--config", path, "settings", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), `did you mean "timezone"?`)
}

func TestConfigSet_RepairsInvalidValue(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[location]\ntimezone = \"Mars/Olympus\"\n")

	_, err := execute(t, "--config", path, "config", "show")
	require.Error(t, err)

	_, err = execute(t, "--config", path, "config", "set", "location.timezone", "Europe/Helsinki")
	require.NoError(t, err)

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `timezone  = "Europe/Helsinki"`)
}

func TestConfigSet_ReportsUnloadableResult(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := execute(t, "--config", path, "config", "set", "soil.debounce", "1h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not load")
}

func TestConfigPath_FollowsEnv(t *testing.T) {
	tmp := isolateEnv(t)
	envPath := filepath.Join(tmp, "env.toml")
	t.Setenv(config.EnvConfig, envPath)

	assert.Equal(t, envPath, configPath(CLIFlags{}))
	assert.Equal(t, "/flag.toml", configPath(CLIFlags{ConfigPath: "/flag.toml"}))

	t.Setenv(config.EnvConfig, "")
	assert.Equal(t, config.DefaultConfigPath(), configPath(CLIFlags{}))
}

func TestSplitKey(t *testing.T) {
	section, key, err := splitKey("location.timezone")
	require.NoError(t, err)
	assert.Equal(t, "location", section)
	assert.Equal(t, "timezone", key)

	for _, bad := range []string{"timezone", ".timezone", "location.", "a.b.c"} {
		_, _, err := splitKey(bad)
		assert.Error(t, err, bad)
	}
}
