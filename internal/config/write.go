package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// configFilePermissions is owner read/write only: the file may carry the
// OAuth client secret.
const configFilePermissions = 0o600

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the config file content written on first use. Every
// setting is present as a commented-out default so users can discover
// options without reading docs. Later edits are line-level, so user
// changes survive.
const configTemplate = `# niwalog configuration

[google]
# OAuth client. Usually set via NIWALOG_CLIENT_ID / NIWALOG_CLIENT_SECRET or .env.
# client_id = ""
# client_secret = ""
# Written by 'niwalog init'.
# spreadsheet_id = ""
# folder_id = ""

[location]
# Garden position for weather. Falls back to the location saved in the diary.
# latitude = 35.68
# longitude = 139.69
# timezone = "Asia/Tokyo"

[analytics]
# Base temperature for growing degree days, in degrees Celsius.
# gdd_base_temp = 10.0

[logging]
# debug, info, warn, error
# log_level = "info"
# auto, text, json
# log_format = "auto"

[network]
# timeout = "60s"
# user_agent = ""

[soil]
# Directory watched by 'niwalog soil watch'.
# watch_dir = ""
# planter_id = ""
# debounce = "2s"
`

// SetKey sets key = value in [section] of the config file at path. An
// existing line for the key (commented-out defaults included) is replaced;
// otherwise the key goes right after the section header. A missing file is
// created from the default template, and a missing section is appended.
func SetKey(path, section, key, value string) error {
	if _, ok := knownKeys[section]; !ok {
		return fmt.Errorf("unknown config section %q", section)
	}

	slog.Info("setting config key",
		slog.String("path", path),
		slog.String("section", section),
		slog.String("key", key),
	)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	newLine := fmt.Sprintf("%s = %s", key, formatTOMLValue(value))

	header := findSectionHeader(lines, section)
	if header < 0 {
		content := strings.TrimRight(string(data), "\n")
		content += fmt.Sprintf("\n\n[%s]\n%s\n", section, newLine)

		return atomicWriteFile(path, []byte(content))
	}

	lines = setKeyInSection(lines, header, key, newLine)

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")))
}

// findSectionHeader returns the line index of [section], or -1.
func findSectionHeader(lines []string, section string) int {
	header := "[" + section + "]"

	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			return i
		}
	}

	return -1
}

// findSectionEnd returns the index of the next section header after
// headerLine, or len(lines).
func findSectionEnd(lines []string, headerLine int) int {
	for i := headerLine + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "[") {
			return i
		}
	}

	return len(lines)
}

// setKeyInSection replaces the key's line (set or commented out) within
// the section, or inserts newLine after the header.
func setKeyInSection(lines []string, headerLine int, key, newLine string) []string {
	end := findSectionEnd(lines, headerLine)

	for i := headerLine + 1; i < end; i++ {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "#"))
		if strings.HasPrefix(trimmed, key+" ") || strings.HasPrefix(trimmed, key+"=") {
			lines[i] = newLine

			return lines
		}
	}

	inserted := make([]string, 0, len(lines)+1)
	inserted = append(inserted, lines[:headerLine+1]...)
	inserted = append(inserted, newLine)
	inserted = append(inserted, lines[headerLine+1:]...)

	return inserted
}

// formatTOMLValue formats a value for TOML output. Booleans and numbers
// are written bare; everything else is a quoted string.
func formatTOMLValue(value string) string {
	if value == "true" || value == "false" {
		return value
	}

	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}

	return strconv.Quote(value)
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it over path so a crash never leaves a partial config.
// Parent directories are created as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
