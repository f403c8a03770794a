//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tonimelisma/niwalog/testutil"
)

// Environment variables that would point the binary at a real setup.
var productionEnv = []string{
	"NIWALOG_CONFIG",
	"NIWALOG_SPREADSHEET_ID",
	"NIWALOG_FOLDER_ID",
}

// dataDir is the isolated niwalog data directory. Live tests find the
// copied credential here.
var dataDir string

// configPath is the isolated config file.
var configPath string

// validateToken checks that a credential file has the shape niwalog saves.
// E2E tests cannot import internal packages, so this decodes JSON directly.
func validateToken(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read token file %s: %v\n", path, err)
		os.Exit(1)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: token file %s is not valid JSON: %v\n", path, err)
		os.Exit(1)
	}

	if _, ok := parsed["token"]; !ok {
		fmt.Fprintf(os.Stderr, "FATAL: token file %s missing \"token\" key\n", path)
		os.Exit(1)
	}
}

// setupIsolation points HOME and the XDG directories at a temp root so the
// binary never sees the user's own config or credential. With a live account
// the test credential is copied in. The returned func copies a rotated token
// back to .testdata/ and removes the temp root.
func setupIsolation(account string) func() {
	for _, v := range productionEnv {
		os.Unsetenv(v)
	}

	tempRoot, err := os.MkdirTemp("", "niwalog-e2e-isolation-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating isolation temp dir: %v\n", err)
		os.Exit(1)
	}

	dirs := map[string]string{
		"HOME":            filepath.Join(tempRoot, "home"),
		"XDG_CONFIG_HOME": filepath.Join(tempRoot, "config"),
		"XDG_DATA_HOME":   filepath.Join(tempRoot, "data"),
	}

	for env, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: creating dir %s: %v\n", d, err)
			os.Exit(1)
		}

		os.Setenv(env, d)
	}

	dataDir = filepath.Join(dirs["XDG_DATA_HOME"], "niwalog")
	configPath = filepath.Join(dirs["XDG_CONFIG_HOME"], "niwalog", "config.toml")

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: creating data dir: %v\n", err)
		os.Exit(1)
	}

	var credDir string

	if account != "" {
		credDir = testutil.FindTestCredentialDir(testutil.FindModuleRoot(".."))
		src := filepath.Join(credDir, testutil.TokenFileName)
		validateToken(src)
		testutil.CopyFile(src, filepath.Join(dataDir, testutil.TokenFileName), 0o600)
	}

	verifyIsolation(tempRoot)

	return func() {
		if credDir != "" {
			rotated := filepath.Join(dataDir, testutil.TokenFileName)
			if _, err := os.Stat(rotated); err == nil {
				testutil.CopyFile(rotated, filepath.Join(credDir, testutil.TokenFileName), 0o600)
			}
		}

		os.RemoveAll(tempRoot)
	}
}

// verifyIsolation crashes the process before any test runs if a production
// path could leak in.
func verifyIsolation(tempRoot string) {
	crash := func(msg string) {
		fmt.Fprintf(os.Stderr, "FATAL: isolation check failed: %s\n", msg)
		os.Exit(1)
	}

	for _, v := range productionEnv {
		if os.Getenv(v) != "" {
			crash(v + " is set")
		}
	}

	for _, v := range []string{"HOME", "XDG_DATA_HOME", "XDG_CONFIG_HOME"} {
		if val := os.Getenv(v); !strings.HasPrefix(val, tempRoot) {
			crash(v + " not overridden to temp dir")
		}
	}

	if home, _ := os.UserHomeDir(); !strings.HasPrefix(home, tempRoot) {
		crash("os.UserHomeDir() is not the temp home")
	}
}
