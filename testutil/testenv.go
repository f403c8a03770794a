// Package testutil provides in-process fakes of the Google Sheets and Drive
// APIs and the environment helpers shared by the end-to-end tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the live test suites.
const (
	EnvTestAccount     = "NIWALOG_TEST_ACCOUNT"
	EnvAllowedAccounts = "NIWALOG_ALLOWED_TEST_ACCOUNTS"
	EnvTestSpreadsheet = "NIWALOG_TEST_SPREADSHEET_ID"
)

// TokenFileName is the credential file copied from .testdata/.
const TokenFileName = "token.json"

// LoadDotEnv loads KEY=VALUE pairs from a .env file. A missing file is not
// an error (CI sets env vars directly); variables already set win.
func LoadDotEnv(envPath string) {
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "WARNING: reading %s: %v\n", envPath, err)
	}
}

// LiveAccount returns the Google account live tests run against, or "" when
// none is configured. It crashes the process when the account is set but
// not in NIWALOG_ALLOWED_TEST_ACCOUNTS, so a personal diary is never
// written by accident.
func LiveAccount() string {
	account := os.Getenv(EnvTestAccount)
	if account == "" {
		return ""
	}

	allowlist := os.Getenv(EnvAllowedAccounts)
	if allowlist == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s is set but %s is not\n", EnvTestAccount, EnvAllowedAccounts)
		fmt.Fprintf(os.Stderr, "Example: %s=garden-test@example.com\n", EnvAllowedAccounts)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.EqualFold(strings.TrimSpace(a), account) {
			return account
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s=%q\n", EnvTestAccount, account, EnvAllowedAccounts, allowlist)
	os.Exit(1)

	return ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// FindTestCredentialDir locates .testdata/ relative to the module root.
// Crashes if the directory does not exist.
func FindTestCredentialDir(moduleRoot string) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: .testdata/ directory not found at "+dir)
		fmt.Fprintln(os.Stderr, "Sign in once with XDG_DATA_HOME pointing at a scratch dir and copy niwalog/token.json there.")
		os.Exit(1)
	}

	return dir
}

// CopyFile copies a file from src to dst with the given permissions.
// Crashes on failure because tests cannot proceed without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if writeErr := os.WriteFile(dst, data, perm); writeErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, writeErr)
		os.Exit(1)
	}
}
