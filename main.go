package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/diary"
	"github.com/tonimelisma/niwalog/internal/google"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err with a hint on how to recover when one exists.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return "You are not signed in. Run 'niwalog login'."
	case errors.Is(err, auth.ErrSessionExpired):
		return "Your session has expired. Run 'niwalog login' to sign in again."
	case errors.Is(err, google.ErrMissingClientID):
		return "Set NIWALOG_CLIENT_ID and NIWALOG_CLIENT_SECRET (or [google] in the config file)."
	case errors.Is(err, diary.ErrNoSpreadsheet):
		return "Run 'niwalog init <spreadsheet-id>' to set up the diary, or pass --spreadsheet."
	case errors.Is(err, diary.ErrNoLocation):
		return "Run 'niwalog settings location <lat> <lon>' or set [location] in the config file."
	default:
		return ""
	}
}
