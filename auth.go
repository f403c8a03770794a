package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/google"
	"github.com/tonimelisma/niwalog/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Long: heredoc.Doc(`
			Sign in with your Google account in the browser. niwalog asks for
			access to spreadsheets, to the Drive files it creates and to your
			name and email.

			The refresh token is saved in the data directory so later commands
			renew access silently.
		`),
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the saved credential",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}

	cmd.Flags().Bool("keep-grant", false, "do not revoke the token at Google")

	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in Google account",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	provider, err := newProvider(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	ctx, stop := interruptible(cmd.Context(), cc.Logger, "login")
	defer stop()

	// The prompt must stay visible even with --quiet.
	fmt.Fprintln(cmd.ErrOrStderr(), "Opening the browser to sign in with Google...")

	cred, err := provider.Login(ctx, openBrowser)
	if err != nil {
		return err
	}

	cc.Statusf("Signed in as %s.\n", cred.Subject)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	path := cc.Cfg.TokenPath()

	tok, _, err := tokenfile.Load(path)
	if err != nil {
		cc.Logger.Warn("credential file unreadable, removing it", slog.String("error", err.Error()))
	}

	keep, _ := cmd.Flags().GetBool("keep-grant")

	if tok != nil && !keep {
		revokeSaved(cmd, cc, tok.RefreshToken, tok.AccessToken)
	}

	store, err := auth.OpenFileStore(path, cc.Logger)
	if err != nil {
		// A corrupt file still has to go.
		if rmErr := tokenfile.Remove(path); rmErr != nil {
			return errors.Join(err, rmErr)
		}
	} else {
		store.Clear()
	}

	cc.Statusf("Signed out.\n")

	return nil
}

// revokeSaved revokes the refresh token (which also ends its access
// tokens) or the access token when no refresh token was saved. Failures
// are logged: signing out locally must still succeed offline.
func revokeSaved(cmd *cobra.Command, cc *CLIContext, refresh, access string) {
	token := refresh
	if token == "" {
		token = access
	}

	if token == "" {
		return
	}

	provider, err := newProvider(cc.Cfg, cc.Logger)
	if err != nil {
		cc.Logger.Warn("cannot revoke token", slog.String("error", err.Error()))
		return
	}

	if err := provider.Revoke(cmd.Context(), token); err != nil {
		cc.Logger.Warn("token revocation failed", slog.String("error", err.Error()))
	}
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	s, err := openSession(cc)
	if err != nil {
		return err
	}

	// Runs through the executor: an expired access token is renewed here.
	info, err := auth.Execute(cmd.Context(), s.Exec, func(ctx context.Context, token string) (*google.UserInfo, error) {
		return s.Provider.UserInfo(ctx, token)
	})
	if err != nil {
		return err
	}

	rememberIdentity(cc.Cfg.TokenPath(), info, cc.Logger)

	out := whoamiOutput{Email: info.Email, Name: info.Name, SpreadsheetID: cc.Cfg.Google.SpreadsheetID}

	if cc.Flags.JSON {
		return printJSON(cc.Out, out)
	}

	fmt.Fprintf(cc.Out, "User:        %s (%s)\n", out.Name, out.Email)

	if out.SpreadsheetID != "" {
		fmt.Fprintf(cc.Out, "Spreadsheet: %s\n", out.SpreadsheetID)
	}

	return nil
}

// rememberIdentity stores the current account name in the credential file,
// where sessions pick it up as the author of new activity logs. A failure
// only costs a stale name, so it is logged.
func rememberIdentity(tokenPath string, info *google.UserInfo, logger *slog.Logger) {
	changed, err := tokenfile.UpdateMeta(tokenPath, map[string]string{
		tokenfile.MetaSubject:     info.Email,
		tokenfile.MetaDisplayName: info.Name,
	})
	if err != nil {
		logger.Warn("could not update saved identity", slog.String("error", err.Error()))
		return
	}

	if changed {
		logger.Debug("saved identity updated", slog.String("subject", info.Email))
	}
}

// openBrowser opens url with the platform's URL handler.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
