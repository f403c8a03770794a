package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run without a loadable
// config (config set can repair a broken file).
const skipConfigAnnotation = "niwalog/skip-config"

// dotEnvFile is loaded from the working directory before config resolves.
const dotEnvFile = ".env"

// CLIFlags are the global persistent flags.
type CLIFlags struct {
	ConfigPath    string
	SpreadsheetID string
	JSON          bool
	Verbose       bool
	Quiet         bool
}

// CLIContext is what every command runs with: parsed flags, the resolved
// configuration and a logger built from both.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Out    io.Writer
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run hook.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("niwalog: command context has no CLIContext")
	}

	return cc
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// newRootCmd builds the fully assembled root command.
func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:   "niwalog",
		Short: "Home gardening diary backed by Google Sheets and Drive",
		Long: heredoc.Doc(`
			niwalog keeps a gardening diary in a Google spreadsheet you own:
			planters, activity logs with photos, weather history, soil sensor
			readings and the analytics derived from them.

			Get started:
			  niwalog login
			  niwalog init
			  niwalog planter add --crop tomato --name "Balcony tomato"
		`),
		Version: version,
		// Errors are printed by main with sign-in hints.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd, *flags)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.SpreadsheetID, "spreadsheet", "", "spreadsheet ID (overrides config)")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newInitCmd(),
		newPlanterCmd(),
		newLogCmd(),
		newPhotoCmd(),
		newWeatherCmd(),
		newSoilCmd(),
		newAnalyticsCmd(),
		newShareCmd(),
		newSettingsCmd(),
		newConfigCmd(),
	)

	return cmd
}

// newCLIContext resolves configuration through every override layer and
// builds the logger.
func newCLIContext(cmd *cobra.Command, flags CLIFlags) (*CLIContext, error) {
	cc := &CLIContext{Flags: flags, Out: cmd.OutOrStdout()}

	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	if cmd.Flags().Changed("spreadsheet") {
		cli.SpreadsheetID = &flags.SpreadsheetID
	}

	if level := flagLogLevel(flags); level != "" {
		cli.LogLevel = &level
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		cc.Logger = buildLogger(cmd.ErrOrStderr(), flagLogLevel(flags), "auto")
		return cc, nil
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = resolved
	cc.Logger = buildLogger(cmd.ErrOrStderr(), resolved.Logging.LogLevel, resolved.Logging.LogFormat)
	config.WarnUnusable(&resolved.Config, cc.Logger)

	cc.Logger.Debug("config resolved",
		slog.String("path", resolved.Path),
		slog.String("data_dir", resolved.DataDir),
	)

	return cc, nil
}

// flagLogLevel maps --verbose / --quiet to a level name; empty means the
// config decides.
func flagLogLevel(flags CLIFlags) string {
	switch {
	case flags.Verbose:
		return "debug"
	case flags.Quiet:
		return "error"
	default:
		return ""
	}
}

// buildLogger creates the process logger. Level names are validated by
// config; an empty level means info. Format "auto" picks text for a
// terminal and JSON otherwise.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
