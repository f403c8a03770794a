package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/soilwatch"
)

func newSoilCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "soil",
		Short: "Import and review soil sensor readings",
		Long: heredoc.Doc(`
			Soil sensors export CSV files with a measured_at column and any of
			vwc, soil_temp, ec_bulk and ec_pore. Each file content is imported
			once: a local ledger in the data directory remembers what was sent.
		`),
	}

	cmd.AddCommand(
		newSoilImportCmd(),
		newSoilScanCmd(),
		newSoilWatchCmd(),
		newSoilListCmd(),
		newSoilImportsCmd(),
	)

	return cmd
}

// openLedger opens the import ledger, creating the data directory first.
func openLedger(cmd *cobra.Command, cc *CLIContext) (*soilwatch.Ledger, error) {
	path := cc.Cfg.LedgerPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return soilwatch.OpenLedger(cmd.Context(), path, cc.Logger)
}

// planterFlag returns --planter, falling back to soil.planter_id.
func planterFlag(cmd *cobra.Command, cc *CLIContext) string {
	if id, _ := cmd.Flags().GetString("planter"); id != "" {
		return id
	}

	return cc.Cfg.Soil.PlanterID
}

// newSoilWatcher wires a watcher over dir with the session's diary as the
// importer. The caller closes the returned ledger.
func newSoilWatcher(cmd *cobra.Command, cc *CLIContext, dir string) (*soilwatch.Watcher, *soilwatch.Ledger, error) {
	s, err := openSession(cc)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := openLedger(cmd, cc)
	if err != nil {
		return nil, nil, err
	}

	w := soilwatch.NewWatcher(soilwatch.Config{
		Dir:       dir,
		PlanterID: planterFlag(cmd, cc),
		Debounce:  cc.Cfg.Soil.DebounceDuration(),
		Location:  cc.Cfg.Location.TimeLocation(),
	}, s.Diary, ledger, cc.Logger)

	return w, ledger, nil
}

func closeLedger(cc *CLIContext, l *soilwatch.Ledger) {
	if err := l.Close(); err != nil {
		cc.Logger.Warn("closing soil ledger", slog.String("error", err.Error()))
	}
}

func printResults(cc *CLIContext, results []soilwatch.Result) error {
	if cc.Flags.JSON {
		return printJSON(cc.Out, results)
	}

	for _, r := range results {
		if r.Skipped {
			cc.Statusf("%s: already imported\n", r.Path)
			continue
		}

		cc.Statusf("%s: %d new reading(s)\n", r.Path, r.Readings)
	}

	return nil
}

func addPlanterFlag(cmd *cobra.Command) {
	cmd.Flags().String("planter", "", "planter the readings belong to (defaults to soil.planter_id)")
}

func newSoilImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import sensor CSV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			w, ledger, err := newSoilWatcher(cmd, cc, "")
			if err != nil {
				return err
			}
			defer closeLedger(cc, ledger)

			var (
				results []soilwatch.Result
				errs    []error
			)

			for _, path := range args {
				res, err := w.ImportFile(cmd.Context(), path)
				if err != nil {
					errs = append(errs, err)
					continue
				}

				results = append(results, res)
			}

			if err := printResults(cc, results); err != nil {
				return err
			}

			return errors.Join(errs...)
		},
	}

	addPlanterFlag(cmd)

	return cmd
}

// watchDir returns the directory argument or soil.watch_dir.
func watchDir(cc *CLIContext, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if dir := cc.Cfg.Soil.WatchPath(); dir != "" {
		return dir, nil
	}

	return "", errors.New("no directory given and soil.watch_dir is not set")
}

func newSoilScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Import every new CSV file in a directory once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			dir, err := watchDir(cc, args)
			if err != nil {
				return err
			}

			w, ledger, err := newSoilWatcher(cmd, cc, dir)
			if err != nil {
				return err
			}
			defer closeLedger(cc, ledger)

			results, scanErr := w.Scan(cmd.Context())

			if err := printResults(cc, results); err != nil {
				return err
			}

			return scanErr
		},
	}

	addPlanterFlag(cmd)

	return cmd
}

func newSoilWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Import sensor CSV files as they appear",
		Long: heredoc.Doc(`
			Import the CSV files already in the directory, then keep importing
			files as the sensor software writes them. Stop with Ctrl-C; a
			second Ctrl-C quits immediately.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			dir, err := watchDir(cc, args)
			if err != nil {
				return err
			}

			w, ledger, err := newSoilWatcher(cmd, cc, dir)
			if err != nil {
				return err
			}
			defer closeLedger(cc, ledger)

			cc.Statusf("Watching %s (Ctrl-C to stop)\n", dir)

			ctx, stop := interruptible(cmd.Context(), cc.Logger, "soil watch")
			defer stop()

			return w.Watch(ctx)
		},
	}

	addPlanterFlag(cmd)

	return cmd
}

func newSoilListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [planter-id]",
		Short: "List stored soil readings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			var planterID string
			if len(args) == 1 {
				planterID = args[0]
			}

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			readings, err := s.Diary.ListSoilReadings(cmd.Context(), planterID)
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, readings)
			}

			rows := make([][]string, 0, len(readings))
			for _, r := range readings {
				rows = append(rows, []string{
					r.MeasuredAt,
					r.PlanterID,
					formatNumber(r.VWC),
					formatNumber(r.SoilTemp),
					formatNumber(r.ECBulk),
					formatNumber(r.ECPore),
				})
			}

			printTable(cc.Out, []string{"MEASURED", "PLANTER", "VWC", "TEMP", "EC BULK", "EC PORE"}, rows)

			return nil
		},
	}
}

func newSoilImportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "imports",
		Short: "Show the files recorded in the import ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			ledger, err := openLedger(cmd, cc)
			if err != nil {
				return err
			}
			defer closeLedger(cc, ledger)

			imports, err := ledger.Imports(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, imports)
			}

			rows := make([][]string, 0, len(imports))
			for _, im := range imports {
				rows = append(rows, []string{
					im.ImportedAt.Local().Format(time.DateTime),
					im.Path,
					im.PlanterID,
					fmt.Sprint(im.Readings),
					im.SHA256[:min(12, len(im.SHA256))],
				})
			}

			printTable(cc.Out, []string{"IMPORTED", "FILE", "PLANTER", "READINGS", "SHA256"}, rows)

			return nil
		},
	}
}
