package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/diary"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record and review garden work",
	}

	cmd.AddCommand(
		newLogAddCmd(),
		newLogListCmd(),
		newLogDeleteCmd(),
		newLogTypesCmd(),
	)

	return cmd
}

func newLogAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <planter-id>",
		Short: "Record an activity on a planter",
		Long: heredoc.Docf(`
			Record an activity such as watering or harvest. --qty and --unit
			only apply to harvests. Up to %d JPEG photos can be attached with
			repeated --photo flags; they are stored in the planter's Drive folder.

			Run 'niwalog log types' for the activity types.
		`, diary.MaxPhotos),
		Example: heredoc.Doc(`
			niwalog log add p-1a2b --type watering
			niwalog log add p-1a2b --type harvest --qty 350 --unit g --photo tomato.jpg
		`),
		Args: cobra.ExactArgs(1),
		RunE: runLogAdd,
	}

	f := cmd.Flags()
	f.StringP("type", "t", "", "activity type (required)")
	f.String("date", "", "date YYYY-MM-DD (defaults to today)")
	f.StringP("memo", "m", "", "free-form note")
	f.String("qty", "", "harvest quantity")
	f.String("unit", "", "harvest unit (defaults to "+diary.DefaultHarvestUnit+")")
	f.StringArray("photo", nil, "JPEG file to attach (repeatable)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runLogAdd(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	f := cmd.Flags()

	in := diary.ActivityInput{PlanterID: args[0]}

	typ, _ := f.GetString("type")
	in.Type = sheets.ActivityType(typ)
	in.Date, _ = f.GetString("date")
	in.Memo, _ = f.GetString("memo")
	in.Unit, _ = f.GetString("unit")

	qty, _ := f.GetString("qty")

	var err error
	if in.Quantity, err = parseQuantity(qty); err != nil {
		return err
	}

	paths, _ := f.GetStringArray("photo")
	if len(paths) > diary.MaxPhotos {
		return fmt.Errorf("%w: %d given, at most %d", diary.ErrTooManyPhotos, len(paths), diary.MaxPhotos)
	}

	photos, closeAll, err := openPhotos(paths)
	if err != nil {
		return err
	}
	defer closeAll()

	in.Photos = photos

	s, err := openSession(cc)
	if err != nil {
		return err
	}

	entry, err := s.Diary.LogActivity(cmd.Context(), in)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, entry)
	}

	cc.Statusf("%s Logged %s on %s (%s)\n", entry.ActivityType.Emoji(), entry.ActivityType.Label(), entry.ActivityDate, entry.ID)

	if n := len(entry.PhotoFileIDs); n > 0 {
		cc.Statusf("Attached %d photo(s)\n", n)
	}

	return nil
}

// parseQuantity reads the optional --qty value.
func parseQuantity(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q is not a number", diary.ErrInvalidActivity, s)
	}

	if v < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", diary.ErrInvalidActivity)
	}

	return &v, nil
}

// openPhotos opens every path. The returned func closes whatever was opened.
func openPhotos(paths []string) ([]io.Reader, func(), error) {
	files := make([]*os.File, 0, len(paths))

	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	readers := make([]io.Reader, 0, len(paths))

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("opening photo: %w", err)
		}

		files = append(files, f)
		readers = append(readers, f)
	}

	return readers, closeAll, nil
}

func newLogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [planter-id]",
		Short: "List activities, newest first",
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

			logs, err := s.Diary.ListActivities(cmd.Context(), planterID)
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, logs)
			}

			printActivities(cc.Out, logs)

			return nil
		},
	}
}

func printActivities(w io.Writer, logs []sheets.ActivityLog) {
	rows := make([][]string, 0, len(logs))

	for _, l := range logs {
		qty := noValue
		if l.Quantity != nil {
			qty = strings.TrimSpace(formatNumber(l.Quantity) + " " + l.Unit)
		}

		rows = append(rows, []string{
			l.ActivityDate,
			l.ID,
			l.PlanterID,
			l.ActivityType.Emoji() + " " + l.ActivityType.Label(),
			qty,
			strconv.Itoa(len(l.PhotoFileIDs)),
			truncate(l.Memo, maxMemoWidth),
		})
	}

	printTable(w, []string{"DATE", "ID", "PLANTER", "TYPE", "QTY", "PHOTOS", "MEMO"}, rows)
}

func newLogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <activity-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an activity (attached photos stay in Drive)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.DeleteActivity(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, diary.ErrNotFound) {
					return fmt.Errorf("no activity %s: %w", args[0], err)
				}

				return err
			}

			cc.Statusf("Deleted activity %s\n", args[0])

			return nil
		},
	}
}

func newLogTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "types",
		Short:       "List activity types",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if cc.Flags.JSON {
				return printJSON(cc.Out, sheets.ActivityTypes)
			}

			rows := make([][]string, 0, len(sheets.ActivityTypes))
			for _, t := range sheets.ActivityTypes {
				rows = append(rows, []string{string(t), t.Emoji() + " " + t.Label()})
			}

			printTable(cc.Out, []string{"TYPE", "LABEL"}, rows)

			return nil
		},
	}
}
