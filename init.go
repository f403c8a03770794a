package main

import (
	"fmt"
	"log/slog"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/config"
	"github.com/tonimelisma/niwalog/internal/sheets"
	"github.com/tonimelisma/niwalog/internal/tokenfile"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [spreadsheet-id]",
		Short: "Prepare the diary spreadsheet and Drive folder",
		Long: heredoc.Doc(`
			Prepare a Google spreadsheet as the diary: create any missing sheets
			and header rows, create the niwalog photo folder in Drive and record
			both IDs in the config file. Running it again is safe.

			Pass the spreadsheet ID (the long part of its URL) the first time.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if len(args) == 1 {
		cc.Cfg.Google.SpreadsheetID = args[0]

		if err := config.Validate(&cc.Cfg.Config); err != nil {
			return err
		}
	}

	s, err := openSession(cc)
	if err != nil {
		return err
	}

	res, err := s.Diary.InitSpreadsheet(ctx)
	if err != nil {
		return err
	}

	folderID, err := s.Diary.EnsureAppFolder(ctx)
	if err != nil {
		return err
	}

	if err := s.Diary.PutSetting(ctx, sheets.SettingSpreadsheetID, cc.Cfg.Google.SpreadsheetID); err != nil {
		return err
	}

	if meta, err := tokenfile.ReadMeta(cc.Cfg.TokenPath()); err == nil && meta[tokenfile.MetaSubject] != "" {
		if err := s.Diary.PutSetting(ctx, sheets.SettingOwnerEmail, meta[tokenfile.MetaSubject]); err != nil {
			return err
		}
	}

	for key, value := range map[string]string{
		"spreadsheet_id": cc.Cfg.Google.SpreadsheetID,
		"folder_id":      folderID,
	} {
		if err := config.SetKey(cc.Cfg.Path, "google", key, value); err != nil {
			return fmt.Errorf("saving %s to config: %w", key, err)
		}
	}

	cc.Logger.Debug("diary initialized", slog.String("folder_id", folderID))

	if cc.Flags.JSON {
		return printJSON(cc.Out, map[string]any{
			"spreadsheet_id": cc.Cfg.Google.SpreadsheetID,
			"folder_id":      folderID,
			"created_sheets": res.CreatedSheets,
			"wrote_headers":  res.WroteHeaders,
		})
	}

	for _, name := range res.CreatedSheets {
		fmt.Fprintf(cc.Out, "Created sheet %s\n", name)
	}

	for _, name := range res.WroteHeaders {
		fmt.Fprintf(cc.Out, "Wrote header row of %s\n", name)
	}

	fmt.Fprintf(cc.Out, "Diary ready: spreadsheet %s, photo folder %s\n", cc.Cfg.Google.SpreadsheetID, folderID)

	return nil
}
