package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/diary"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

func newPlanterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "planter",
		Aliases: []string{"planters"},
		Short:   "Manage planters (beds, pots and the crops in them)",
	}

	cmd.AddCommand(
		newPlanterListCmd(),
		newPlanterShowCmd(),
		newPlanterAddCmd(),
		newPlanterStatusCmd("archive", sheets.StatusArchived, "Archive a planter when its crop is finished"),
		newPlanterStatusCmd("restore", sheets.StatusActive, "Make an archived planter active again"),
		newPlanterDeleteCmd(),
	)

	return cmd
}

func newPlanterListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List planters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			status, _ := cmd.Flags().GetString("status")

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			planters, err := s.Diary.ListPlanters(cmd.Context(), sheets.PlanterStatus(status))
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, planters)
			}

			rows := make([][]string, 0, len(planters))
			for _, p := range planters {
				rows = append(rows, []string{p.ID, p.Name, p.CropName, p.Location, p.StartDate, string(p.Status)})
			}

			printTable(cc.Out, []string{"ID", "NAME", "CROP", "LOCATION", "STARTED", "STATUS"}, rows)

			return nil
		},
	}

	cmd.Flags().String("status", "", "only planters with this status (active, archived)")

	return cmd
}

func newPlanterShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <planter-id>",
		Short: "Show one planter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			p, err := s.Diary.GetPlanter(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printPlanter(cc, p)
		},
	}
}

func printPlanter(cc *CLIContext, p sheets.Planter) error {
	if cc.Flags.JSON {
		return printJSON(cc.Out, p)
	}

	fields := [][2]string{
		{"ID", p.ID},
		{"Name", p.Name},
		{"Crop", p.CropName},
		{"Variety", p.CropVariety},
		{"Location", p.Location},
		{"Started", p.StartDate},
		{"Ended", p.EndDate},
		{"Status", string(p.Status)},
		{"Photo folder", p.ImageFolderID},
		{"Memo", p.Memo},
	}

	for _, f := range fields {
		if f[1] != "" {
			fmt.Fprintf(cc.Out, "%-13s %s\n", f[0]+":", f[1])
		}
	}

	return nil
}

func newPlanterAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a planter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			f := cmd.Flags()

			var in diary.PlanterInput
			in.Name, _ = f.GetString("name")
			in.CropName, _ = f.GetString("crop")
			in.CropVariety, _ = f.GetString("variety")
			in.Location, _ = f.GetString("location")
			in.StartDate, _ = f.GetString("start")
			in.Memo, _ = f.GetString("memo")

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			p, err := s.Diary.AddPlanter(cmd.Context(), in)
			if err != nil {
				return err
			}

			cc.Statusf("Added planter %s\n", p.ID)

			return printPlanter(cc, p)
		},
	}

	f := cmd.Flags()
	f.String("crop", "", "crop grown (required)")
	f.String("name", "", "planter name (defaults to the crop)")
	f.String("variety", "", "crop variety")
	f.String("location", "", "where the planter is")
	f.String("start", "", "start date YYYY-MM-DD (defaults to today)")
	f.String("memo", "", "free-form note")
	_ = cmd.MarkFlagRequired("crop")

	return cmd
}

func newPlanterStatusCmd(use string, status sheets.PlanterStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <planter-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			p, err := s.Diary.SetPlanterStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}

			cc.Statusf("Planter %s is now %s\n", p.ID, p.Status)

			return nil
		},
	}
}

func newPlanterDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <planter-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a planter row (its logs and photos stay)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.DeletePlanter(cmd.Context(), args[0]); err != nil {
				return err
			}

			cc.Statusf("Deleted planter %s\n", args[0])

			return nil
		},
	}
}
