package main

import (
	"fmt"
	"strconv"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/analytics"
)

func newAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"stats"},
		Short:   "Harvest totals, growing degree days and soil/weather correlation",
	}

	cmd.AddCommand(
		newHarvestCmd(),
		newGDDCmd(),
		newCorrelateCmd(),
	)

	return cmd
}

func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Rebuild and show the monthly harvest summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			totals, err := s.Diary.RefreshHarvestSummary(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, totals)
			}

			rows := make([][]string, 0, len(totals))
			for _, t := range totals {
				rows = append(rows, []string{
					fmt.Sprintf("%04d-%02d", t.Year, t.Month),
					t.PlanterID,
					t.CropName,
					strconv.FormatFloat(t.TotalQuantity, 'f', -1, 64) + " " + t.Unit,
					strconv.Itoa(t.Count),
				})
			}

			printTable(cc.Out, []string{"MONTH", "PLANTER", "CROP", "TOTAL", "HARVESTS"}, rows)

			return nil
		},
	}
}

func newGDDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gdd <planter-id>",
		Short: "Growing degree days since a planter started",
		Long: heredoc.Doc(`
			Sum max(mean temperature - base, 0) over the stored weather history
			from the planter's start date. Run 'niwalog weather sync' first to
			fill in the history.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			base := cc.Cfg.Analytics.GDDBaseTemp
			if cmd.Flags().Changed("base") {
				base, _ = cmd.Flags().GetFloat64("base")
			}

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			points, err := s.Diary.GDDForPlanter(cmd.Context(), args[0], base)
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, points)
			}

			rows := make([][]string, 0, len(points))
			for _, p := range points {
				rows = append(rows, []string{
					p.Date,
					strconv.FormatFloat(p.Daily, 'f', 1, 64),
					strconv.FormatFloat(p.Cumulative, 'f', 1, 64),
				})
			}

			printTable(cc.Out, []string{"DATE", "GDD", "CUMULATIVE"}, rows)

			return nil
		},
	}

	cmd.Flags().Float64("base", 0, "base temperature in °C (defaults to analytics.gdd_base_temp)")

	return cmd
}

func newCorrelateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlate [planter-id]",
		Short: "Correlate a daily soil metric with a weather metric",
		Long: heredoc.Docf(`
			Average the soil metric per day, pair it with the same day's
			weather and report the Pearson correlation.

			Soil metrics: %s, %s, %s, %s
			Weather metrics: %s, %s, %s, %s, %s, %s, %s
		`,
			analytics.SoilVWC, analytics.SoilTemp, analytics.SoilECBulk, analytics.SoilECPore,
			analytics.WeatherTempMax, analytics.WeatherTempMin, analytics.WeatherTempAvg,
			analytics.WeatherPrecipitation, analytics.WeatherSolarRadiation,
			analytics.WeatherHumidityAvg, analytics.WeatherWindSpeedMax,
		),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			var planterID string
			if len(args) == 1 {
				planterID = args[0]
			}

			sm, _ := cmd.Flags().GetString("soil")
			wm, _ := cmd.Flags().GetString("weather")

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			c, err := s.Diary.SoilWeatherCorrelation(cmd.Context(), planterID,
				analytics.SoilMetric(sm), analytics.WeatherMetric(wm))
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, c)
			}

			fmt.Fprintf(cc.Out, "%s vs %s over %d day(s)\n", c.Soil, c.Weather, len(c.Pairs))

			if !c.OK {
				fmt.Fprintf(cc.Out, "No correlation: %s (needs 3 paired days that vary)\n", c.Label)
				return nil
			}

			fmt.Fprintf(cc.Out, "r = %.3f (%s)\n", c.R, c.Label)

			return nil
		},
	}

	cmd.Flags().String("soil", string(analytics.SoilVWC), "soil metric")
	cmd.Flags().String("weather", string(analytics.WeatherPrecipitation), "weather metric")

	return cmd
}
