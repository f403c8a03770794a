package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/weather"
)

// dateLayout is how every date is written in the diary.
const dateLayout = "2006-01-02"

// defaultSyncDays is the history window when --from is not given.
const defaultSyncDays = 7

func newWeatherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Forecast, advice and weather history for the garden",
		Long: heredoc.Doc(`
			Weather comes from Open-Meteo for the garden location: [location] in
			the config file when set, otherwise the location saved with
			'niwalog settings location'.
		`),
	}

	cmd.AddCommand(
		newWeatherForecastCmd(),
		newWeatherSyncCmd(),
		newWeatherHistoryCmd(),
	)

	return cmd
}

// gardenLocation prefers the config file location over the one saved in
// the spreadsheet settings.
func gardenLocation(ctx context.Context, cc *CLIContext, s *Session) (weather.Location, error) {
	if l := cc.Cfg.Location; l.Set() {
		return weather.Location{Latitude: *l.Latitude, Longitude: *l.Longitude, Timezone: l.Timezone}, nil
	}

	return s.Diary.SavedLocation(ctx)
}

// forecastOutput is the JSON schema for `weather forecast --json`.
type forecastOutput struct {
	Days   []weather.ForecastDay `json:"days"`
	Advice []weather.Advice      `json:"advice"`
}

func newWeatherForecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Show the daily forecast and gardening advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			loc, err := gardenLocation(ctx, cc, s)
			if err != nil {
				return err
			}

			fc, err := s.Diary.Forecast(ctx, loc)
			if err != nil {
				return err
			}

			advice := weather.Advise(fc)

			if cc.Flags.JSON {
				return printJSON(cc.Out, forecastOutput{Days: fc.Days, Advice: advice})
			}

			rows := make([][]string, 0, len(fc.Days))
			for _, d := range fc.Days {
				emoji, label := weather.CodeInfo(d.WeatherCode)
				rows = append(rows, []string{
					d.Date,
					emoji + " " + label,
					fmt.Sprintf("%.1f / %.1f", d.TempMax, d.TempMin),
					fmt.Sprintf("%.1f mm (%.0f%%)", d.Precipitation, d.PrecipitationProbability),
					fmt.Sprintf("%.0f km/h", d.WindSpeedMax),
				})
			}

			printTable(cc.Out, []string{"DATE", "WEATHER", "MAX / MIN °C", "RAIN", "WIND"}, rows)

			if len(advice) > 0 {
				fmt.Fprintln(cc.Out)
			}

			for _, a := range advice {
				fmt.Fprintf(cc.Out, "%s %s [%s]\n   %s\n", a.Emoji, a.Title, a.Priority, a.Description)
			}

			return nil
		},
	}
}

func newWeatherSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Store daily weather history in the diary",
		Long: heredoc.Docf(`
			Fetch daily observations between --from and --to (inclusive) and
			append the days the diary does not hold yet. Without flags the last
			%d days up to yesterday are synced.
		`, defaultSyncDays),
		Args: cobra.NoArgs,
		RunE: runWeatherSync,
	}

	cmd.Flags().String("from", "", "first day YYYY-MM-DD")
	cmd.Flags().String("to", "", "last day YYYY-MM-DD (defaults to yesterday)")

	return cmd
}

// syncRange resolves the --from/--to flags against now.
func syncRange(fromText, toText string, now time.Time) (from, to time.Time, err error) {
	to = now.AddDate(0, 0, -1)

	if toText != "" {
		if to, err = time.Parse(dateLayout, toText); err != nil {
			return from, to, fmt.Errorf("--to: %q is not a YYYY-MM-DD date", toText)
		}
	}

	from = to.AddDate(0, 0, -(defaultSyncDays - 1))

	if fromText != "" {
		if from, err = time.Parse(dateLayout, fromText); err != nil {
			return from, to, fmt.Errorf("--from: %q is not a YYYY-MM-DD date", fromText)
		}
	}

	if from.Format(dateLayout) > to.Format(dateLayout) {
		return from, to, fmt.Errorf("--from %s is after --to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	return from, to, nil
}

func runWeatherSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	fromText, _ := cmd.Flags().GetString("from")
	toText, _ := cmd.Flags().GetString("to")

	from, to, err := syncRange(fromText, toText, time.Now())
	if err != nil {
		return err
	}

	s, err := openSession(cc)
	if err != nil {
		return err
	}

	loc, err := gardenLocation(ctx, cc, s)
	if err != nil {
		return err
	}

	res, err := s.Diary.SyncWeather(ctx, loc, from, to)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Out, map[string]int{"fetched": res.Fetched, "appended": res.Appended})
	}

	cc.Statusf("Fetched %d day(s) from %s to %s, added %d new\n",
		res.Fetched, from.Format(dateLayout), to.Format(dateLayout), res.Appended)

	return nil
}

func newWeatherHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show stored daily weather",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			days, err := s.Diary.WeatherHistory(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, days)
			}

			rows := make([][]string, 0, len(days))
			for _, d := range days {
				rows = append(rows, []string{
					d.Date,
					formatNumber(d.TempMax),
					formatNumber(d.TempMin),
					formatNumber(d.TempAvg),
					formatNumber(d.Precipitation),
					formatNumber(d.HumidityAvg),
					formatNumber(d.WindSpeedMax),
				})
			}

			printTable(cc.Out, []string{"DATE", "MAX", "MIN", "AVG", "RAIN", "HUMIDITY", "WIND"}, rows)

			return nil
		},
	}
}
