package main

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/weather"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Settings stored in the diary spreadsheet",
	}

	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsSetCmd(),
		newSettingsLocationCmd(),
	)

	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			settings, err := s.Diary.Settings(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printJSON(cc.Out, settings)
			}

			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}

			slices.Sort(keys)

			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, []string{k, settings[k]})
			}

			printTable(cc.Out, []string{"KEY", "VALUE"}, rows)

			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.PutSetting(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			cc.Statusf("Set %s\n", args[0])

			return nil
		},
	}
}

// parseLocation validates the arguments of `settings location`.
func parseLocation(args []string) (weather.Location, error) {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Location{}, fmt.Errorf("latitude %q must be a number between -90 and 90", args[0])
	}

	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Location{}, fmt.Errorf("longitude %q must be a number between -180 and 180", args[1])
	}

	loc := weather.Location{Latitude: lat, Longitude: lon}

	if len(args) == 3 {
		if _, err := time.LoadLocation(args[2]); err != nil {
			return weather.Location{}, fmt.Errorf("unknown time zone %q", args[2])
		}

		loc.Timezone = args[2]
	}

	return loc, nil
}

func newSettingsLocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "location <latitude> <longitude> [timezone]",
		Short:   "Save the garden location used for weather",
		Example: "  niwalog settings location 35.6812 139.7671 Asia/Tokyo",
		Args:    cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			loc, err := parseLocation(args)
			if err != nil {
				return err
			}

			s, err := openSession(cc)
			if err != nil {
				return err
			}

			if err := s.Diary.SaveLocation(cmd.Context(), loc); err != nil {
				return err
			}

			cc.Statusf("Saved garden location %s, %s\n",
				strconv.FormatFloat(loc.Latitude, 'f', -1, 64), strconv.FormatFloat(loc.Longitude, 'f', -1, 64))

			return nil
		},
	}
}
