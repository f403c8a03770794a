package diary

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tonimelisma/niwalog/internal/sheets"
	"github.com/tonimelisma/niwalog/internal/weather"
)

// Settings returns the settings sheet as a key/value map.
func (s *Service) Settings(ctx context.Context) (map[string]string, error) {
	return withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) (map[string]string, error) {
		return c.ReadSettings(ctx)
	})
}

// PutSetting stores value under key.
func (s *Service) PutSetting(ctx context.Context, key, value string) error {
	return s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		return c.PutSetting(ctx, key, value)
	})
}

// SavedLocation returns the garden location stored in settings.
// ErrNoLocation means latitude or longitude is unset.
func (s *Service) SavedLocation(ctx context.Context) (weather.Location, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return weather.Location{}, err
	}

	return locationFromSettings(settings)
}

func locationFromSettings(settings map[string]string) (weather.Location, error) {
	latText, lonText := settings[sheets.SettingLatitude], settings[sheets.SettingLongitude]
	if latText == "" || lonText == "" {
		return weather.Location{}, ErrNoLocation
	}

	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("diary: parsing latitude %q: %w", latText, err)
	}

	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return weather.Location{}, fmt.Errorf("diary: parsing longitude %q: %w", lonText, err)
	}

	return weather.Location{Latitude: lat, Longitude: lon, Timezone: settings[sheets.SettingTimezone]}, nil
}

// SaveLocation stores the garden location in settings.
func (s *Service) SaveLocation(ctx context.Context, loc weather.Location) error {
	return s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		for _, kv := range [][2]string{
			{sheets.SettingLatitude, strconv.FormatFloat(loc.Latitude, 'f', -1, 64)},
			{sheets.SettingLongitude, strconv.FormatFloat(loc.Longitude, 'f', -1, 64)},
			{sheets.SettingTimezone, loc.Timezone},
		} {
			if err := c.PutSetting(ctx, kv[0], kv[1]); err != nil {
				return err
			}
		}

		return nil
	})
}
