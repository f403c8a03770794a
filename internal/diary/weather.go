package diary

import (
	"context"
	"log/slog"
	"time"

	"github.com/tonimelisma/niwalog/internal/sheets"
	"github.com/tonimelisma/niwalog/internal/weather"
)

// SyncResult reports what SyncWeather appended.
type SyncResult struct {
	Fetched  int
	Appended int
}

// SyncWeather fetches daily weather history for loc between from and to
// (inclusive) and appends the days weather_data does not hold yet.
func (s *Service) SyncWeather(ctx context.Context, loc weather.Location, from, to time.Time) (SyncResult, error) {
	days, err := s.weather.History(ctx, loc, from, to)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Fetched: len(days)}

	appended, err := withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) (int, error) {
		rows, err := c.Values(ctx, sheets.WeatherData)
		if err != nil {
			return 0, err
		}

		have := map[string]bool{}
		for _, d := range sheets.Records(rows, sheets.ParseWeatherDay) {
			have[d.Date] = true
		}

		var fresh [][]string

		for _, d := range days {
			if !have[d.Date] {
				have[d.Date] = true
				fresh = append(fresh, d.Row())
			}
		}

		return len(fresh), c.Append(ctx, sheets.WeatherData, fresh)
	})
	if err != nil {
		return res, err
	}

	res.Appended = appended

	s.logger.Info("weather synced",
		slog.String("from", from.Format(time.DateOnly)),
		slog.String("to", to.Format(time.DateOnly)),
		slog.Int("fetched", res.Fetched),
		slog.Int("appended", res.Appended),
	)

	return res, nil
}

// WeatherHistory returns the stored weather days in sheet order.
func (s *Service) WeatherHistory(ctx context.Context) ([]sheets.WeatherDay, error) {
	return readSheet(ctx, s, sheets.WeatherData, sheets.ParseWeatherDay)
}

// Forecast returns the seven-day forecast for loc.
func (s *Service) Forecast(ctx context.Context, loc weather.Location) (*weather.Forecast, error) {
	return s.weather.Forecast(ctx, loc)
}
