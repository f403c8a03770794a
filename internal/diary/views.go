package diary

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/niwalog/internal/analytics"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

// RefreshHarvestSummary recomputes monthly harvest totals and rewrites the
// harvest_summary sheet below its header.
func (s *Service) RefreshHarvestSummary(ctx context.Context) ([]sheets.HarvestTotal, error) {
	totals, err := withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) ([]sheets.HarvestTotal, error) {
		var planterRows, activityRows [][]string

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			planterRows, err = c.Values(gctx, sheets.Planters)
			return err
		})
		g.Go(func() (err error) {
			activityRows, err = c.Values(gctx, sheets.ActivityLogs)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		totals := analytics.HarvestSummaries(
			sheets.Records(activityRows, sheets.ParseActivityLog),
			sheets.Records(planterRows, sheets.ParsePlanter),
		)

		rows := make([][]string, len(totals))
		for i, t := range totals {
			rows[i] = t.Row()
		}

		if err := c.ClearFrom(ctx, sheets.HarvestSummary, 2); err != nil {
			return nil, err
		}

		return totals, c.WriteRows(ctx, sheets.HarvestSummary, 2, rows)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("harvest summary refreshed", slog.Int("rows", len(totals)))

	return totals, nil
}

// GDDForPlanter computes growing degree days from the planter's start date
// over the stored weather history, above base °C.
func (s *Service) GDDForPlanter(ctx context.Context, planterID string, base float64) ([]analytics.GDDPoint, error) {
	p, err := s.GetPlanter(ctx, planterID)
	if err != nil {
		return nil, err
	}

	days, err := s.WeatherHistory(ctx)
	if err != nil {
		return nil, err
	}

	return analytics.GDD(days, p.StartDate, base), nil
}

// SoilWeatherCorrelation correlates a soil metric of planterID (every
// planter when empty) with a weather metric over the stored history.
func (s *Service) SoilWeatherCorrelation(
	ctx context.Context, planterID string, sm analytics.SoilMetric, wm analytics.WeatherMetric,
) (analytics.Correlation, error) {
	readings, err := s.ListSoilReadings(ctx, planterID)
	if err != nil {
		return analytics.Correlation{}, err
	}

	days, err := s.WeatherHistory(ctx)
	if err != nil {
		return analytics.Correlation{}, err
	}

	return analytics.Correlate(readings, days, sm, wm)
}
