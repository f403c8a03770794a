package diary

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

// AddSoilReadings appends sensor readings for planterID and returns how
// many were written. Ids and creation times are assigned here.
func (s *Service) AddSoilReadings(ctx context.Context, planterID string, readings []sheets.SoilReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	if planterID != "" {
		if _, err := s.GetPlanter(ctx, planterID); err != nil {
			return 0, err
		}
	}

	created := s.timestamp()
	rows := make([][]string, len(readings))

	for i, r := range readings {
		r.ID = s.newID()
		r.PlanterID = planterID
		r.CreatedAt = created
		rows[i] = r.Row()
	}

	err := s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		return c.Append(ctx, sheets.SoilSensorData, rows)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("soil readings added", slog.String("planter_id", planterID), slog.Int("count", len(rows)))

	return len(rows), nil
}

// ListSoilReadings returns the stored readings, restricted to planterID
// when it is non-empty.
func (s *Service) ListSoilReadings(ctx context.Context, planterID string) ([]sheets.SoilReading, error) {
	readings, err := readSheet(ctx, s, sheets.SoilSensorData, sheets.ParseSoilReading)
	if err != nil || planterID == "" {
		return readings, err
	}

	return slices.DeleteFunc(readings, func(r sheets.SoilReading) bool { return r.PlanterID != planterID }), nil
}
