package diary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

// PlanterInput holds the user-supplied fields of a new planter.
type PlanterInput struct {
	Name        string
	CropName    string
	CropVariety string
	Location    string
	StartDate   string
	Memo        string
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ListPlanters returns planters in sheet order. An empty status returns
// every planter.
func (s *Service) ListPlanters(ctx context.Context, status sheets.PlanterStatus) ([]sheets.Planter, error) {
	planters, err := readSheet(ctx, s, sheets.Planters, sheets.ParsePlanter)
	if err != nil || status == "" {
		return planters, err
	}

	filtered := planters[:0]
	for _, p := range planters {
		if p.Status == status {
			filtered = append(filtered, p)
		}
	}

	return filtered, nil
}

// GetPlanter returns the planter with id.
func (s *Service) GetPlanter(ctx context.Context, id string) (sheets.Planter, error) {
	planters, err := s.ListPlanters(ctx, "")
	if err != nil {
		return sheets.Planter{}, err
	}

	for _, p := range planters {
		if p.ID == id {
			return p, nil
		}
	}

	return sheets.Planter{}, fmt.Errorf("%w: planter %q", ErrNotFound, id)
}

// AddPlanter records a new active planter. The crop name is required; the
// name defaults to it and the start date to today.
func (s *Service) AddPlanter(ctx context.Context, in PlanterInput) (sheets.Planter, error) {
	crop := clean(in.CropName)
	if crop == "" {
		return sheets.Planter{}, fmt.Errorf("%w: crop name is required", ErrInvalidPlanter)
	}

	name := clean(in.Name)
	if name == "" {
		name = crop
	}

	start := strings.TrimSpace(in.StartDate)
	if start == "" {
		start = s.today()
	} else if _, err := time.Parse(time.DateOnly, start); err != nil {
		return sheets.Planter{}, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", ErrInvalidPlanter, start)
	}

	now := s.timestamp()
	p := sheets.Planter{
		ID:          s.newID(),
		Name:        name,
		CropName:    crop,
		CropVariety: clean(in.CropVariety),
		Location:    clean(in.Location),
		StartDate:   start,
		Status:      sheets.StatusActive,
		Memo:        strings.TrimSpace(in.Memo),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		return c.Append(ctx, sheets.Planters, [][]string{p.Row()})
	})
	if err != nil {
		return sheets.Planter{}, err
	}

	s.logger.Info("planter added", slog.String("planter_id", p.ID), slog.String("name", p.Name))

	return p, nil
}

// updatePlanter applies change to the planter with id and writes it back.
func (s *Service) updatePlanter(ctx context.Context, id string, change func(*sheets.Planter)) (sheets.Planter, error) {
	return withSheets(ctx, s, func(ctx context.Context, c *sheets.Client) (sheets.Planter, error) {
		rows, err := c.Values(ctx, sheets.Planters)
		if err != nil {
			return sheets.Planter{}, err
		}

		for i, row := range rows {
			if i == 0 || len(row) == 0 || row[0] != id {
				continue
			}

			p := sheets.ParsePlanter(row)
			change(&p)
			p.UpdatedAt = s.timestamp()

			if err := c.UpdateRow(ctx, sheets.Planters, i+1, p.Row()); err != nil {
				return sheets.Planter{}, err
			}

			return p, nil
		}

		return sheets.Planter{}, fmt.Errorf("%w: planter %q", ErrNotFound, id)
	})
}

// SetPlanterStatus archives or reactivates a planter. Archiving sets the
// end date to today; reactivating clears it.
func (s *Service) SetPlanterStatus(ctx context.Context, id string, status sheets.PlanterStatus) (sheets.Planter, error) {
	var end string

	switch status {
	case sheets.StatusArchived:
		end = s.today()
	case sheets.StatusActive:
	default:
		return sheets.Planter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidPlanter, status)
	}

	p, err := s.updatePlanter(ctx, id, func(p *sheets.Planter) {
		p.Status = status
		p.EndDate = end
	})
	if err != nil {
		return p, err
	}

	s.logger.Info("planter status changed", slog.String("planter_id", id), slog.String("status", string(status)))

	return p, nil
}

// SetPlanterFolder records the Drive folder holding the planter's photos.
func (s *Service) SetPlanterFolder(ctx context.Context, id, folderID string) error {
	_, err := s.updatePlanter(ctx, id, func(p *sheets.Planter) { p.ImageFolderID = folderID })
	return err
}

// DeletePlanter clears the planter's row. Its activity logs and photos are
// left in place.
func (s *Service) DeletePlanter(ctx context.Context, id string) error {
	if err := s.clearRecord(ctx, sheets.Planters, "planter", id); err != nil {
		return err
	}

	s.logger.Info("planter deleted", slog.String("planter_id", id))

	return nil
}
