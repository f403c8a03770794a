package diary

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/niwalog/internal/drive"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

// MaxPhotos is the most photos one activity log can carry.
const MaxPhotos = 5

// DefaultHarvestUnit is recorded on harvests logged without a unit.
const DefaultHarvestUnit = "pcs"

// uploadConcurrency caps parallel photo uploads for one activity.
const uploadConcurrency = 3

// ActivityInput holds the user-supplied fields of an activity log.
type ActivityInput struct {
	PlanterID string
	Type      sheets.ActivityType
	// Date is YYYY-MM-DD; empty means today.
	Date string
	Memo string
	// Quantity and Unit apply to harvests only and are dropped otherwise.
	Quantity *float64
	Unit     string
	// Photos are JPEG images, at most MaxPhotos.
	Photos []io.Reader
}

// ListActivities returns activity logs newest first. A non-empty planterID
// restricts the list to that planter.
func (s *Service) ListActivities(ctx context.Context, planterID string) ([]sheets.ActivityLog, error) {
	logs, err := readSheet(ctx, s, sheets.ActivityLogs, sheets.ParseActivityLog)
	if err != nil {
		return nil, err
	}

	if planterID != "" {
		logs = slices.DeleteFunc(logs, func(a sheets.ActivityLog) bool { return a.PlanterID != planterID })
	}

	slices.SortStableFunc(logs, func(a, b sheets.ActivityLog) int {
		return cmp.Or(cmp.Compare(b.ActivityDate, a.ActivityDate), cmp.Compare(b.CreatedAt, a.CreatedAt))
	})

	return logs, nil
}

// LogActivity records an activity, uploading its photos first. Photos go
// to the planter's folder, or to the app folder when no planter is given.
func (s *Service) LogActivity(ctx context.Context, in ActivityInput) (sheets.ActivityLog, error) {
	if !in.Type.Valid() {
		return sheets.ActivityLog{}, fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, in.Type)
	}

	if len(in.Photos) > MaxPhotos {
		return sheets.ActivityLog{}, fmt.Errorf("%w: %d given, at most %d", ErrTooManyPhotos, len(in.Photos), MaxPhotos)
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.today()
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return sheets.ActivityLog{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidActivity, date)
	}

	if in.PlanterID != "" {
		if _, err := s.GetPlanter(ctx, in.PlanterID); err != nil {
			return sheets.ActivityLog{}, err
		}
	}

	entry := sheets.ActivityLog{
		ID:           s.newID(),
		PlanterID:    in.PlanterID,
		UserName:     s.userName,
		ActivityType: in.Type,
		ActivityDate: date,
		Memo:         strings.TrimSpace(in.Memo),
		CreatedAt:    s.timestamp(),
	}

	if in.Type == sheets.Harvest {
		entry.Quantity = in.Quantity
		if entry.Quantity == nil {
			entry.Quantity = sheets.Float(0)
		}

		entry.Unit = cmp.Or(strings.TrimSpace(in.Unit), DefaultHarvestUnit)
	}

	if len(in.Photos) > 0 {
		ids, err := s.uploadPhotos(ctx, in.PlanterID, fmt.Sprintf("%s_%s", date, in.Type), in.Photos)
		if err != nil {
			return sheets.ActivityLog{}, err
		}

		entry.PhotoFileIDs = ids
	}

	err := s.runSheets(ctx, func(ctx context.Context, c *sheets.Client) error {
		return c.Append(ctx, sheets.ActivityLogs, [][]string{entry.Row()})
	})
	if err != nil {
		return sheets.ActivityLog{}, err
	}

	s.logger.Info("activity logged",
		slog.String("activity_id", entry.ID),
		slog.String("type", string(entry.ActivityType)),
		slog.Int("photos", len(entry.PhotoFileIDs)),
	)

	return entry, nil
}

// uploadPhotos stores photos in the folder for planterID and returns their
// file ids in input order. Each photo is read fully first so a retried
// upload sends the same bytes.
func (s *Service) uploadPhotos(ctx context.Context, planterID, prefix string, photos []io.Reader) ([]string, error) {
	bodies := make([][]byte, len(photos))

	for i, r := range photos {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("diary: reading photo %d: %w", i+1, err)
		}

		bodies[i] = b
	}

	folder, err := s.photoFolder(ctx, planterID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(bodies))
	stamp := s.now().UnixMilli()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, body := range bodies {
		g.Go(func() error {
			name := fmt.Sprintf("%s_%d_%d.jpg", prefix, stamp, i+1)

			photo, err := withDrive(gctx, s, func(ctx context.Context, c *drive.Client) (drive.Photo, error) {
				return c.Upload(ctx, name, folder, bytes.NewReader(body))
			})
			if err != nil {
				return err
			}

			ids[i] = photo.ID

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ids, nil
}

// photoFolder returns the folder photos for planterID live in, creating
// it when missing. An empty planterID means the app folder.
func (s *Service) photoFolder(ctx context.Context, planterID string) (string, error) {
	appFolder, err := s.EnsureAppFolder(ctx)
	if err != nil || planterID == "" {
		return appFolder, err
	}

	return withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (string, error) {
		return c.EnsurePlanterFolder(ctx, planterID, appFolder)
	})
}

// DeleteActivity clears the activity's row. Its photos are left in Drive.
func (s *Service) DeleteActivity(ctx context.Context, id string) error {
	if err := s.clearRecord(ctx, sheets.ActivityLogs, "activity", id); err != nil {
		return err
	}

	s.logger.Info("activity deleted", slog.String("activity_id", id))

	return nil
}

// ListPhotos returns the photos stored for planterID, newest first. An
// empty planterID lists the app folder.
func (s *Service) ListPhotos(ctx context.Context, planterID string) ([]drive.Photo, error) {
	folder, err := s.photoFolder(ctx, planterID)
	if err != nil {
		return nil, err
	}

	photos, err := withDrive(ctx, s, func(ctx context.Context, c *drive.Client) ([]drive.Photo, error) {
		return c.List(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	// Planter subfolders show up in the app folder listing.
	return slices.DeleteFunc(photos, func(p drive.Photo) bool { return !strings.HasSuffix(p.Name, ".jpg") }), nil
}

// DownloadPhoto writes photo id to w and returns the byte count.
func (s *Service) DownloadPhoto(ctx context.Context, id string, w io.Writer) (int64, error) {
	return withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (int64, error) {
		return c.Download(ctx, id, w)
	})
}

// PhotoLink returns a viewable link for photo id.
func (s *Service) PhotoLink(ctx context.Context, id string) (string, error) {
	return withDrive(ctx, s, func(ctx context.Context, c *drive.Client) (string, error) {
		return c.Link(ctx, id)
	})
}

// DeletePhoto removes photo id from Drive. Activity logs referencing it
// keep the stale id.
func (s *Service) DeletePhoto(ctx context.Context, id string) error {
	if err := s.runDrive(ctx, func(ctx context.Context, c *drive.Client) error {
		return c.Delete(ctx, id)
	}); err != nil {
		return err
	}

	s.logger.Info("photo deleted", slog.String("file_id", id))

	return nil
}
