package soilwatch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 2 * time.Second

// Error backoff for the fsnotify error channel.
const (
	watchErrInitBackoff = time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// Importer stores parsed readings for a planter and reports how many were
// written.
type Importer interface {
	AddSoilReadings(ctx context.Context, planterID string, readings []sheets.SoilReading) (int, error)
}

// FsWatcher is the part of fsnotify.Watcher the Watcher uses.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Config configures a Watcher.
type Config struct {
	Dir       string
	PlanterID string
	Debounce  time.Duration
	// Location interprets timestamps written without a zone.
	Location *time.Location
}

// Result is the outcome of importing one file.
type Result struct {
	Path     string
	Readings int
	// Skipped means the ledger already had this content.
	Skipped bool
}

// Watcher imports sensor CSV files from a directory.
type Watcher struct {
	cfg      Config
	importer Importer
	ledger   *Ledger
	logger   *slog.Logger

	newFsWatcher func() (FsWatcher, error)
	sleepFunc    func(ctx context.Context, d time.Duration) error
}

// NewWatcher creates a Watcher for cfg.Dir.
func NewWatcher(cfg Config, importer Importer, ledger *Ledger, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Watcher{
		cfg:          cfg,
		importer:     importer,
		ledger:       ledger,
		logger:       logger,
		newFsWatcher: newFsnotifyWatcher,
		sleepFunc:    timeSleep,
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// ImportFile imports one CSV file unless the ledger already has its
// content.
func (w *Watcher) ImportFile(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("soilwatch: reading %s: %w", path, err)
	}

	digest := sha256.Sum256(data)
	sum := hex.EncodeToString(digest[:])

	seen, err := w.ledger.Seen(ctx, path, sum)
	if err != nil {
		return res, err
	}

	if seen {
		res.Skipped = true
		w.logger.Debug("soil file already imported", slog.String("path", path))

		return res, nil
	}

	readings, err := ParseCSV(bytes.NewReader(data), w.cfg.Location)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	fresh, latest, err := w.unseenReadings(ctx, path, readings)
	if err != nil {
		return res, err
	}

	if len(fresh) > 0 {
		n, err := w.importer.AddSoilReadings(ctx, w.cfg.PlanterID, fresh)
		if err != nil {
			return res, err
		}

		res.Readings = n
	}

	if !latest.IsZero() {
		if err := w.ledger.Advance(ctx, path, w.cfg.PlanterID, latest); err != nil {
			return res, err
		}
	}

	if err := w.ledger.Record(ctx, path, sum, w.cfg.PlanterID, res.Readings); err != nil {
		return res, err
	}

	w.logger.Info("soil file imported", slog.String("path", path), slog.Int("readings", res.Readings))

	return res, nil
}

// unseenReadings drops the readings at or before the watermark of path, so a
// sensor export that grew only contributes its new rows. latest is the
// newest measurement among all readings.
func (w *Watcher) unseenReadings(ctx context.Context, path string, readings []sheets.SoilReading) (
	fresh []sheets.SoilReading, latest time.Time, err error,
) {
	mark, marked, err := w.ledger.Watermark(ctx, path, w.cfg.PlanterID)
	if err != nil {
		return nil, time.Time{}, err
	}

	for _, r := range readings {
		at, err := time.Parse(time.RFC3339, r.MeasuredAt)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%s: measured_at %q: %w", path, r.MeasuredAt, err)
		}

		if at.After(latest) {
			latest = at
		}

		if marked && !at.After(mark) {
			continue
		}

		fresh = append(fresh, r)
	}

	if skipped := len(readings) - len(fresh); skipped > 0 {
		w.logger.Debug("soil readings already imported",
			slog.String("path", path),
			slog.Int("skipped", skipped),
		)
	}

	return fresh, latest, nil
}

// fatal reports errors that stop watching: the diary can no longer be
// written until the user signs in again.
func fatal(err error) bool {
	return errors.Is(err, auth.ErrSessionExpired) || errors.Is(err, auth.ErrNotAuthenticated) ||
		errors.Is(err, context.Canceled)
}

// Scan imports every CSV file in the directory in name order. A file that
// fails is reported and the scan continues; the failures come back joined.
func (w *Watcher) Scan(ctx context.Context) ([]Result, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("soilwatch: listing %s: %w", w.cfg.Dir, err)
	}

	var (
		results []Result
		errs    []error
	)

	for _, e := range entries {
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}

		res, err := w.ImportFile(ctx, filepath.Join(w.cfg.Dir, e.Name()))
		if err != nil {
			if fatal(err) {
				return results, err
			}

			errs = append(errs, err)

			continue
		}

		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// Watch scans the directory once and then imports CSV files as they are
// created or rewritten, each after it has been quiet for the debounce
// interval. It returns nil when ctx is canceled, or an error when the
// directory cannot be watched or the diary rejects the session.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := w.newFsWatcher()
	if err != nil {
		return fmt.Errorf("soilwatch: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("soilwatch: watching %s: %w", w.cfg.Dir, err)
	}

	if _, err := w.Scan(ctx); err != nil {
		if fatal(err) {
			return w.stopErr(ctx, err)
		}

		w.logger.Warn("initial soil scan had failures", slog.String("error", err.Error()))
	}

	w.logger.Info("watching for soil sensor files",
		slog.String("dir", w.cfg.Dir),
		slog.Duration("debounce", w.cfg.Debounce),
	)

	return w.watchLoop(ctx, fw)
}

func (w *Watcher) stopErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	return err
}

func (w *Watcher) watchLoop(ctx context.Context, fw FsWatcher) error {
	pending := map[string]bool{}
	errBackoff := watchErrInitBackoff

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			if !isCSV(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}

			pending[ev.Name] = true
			timer.Reset(w.cfg.Debounce)
			errBackoff = watchErrInitBackoff

		case werr, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", werr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if err := w.sleepFunc(ctx, errBackoff); err != nil {
				return nil
			}

			errBackoff = min(errBackoff*watchErrBackoffMult, watchErrMaxBackoff)

		case <-timer.C:
			if err := w.flush(ctx, pending); err != nil {
				return w.stopErr(ctx, err)
			}
		}
	}
}

// flush imports and forgets every pending path. Only fatal errors are
// returned; other failures are logged.
func (w *Watcher) flush(ctx context.Context, pending map[string]bool) error {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}

	slices.Sort(paths)
	clear(pending)

	for _, p := range paths {
		if _, err := w.ImportFile(ctx, p); err != nil {
			if fatal(err) {
				return err
			}

			w.logger.Warn("soil file import failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}

	return nil
}

// timeSleep waits for d or until ctx is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
