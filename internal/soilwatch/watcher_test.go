package soilwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/niwalog/internal/auth"
	"github.com/tonimelisma/niwalog/internal/sheets"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordingImporter stores every batch it is given.
type recordingImporter struct {
	mu      sync.Mutex
	batches [][]sheets.SoilReading
	planter []string
	err     error
	got     chan struct{}
}

func newRecordingImporter() *recordingImporter {
	return &recordingImporter{got: make(chan struct{}, 16)}
}

func (r *recordingImporter) AddSoilReadings(_ context.Context, planterID string, readings []sheets.SoilReading) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() { r.got <- struct{}{} }()

	if r.err != nil {
		return 0, r.err
	}

	r.batches = append(r.batches, readings)
	r.planter = append(r.planter, planterID)

	return len(readings), nil
}

func (r *recordingImporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.batches)
}

// fakeFsWatcher feeds hand-made events to the Watcher.
type fakeFsWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
}

func newFakeFsWatcher() *fakeFsWatcher {
	return &fakeFsWatcher{events: make(chan fsnotify.Event, 8), errs: make(chan error, 8)}
}

func (f *fakeFsWatcher) Add(name string) error {
	f.added = append(f.added, name)
	return nil
}

func (f *fakeFsWatcher) Close() error                  { return nil }
func (f *fakeFsWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeFsWatcher) Errors() <-chan error          { return f.errs }

func writeCSV(t *testing.T, dir, name string, rows int) string {
	t.Helper()

	content := "measured_at,vwc\n"
	for i := range rows {
		content += fmt.Sprintf("2025-05-01 %02d:00:00,%d\n", i, 20+i)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newTestWatcher(t *testing.T, dir string, imp Importer) *Watcher {
	t.Helper()

	w := NewWatcher(Config{Dir: dir, PlanterID: "planter-1", Debounce: 10 * time.Millisecond}, imp, openTestLedger(t), testLogger(t))
	w.sleepFunc = func(context.Context, time.Duration) error { return nil }

	return w
}

func TestImportFile_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)
	path := writeCSV(t, dir, "a.csv", 3)

	res, err := w.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, Result{Path: path, Readings: 3}, res)

	res, err = w.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, imp.count())
	assert.Equal(t, []string{"planter-1"}, imp.planter)

	// A grown export contributes only its new row.
	writeCSV(t, dir, "a.csv", 4)

	res, err = w.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Readings)
	require.Equal(t, 2, imp.count())
	require.Len(t, imp.batches[1], 1)
	assert.Equal(t, "2025-05-01T03:00:00Z", imp.batches[1][0].MeasuredAt)
}

func TestImportFile_GrownFileSendsEachMeasurementOnce(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)

	path := writeCSV(t, dir, "log.csv", 2)
	_, err := w.ImportFile(t.Context(), path)
	require.NoError(t, err)

	writeCSV(t, dir, "log.csv", 3)
	_, err = w.ImportFile(t.Context(), path)
	require.NoError(t, err)

	perTime := map[string]int{}
	for _, batch := range imp.batches {
		for _, r := range batch {
			perTime[r.MeasuredAt]++
		}
	}

	assert.Equal(t, map[string]int{
		"2025-05-01T00:00:00Z": 1,
		"2025-05-01T01:00:00Z": 1,
		"2025-05-01T02:00:00Z": 1,
	}, perTime)
}

func TestImportFile_RewriteWithoutNewRowsSendsNothing(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)

	path := writeCSV(t, dir, "log.csv", 3)
	_, err := w.ImportFile(t.Context(), path)
	require.NoError(t, err)

	// Same measurements, different bytes.
	require.NoError(t, os.WriteFile(path, []byte("measured_at,vwc\n2025-05-01 01:00:00,99\n"), 0o600))

	res, err := w.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.Zero(t, res.Readings)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, imp.count())
}

func TestImportFile_OtherPlanterGetsAllRows(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	ledger := openTestLedger(t)
	path := writeCSV(t, dir, "log.csv", 2)

	first := NewWatcher(Config{Dir: dir, PlanterID: "planter-1"}, imp, ledger, testLogger(t))
	_, err := first.ImportFile(t.Context(), path)
	require.NoError(t, err)

	writeCSV(t, dir, "log.csv", 3)

	second := NewWatcher(Config{Dir: dir, PlanterID: "planter-2"}, imp, ledger, testLogger(t))
	res, err := second.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Readings)
}

func TestImportFile_FailureNotRecorded(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	imp.err = errors.New("sheet unavailable")
	w := newTestWatcher(t, dir, imp)
	path := writeCSV(t, dir, "a.csv", 1)

	_, err := w.ImportFile(t.Context(), path)
	require.ErrorContains(t, err, "sheet unavailable")

	imp.err = nil

	res, err := w.ImportFile(t.Context(), path)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestImportFile_BadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("when,vwc\n"), 0o600))

	_, err := newTestWatcher(t, dir, newRecordingImporter()).ImportFile(t.Context(), path)
	require.ErrorIs(t, err, ErrNoMeasuredAt)
	assert.Contains(t, err.Error(), "bad.csv")
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)

	writeCSV(t, dir, "b.csv", 2)
	writeCSV(t, dir, "a.CSV", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("vwc\n1\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o700))

	results, err := w.Scan(t.Context())
	require.ErrorIs(t, err, ErrNoMeasuredAt)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "a.CSV"), results[0].Path)
	assert.Equal(t, 2, results[1].Readings)
}

func TestScan_StopsOnExpiredSession(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	imp.err = fmt.Errorf("%w: invalid_grant", auth.ErrSessionExpired)
	w := newTestWatcher(t, dir, imp)

	writeCSV(t, dir, "a.csv", 1)
	writeCSV(t, dir, "b.csv", 1)

	_, err := w.Scan(t.Context())
	require.ErrorIs(t, err, auth.ErrSessionExpired)
	assert.Len(t, imp.got, 1)
}

func TestWatch_DebouncesEvents(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)
	fw := newFakeFsWatcher()
	w.newFsWatcher = func() (FsWatcher, error) { return fw, nil }

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- w.Watch(ctx) }()

	path := writeCSV(t, dir, "late.csv", 2)

	// A burst of events for one file imports it once.
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	fw.events <- fsnotify.Event{Name: filepath.Join(dir, "ignored.txt"), Op: fsnotify.Create}
	fw.errs <- errors.New("queue overflow")

	select {
	case <-imp.got:
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported")
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, 1, imp.count())
	assert.Equal(t, []string{dir}, fw.added)
}

func TestWatch_ReturnsOnExpiredSession(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	imp.err = auth.ErrNotAuthenticated
	w := newTestWatcher(t, dir, imp)
	fw := newFakeFsWatcher()
	w.newFsWatcher = func() (FsWatcher, error) { return fw, nil }

	done := make(chan error, 1)

	go func() { done <- w.Watch(t.Context()) }()

	fw.events <- fsnotify.Event{Name: writeCSV(t, dir, "x.csv", 1), Op: fsnotify.Create}

	select {
	case err := <-done:
		require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_RealFilesystem(t *testing.T) {
	dir := t.TempDir()
	imp := newRecordingImporter()
	w := newTestWatcher(t, dir, imp)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- w.Watch(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeCSV(t, dir, "sensor.csv", 5)

	select {
	case <-imp.got:
	case <-time.After(5 * time.Second):
		t.Fatal("file was not imported")
	}

	cancel()
	require.NoError(t, <-done)

	imports, err := w.ledger.Imports(t.Context())
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, 5, imports[0].Readings)
}
