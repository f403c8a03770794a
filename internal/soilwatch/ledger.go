package soilwatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const (
	sqlSeen = `SELECT 1 FROM imports WHERE path = ? AND sha256 = ?`

	sqlRecord = `INSERT INTO imports (path, sha256, planter_id, readings, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path, sha256) DO UPDATE SET
		 planter_id = excluded.planter_id,
		 readings = excluded.readings,
		 imported_at = excluded.imported_at`

	sqlWatermark = `SELECT measured_at FROM watermarks WHERE path = ? AND planter_id = ?`

	sqlAdvance = `INSERT INTO watermarks (path, planter_id, measured_at) VALUES (?, ?, ?)
		ON CONFLICT(path, planter_id) DO UPDATE SET
		 measured_at = max(measured_at, excluded.measured_at)`

	sqlList = `SELECT path, sha256, planter_id, readings, imported_at
		FROM imports ORDER BY imported_at DESC, path`
)

// Import is one ledger entry: a file content that was imported.
type Import struct {
	Path       string
	SHA256     string
	PlanterID  string
	Readings   int
	ImportedAt time.Time
}

// Ledger records imported files by path and content hash.
type Ledger struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// OpenLedger opens (creating when missing) the ledger database at dbPath
// and migrates it.
func OpenLedger(ctx context.Context, dbPath string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("soilwatch: opening ledger %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("soil import ledger ready", slog.String("db_path", dbPath))

	return &Ledger{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Seen reports whether the content with sum was already imported from path.
func (l *Ledger) Seen(ctx context.Context, path, sum string) (bool, error) {
	var one int

	err := l.db.QueryRowContext(ctx, sqlSeen, path, sum).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("soilwatch: checking ledger for %s: %w", path, err)
	}

	return true, nil
}

// Record marks the content with sum at path as imported.
func (l *Ledger) Record(ctx context.Context, path, sum, planterID string, readings int) error {
	_, err := l.db.ExecContext(ctx, sqlRecord, path, sum, planterID, readings, l.nowFunc().UnixNano())
	if err != nil {
		return fmt.Errorf("soilwatch: recording import of %s: %w", path, err)
	}

	return nil
}

// Watermark returns the newest measurement time imported from path for
// planterID. ok is false when nothing was imported yet.
func (l *Ledger) Watermark(ctx context.Context, path, planterID string) (latest time.Time, ok bool, err error) {
	var nanos int64

	err = l.db.QueryRowContext(ctx, sqlWatermark, path, planterID).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}

	if err != nil {
		return time.Time{}, false, fmt.Errorf("soilwatch: reading watermark for %s: %w", path, err)
	}

	return time.Unix(0, nanos).UTC(), true, nil
}

// Advance raises the watermark of path for planterID to latest. An older
// latest leaves it unchanged.
func (l *Ledger) Advance(ctx context.Context, path, planterID string, latest time.Time) error {
	_, err := l.db.ExecContext(ctx, sqlAdvance, path, planterID, latest.UnixNano())
	if err != nil {
		return fmt.Errorf("soilwatch: advancing watermark for %s: %w", path, err)
	}

	return nil
}

// Imports lists ledger entries, most recent first.
func (l *Ledger) Imports(ctx context.Context) ([]Import, error) {
	rows, err := l.db.QueryContext(ctx, sqlList)
	if err != nil {
		return nil, fmt.Errorf("soilwatch: listing imports: %w", err)
	}
	defer rows.Close()

	var out []Import

	for rows.Next() {
		var (
			imp Import
			at  int64
		)

		if err := rows.Scan(&imp.Path, &imp.SHA256, &imp.PlanterID, &imp.Readings, &at); err != nil {
			return nil, fmt.Errorf("soilwatch: scanning import row: %w", err)
		}

		imp.ImportedAt = time.Unix(0, at)
		out = append(out, imp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("soilwatch: iterating imports: %w", err)
	}

	return out, nil
}
