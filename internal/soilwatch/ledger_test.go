package soilwatch

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	l, err := OpenLedger(t.Context(), filepath.Join(t.TempDir(), "soil.db"), testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { l.Close() })

	return l
}

func TestLedger_SeenAndRecord(t *testing.T) {
	l := openTestLedger(t)
	ctx := t.Context()

	seen, err := l.Seen(ctx, "/data/a.csv", "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.Record(ctx, "/data/a.csv", "abc", "p1", 12))

	seen, err = l.Seen(ctx, "/data/a.csv", "abc")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = l.Seen(ctx, "/data/a.csv", "def")
	require.NoError(t, err)
	assert.False(t, seen, "new content at the same path is not seen")

	seen, err = l.Seen(ctx, "/data/b.csv", "abc")
	require.NoError(t, err)
	assert.False(t, seen, "same content at another path is not seen")
}

func TestLedger_Imports(t *testing.T) {
	l := openTestLedger(t)
	ctx := t.Context()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	l.nowFunc = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	require.NoError(t, l.Record(ctx, "/data/a.csv", "s1", "p1", 3))
	require.NoError(t, l.Record(ctx, "/data/b.csv", "s2", "", 7))
	// Recording the same content again updates the entry.
	require.NoError(t, l.Record(ctx, "/data/a.csv", "s1", "p2", 4))

	imports, err := l.Imports(ctx)
	require.NoError(t, err)
	require.Len(t, imports, 2)

	assert.Equal(t, "/data/a.csv", imports[0].Path)
	assert.Equal(t, "p2", imports[0].PlanterID)
	assert.Equal(t, 4, imports[0].Readings)
	assert.True(t, imports[0].ImportedAt.Equal(base.Add(3*time.Minute)))
	assert.Equal(t, "/data/b.csv", imports[1].Path)
}

func TestLedger_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soil.db")

	l, err := OpenLedger(t.Context(), path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Record(t.Context(), "/x.csv", "s", "", 1))
	require.NoError(t, l.Close())

	l, err = OpenLedger(t.Context(), path, nil)
	require.NoError(t, err)

	defer l.Close()

	seen, err := l.Seen(t.Context(), "/x.csv", "s")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestLedger_Watermark(t *testing.T) {
	l := openTestLedger(t)
	ctx := t.Context()

	_, ok, err := l.Watermark(ctx, "/data/a.csv", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	noon := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Advance(ctx, "/data/a.csv", "p1", noon))
	// An older time never lowers the watermark.
	require.NoError(t, l.Advance(ctx, "/data/a.csv", "p1", noon.Add(-time.Hour)))

	got, ok, err := l.Watermark(ctx, "/data/a.csv", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(noon))

	_, ok, err = l.Watermark(ctx, "/data/a.csv", "p2")
	require.NoError(t, err)
	assert.False(t, ok, "watermarks are per planter")
}
