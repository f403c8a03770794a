// Package soilwatch imports soil sensor exports into the diary. A sensor
// logger drops CSV files into a directory; the Watcher notices new or
// rewritten files, parses them and hands the readings to an Importer. A
// SQLite ledger remembers which file contents were imported so a restart
// or a touched file never duplicates readings.
package soilwatch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

// Column names recognized in the header row. Only measured_at is required;
// the rest may appear in any order or be absent.
const (
	colMeasuredAt = "measured_at"
	colVWC        = "vwc"
	colSoilTemp   = "soil_temp"
	colECBulk     = "ec_bulk"
	colECPore     = "ec_pore"
)

// localLayout is the timestamp layout sensor loggers write without a zone.
const localLayout = "2006-01-02 15:04:05"

// ErrNoMeasuredAt means the header row has no measured_at column.
var ErrNoMeasuredAt = errors.New("soilwatch: header has no measured_at column")

// ParseCSV decodes a sensor export. Timestamps are RFC 3339 or
// "2006-01-02 15:04:05" in loc (UTC when nil) and are returned as RFC 3339.
// Empty cells are nulls; blank lines are skipped.
func ParseCSV(r io.Reader, loc *time.Location) ([]sheets.SoilReading, error) {
	if loc == nil {
		loc = time.UTC
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoMeasuredAt
	}

	if err != nil {
		return nil, fmt.Errorf("soilwatch: reading header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		// Some loggers write a byte order mark.
		name = strings.TrimPrefix(name, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := cols[colMeasuredAt]; !ok {
		return nil, ErrNoMeasuredAt
	}

	var readings []sheets.SoilReading

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return readings, nil
		}

		if err != nil {
			return nil, fmt.Errorf("soilwatch: %w", err)
		}

		line, _ := cr.FieldPos(0)

		reading, err := parseRecord(record, cols, loc)
		if err != nil {
			return nil, fmt.Errorf("soilwatch: line %d: %w", line, err)
		}

		readings = append(readings, reading)
	}
}

func parseRecord(record []string, cols map[string]int, loc *time.Location) (sheets.SoilReading, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}

		return strings.TrimSpace(record[i])
	}

	measured, err := parseTimestamp(cell(colMeasuredAt), loc)
	if err != nil {
		return sheets.SoilReading{}, err
	}

	r := sheets.SoilReading{MeasuredAt: measured.Format(time.RFC3339)}

	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{colVWC, &r.VWC},
		{colSoilTemp, &r.SoilTemp},
		{colECBulk, &r.ECBulk},
		{colECPore, &r.ECPore},
	} {
		text := cell(f.name)
		if text == "" {
			continue
		}

		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return sheets.SoilReading{}, fmt.Errorf("%s %q is not a number", f.name, text)
		}

		*f.dst = &v
	}

	return r, nil
}

func parseTimestamp(text string, loc *time.Location) (time.Time, error) {
	if text == "" {
		return time.Time{}, errors.New("measured_at is empty")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(localLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("measured_at %q is neither RFC 3339 nor %q", text, localLayout)
	}

	return t, nil
}
