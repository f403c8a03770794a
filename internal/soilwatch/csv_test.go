package soilwatch

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

func TestParseCSV(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)

	in := "\ufeffmeasured_at, vwc,soil_temp,ec_bulk,ec_pore\n" +
		"2025-05-01 06:00:00,31.2,14.5,0.21,1.05\n" +
		"\n" +
		"2025-05-01T12:00:00Z,,18,,\n"

	got, err := ParseCSV(strings.NewReader(in), tokyo)
	require.NoError(t, err)

	want := []sheets.SoilReading{
		{
			MeasuredAt: "2025-05-01T06:00:00+09:00",
			VWC:        sheets.Float(31.2), SoilTemp: sheets.Float(14.5),
			ECBulk: sheets.Float(0.21), ECPore: sheets.Float(1.05),
		},
		{MeasuredAt: "2025-05-01T12:00:00Z", SoilTemp: sheets.Float(18)},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSV_ColumnOrderAndSubset(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("VWC,Measured_At\n22,2025-05-02 07:30:00\n"), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-05-02T07:30:00Z", got[0].MeasuredAt)
	assert.Equal(t, sheets.Float(22), got[0].VWC)
	assert.Nil(t, got[0].SoilTemp)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty file", in: "", want: "no measured_at column"},
		{name: "missing timestamp column", in: "vwc\n1\n", want: "no measured_at column"},
		{name: "bad number", in: "measured_at,vwc\n2025-05-01 06:00:00,wet\n", want: `line 2: vwc "wet" is not a number`},
		{name: "bad timestamp", in: "measured_at,vwc\nmonday,1\n", want: `line 2: measured_at "monday"`},
		{name: "empty timestamp", in: "measured_at,vwc\n2025-05-01 06:00:00,1\n,2\n", want: "line 3: measured_at is empty"},
		{name: "unbalanced quote", in: "measured_at\n\"2025\n", want: "soilwatch:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.in), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("measured_at,vwc\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
