package sheets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseActivityLog(t *testing.T) {
	row := []string{"a1", "p1", "Hana", "harvest", "2025-06-01", "first tomatoes", "350", "g", "f1, f2,", "2025-06-01T08:00:00Z"}

	want := ActivityLog{
		ID:           "a1",
		PlanterID:    "p1",
		UserName:     "Hana",
		ActivityType: Harvest,
		ActivityDate: "2025-06-01",
		Memo:         "first tomatoes",
		Quantity:     Float(350),
		Unit:         "g",
		PhotoFileIDs: []string{"f1", "f2"},
		CreatedAt:    "2025-06-01T08:00:00Z",
	}

	got := ParseActivityLog(row)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseActivityLog mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"a1", "p1", "Hana", "harvest", "2025-06-01", "first tomatoes", "350", "g", "f1,f2", "2025-06-01T08:00:00Z"}, got.Row())
}

func TestParseActivityLog_ShortRow(t *testing.T) {
	got := ParseActivityLog([]string{"a1", "p1", "", "watering", "2025-06-02"})

	want := ActivityLog{ID: "a1", PlanterID: "p1", ActivityType: Watering, ActivityDate: "2025-06-02"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("short row mismatch (-want +got):\n%s", diff)
	}
}

func TestWeatherDay_NullableNumbers(t *testing.T) {
	d := WeatherDay{Date: "2025-06-01", TempMax: Float(28.4), TempAvg: Float(0), Source: "open-meteo"}

	row := d.Row()
	assert.Equal(t, []string{"2025-06-01", "28.4", "", "0", "", "", "", "", "open-meteo", ""}, row)

	if diff := cmp.Diff(d, ParseWeatherDay(row)); diff != "" {
		t.Errorf("weather day mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSoilReading_NonNumericIsNull(t *testing.T) {
	got := ParseSoilReading([]string{"s1", "p1", "2025-06-01T06:00:00Z", "31.2", "n/a", "", "1.05"})

	assert.Equal(t, Float(31.2), got.VWC)
	assert.Nil(t, got.SoilTemp)
	assert.Nil(t, got.ECBulk)
	assert.Equal(t, Float(1.05), got.ECPore)
}

func TestPlanterRoundTrip(t *testing.T) {
	p := Planter{
		ID: "p1", Name: "Balcony tomato", CropName: "tomato", CropVariety: "Momotaro",
		StartDate: "2025-04-20", Status: StatusActive, CreatedAt: "2025-04-20T09:00:00Z",
	}

	row := p.Row()
	assert.Len(t, row, len(Headers[0].Columns))
	assert.Equal(t, p, ParsePlanter(row))
}

func TestHarvestTotalRow(t *testing.T) {
	h := HarvestTotal{Year: 2025, Month: 6, PlanterID: "p1", CropName: "tomato", TotalQuantity: 1250.5, Unit: "g", Count: 4}

	assert.Equal(t, []string{"2025", "6", "p1", "tomato", "1250.5", "g", "4"}, h.Row())
	assert.Equal(t, h, ParseHarvestTotal(h.Row()))
}

func TestRecords_SkipsHeaderAndClearedRows(t *testing.T) {
	rows := [][]string{
		Headers[0].Columns,
		{"p1", "A"},
		{},
		{"", "orphan"},
		{"p2", "B"},
	}

	got := Records(rows, ParsePlanter)
	assert.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)

	assert.Nil(t, Records([][]string{Headers[0].Columns}, ParsePlanter))
	assert.Nil(t, Records(nil, ParsePlanter))
}

func TestActivityType(t *testing.T) {
	assert.True(t, PestControl.Valid())
	assert.False(t, ActivityType("dancing").Valid())
	assert.Equal(t, "Pest control", PestControl.Label())
	assert.Equal(t, "dancing", ActivityType("dancing").Label())
	assert.Len(t, ActivityTypes, 12)
}

func TestParseSettings(t *testing.T) {
	got := ParseSettings([][]string{
		{"key", "value"},
		{"latitude", "35.6"},
		{"shared_emails"},
		{},
		{"latitude", "36.0"},
	})

	assert.Equal(t, map[string]string{"latitude": "36.0", "shared_emails": ""}, got)
}
