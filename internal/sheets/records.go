package sheets

import (
	"strconv"
	"strings"
)

// PlanterStatus is the lifecycle state of a planter.
type PlanterStatus string

// Planter statuses.
const (
	StatusActive   PlanterStatus = "active"
	StatusArchived PlanterStatus = "archived"
)

// Planter is one row of the planters sheet.
type Planter struct {
	ID            string
	Name          string
	CropName      string
	CropVariety   string
	Location      string
	StartDate     string
	EndDate       string
	Status        PlanterStatus
	ImageFolderID string
	Memo          string
	CreatedAt     string
	UpdatedAt     string
}

// Row encodes p in planters column order.
func (p Planter) Row() []string {
	return []string{
		p.ID, p.Name, p.CropName, p.CropVariety, p.Location,
		p.StartDate, p.EndDate, string(p.Status), p.ImageFolderID, p.Memo,
		p.CreatedAt, p.UpdatedAt,
	}
}

// ParsePlanter decodes a planters row. Missing trailing cells are empty.
func ParsePlanter(row []string) Planter {
	c := cells(row)

	return Planter{
		ID:            c(0),
		Name:          c(1),
		CropName:      c(2),
		CropVariety:   c(3),
		Location:      c(4),
		StartDate:     c(5),
		EndDate:       c(6),
		Status:        PlanterStatus(c(7)),
		ImageFolderID: c(8),
		Memo:          c(9),
		CreatedAt:     c(10),
		UpdatedAt:     c(11),
	}
}

// ActivityType is the kind of work an activity log records.
type ActivityType string

// Activity types.
const (
	Watering    ActivityType = "watering"
	Fertilizing ActivityType = "fertilizing"
	Harvest     ActivityType = "harvest"
	Pruning     ActivityType = "pruning"
	Planting    ActivityType = "planting"
	Seeding     ActivityType = "seeding"
	PestControl ActivityType = "pest_control"
	Weeding     ActivityType = "weeding"
	Thinning    ActivityType = "thinning"
	Support     ActivityType = "support"
	Observation ActivityType = "observation"
	Other       ActivityType = "other"
)

// ActivityTypes lists every activity type in display order.
var ActivityTypes = []ActivityType{
	Watering, Fertilizing, Harvest, Pruning, Planting, Seeding,
	PestControl, Weeding, Thinning, Support, Observation, Other,
}

var activityInfo = map[ActivityType]struct{ label, emoji string }{
	Watering:    {"Watering", "💧"},
	Fertilizing: {"Fertilizing", "🧪"},
	Harvest:     {"Harvest", "🌿"},
	Pruning:     {"Pruning", "✂️"},
	Planting:    {"Planting", "🌱"},
	Seeding:     {"Seeding", "🫘"},
	PestControl: {"Pest control", "🐛"},
	Weeding:     {"Weeding", "🌾"},
	Thinning:    {"Thinning", "🪴"},
	Support:     {"Staking", "🪵"},
	Observation: {"Observation", "📸"},
	Other:       {"Other", "📝"},
}

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	_, ok := activityInfo[t]
	return ok
}

// Label returns the display label, or the raw value for unknown types.
func (t ActivityType) Label() string {
	if info, ok := activityInfo[t]; ok {
		return info.label
	}

	return string(t)
}

// Emoji returns the display icon.
func (t ActivityType) Emoji() string {
	if info, ok := activityInfo[t]; ok {
		return info.emoji
	}

	return activityInfo[Other].emoji
}

// ActivityLog is one row of the activity_logs sheet.
type ActivityLog struct {
	ID           string
	PlanterID    string
	UserName     string
	ActivityType ActivityType
	ActivityDate string
	Memo         string
	Quantity     *float64
	Unit         string
	PhotoFileIDs []string
	CreatedAt    string
}

// Row encodes a in activity_logs column order.
func (a ActivityLog) Row() []string {
	return []string{
		a.ID, a.PlanterID, a.UserName, string(a.ActivityType), a.ActivityDate,
		a.Memo, formatNumber(a.Quantity), a.Unit, JoinPhotoIDs(a.PhotoFileIDs), a.CreatedAt,
	}
}

// ParseActivityLog decodes an activity_logs row.
func ParseActivityLog(row []string) ActivityLog {
	c := cells(row)

	return ActivityLog{
		ID:           c(0),
		PlanterID:    c(1),
		UserName:     c(2),
		ActivityType: ActivityType(c(3)),
		ActivityDate: c(4),
		Memo:         c(5),
		Quantity:     parseNumber(c(6)),
		Unit:         c(7),
		PhotoFileIDs: ParsePhotoIDs(c(8)),
		CreatedAt:    c(9),
	}
}

// WeatherDay is one row of the weather_data sheet: one day of observations.
type WeatherDay struct {
	Date           string
	TempMax        *float64
	TempMin        *float64
	TempAvg        *float64
	Precipitation  *float64
	SolarRadiation *float64
	HumidityAvg    *float64
	WindSpeedMax   *float64
	Source         string
	FetchedAt      string
}

// Row encodes d in weather_data column order.
func (d WeatherDay) Row() []string {
	return []string{
		d.Date, formatNumber(d.TempMax), formatNumber(d.TempMin), formatNumber(d.TempAvg),
		formatNumber(d.Precipitation), formatNumber(d.SolarRadiation), formatNumber(d.HumidityAvg),
		formatNumber(d.WindSpeedMax), d.Source, d.FetchedAt,
	}
}

// ParseWeatherDay decodes a weather_data row.
func ParseWeatherDay(row []string) WeatherDay {
	c := cells(row)

	return WeatherDay{
		Date:           c(0),
		TempMax:        parseNumber(c(1)),
		TempMin:        parseNumber(c(2)),
		TempAvg:        parseNumber(c(3)),
		Precipitation:  parseNumber(c(4)),
		SolarRadiation: parseNumber(c(5)),
		HumidityAvg:    parseNumber(c(6)),
		WindSpeedMax:   parseNumber(c(7)),
		Source:         c(8),
		FetchedAt:      c(9),
	}
}

// SoilReading is one row of the soil_sensor_data sheet.
type SoilReading struct {
	ID         string
	PlanterID  string
	MeasuredAt string
	VWC        *float64
	SoilTemp   *float64
	ECBulk     *float64
	ECPore     *float64
	CreatedAt  string
}

// Row encodes r in soil_sensor_data column order.
func (r SoilReading) Row() []string {
	return []string{
		r.ID, r.PlanterID, r.MeasuredAt, formatNumber(r.VWC), formatNumber(r.SoilTemp),
		formatNumber(r.ECBulk), formatNumber(r.ECPore), r.CreatedAt,
	}
}

// ParseSoilReading decodes a soil_sensor_data row.
func ParseSoilReading(row []string) SoilReading {
	c := cells(row)

	return SoilReading{
		ID:         c(0),
		PlanterID:  c(1),
		MeasuredAt: c(2),
		VWC:        parseNumber(c(3)),
		SoilTemp:   parseNumber(c(4)),
		ECBulk:     parseNumber(c(5)),
		ECPore:     parseNumber(c(6)),
		CreatedAt:  c(7),
	}
}

// HarvestTotal is one row of the harvest_summary sheet: the harvest of one
// planter in one month, in one unit.
type HarvestTotal struct {
	Year          int
	Month         int
	PlanterID     string
	CropName      string
	TotalQuantity float64
	Unit          string
	Count         int
}

// Row encodes h in harvest_summary column order.
func (h HarvestTotal) Row() []string {
	return []string{
		strconv.Itoa(h.Year), strconv.Itoa(h.Month), h.PlanterID, h.CropName,
		strconv.FormatFloat(h.TotalQuantity, 'f', -1, 64), h.Unit, strconv.Itoa(h.Count),
	}
}

// ParseHarvestTotal decodes a harvest_summary row.
func ParseHarvestTotal(row []string) HarvestTotal {
	c := cells(row)

	year, _ := strconv.Atoi(c(0))
	month, _ := strconv.Atoi(c(1))
	count, _ := strconv.Atoi(c(6))

	var total float64
	if q := parseNumber(c(4)); q != nil {
		total = *q
	}

	return HarvestTotal{
		Year:          year,
		Month:         month,
		PlanterID:     c(2),
		CropName:      c(3),
		TotalQuantity: total,
		Unit:          c(5),
		Count:         count,
	}
}

// Records decodes the data rows of a sheet: the header row is skipped, as
// are rows whose first cell is empty (cleared rows).
func Records[T any](rows [][]string, parse func([]string) T) []T {
	if len(rows) <= 1 {
		return nil
	}

	out := make([]T, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if len(row) == 0 || row[0] == "" {
			continue
		}

		out = append(out, parse(row))
	}

	return out
}

// ParsePhotoIDs splits a comma-joined photo id cell, dropping blanks.
func ParsePhotoIDs(cell string) []string {
	var ids []string

	for _, id := range strings.Split(cell, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// JoinPhotoIDs joins photo ids into one cell.
func JoinPhotoIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// Float returns a pointer to v, for nullable numeric fields.
func Float(v float64) *float64 {
	return &v
}

func cells(row []string) func(int) string {
	return func(i int) string {
		if i < len(row) {
			return row[i]
		}

		return ""
	}
}

// parseNumber reads a nullable numeric cell. Empty or non-numeric cells are
// null.
func parseNumber(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}

	return &v
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}
