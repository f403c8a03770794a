// Package analytics derives views from diary records: correlation between
// soil and weather series, growing degree days, and monthly harvest totals.
// Everything here is pure computation over already-loaded rows.
package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

// DefaultBaseTemp is the GDD base temperature in °C when none is configured.
const DefaultBaseTemp = 10.0

// DefaultHarvestUnit is assumed for harvest entries recorded without a unit.
const DefaultHarvestUnit = "g"

// minSamples is the smallest sample size Pearson will evaluate.
const minSamples = 3

// Pearson returns the Pearson correlation coefficient of x and y over their
// first min(len(x), len(y)) elements. ok is false when there are fewer than
// three samples or either series has zero variance.
func Pearson(x, y []float64) (r float64, ok bool) {
	n := min(len(x), len(y))
	if n < minSamples {
		return 0, false
	}

	var meanX, meanY float64
	for i := range n {
		meanX += x[i]
		meanY += y[i]
	}

	meanX /= float64(n)
	meanY /= float64(n)

	var sumXY, sumX2, sumY2 float64

	for i := range n {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumX2 += dx * dx
		sumY2 += dy * dy
	}

	denom := math.Sqrt(sumX2 * sumY2)
	if denom == 0 {
		return 0, false
	}

	return sumXY / denom, true
}

// CorrelationLabel describes a coefficient in words. Pass ok from Pearson.
func CorrelationLabel(r float64, ok bool) string {
	if !ok {
		return "insufficient data"
	}

	sign := "positive"
	if r < 0 {
		sign = "negative"
	}

	switch abs := math.Abs(r); {
	case abs >= 0.7:
		return "strong " + sign
	case abs >= 0.4:
		return "moderate " + sign
	case abs >= 0.2:
		return "weak " + sign
	default:
		return "no correlation"
	}
}

// GDDPoint is one day of a growing degree day series.
type GDDPoint struct {
	Date       string
	Daily      float64
	Cumulative float64
}

// round1 rounds half up to one decimal place.
func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// GDD computes growing degree days from start (YYYY-MM-DD, inclusive): each
// day contributes max(mean temperature - base, 0). Days without a mean
// temperature or before start are skipped. Values are rounded to 0.1; the
// running total accumulates unrounded values.
func GDD(days []sheets.WeatherDay, start string, base float64) []GDDPoint {
	var usable []sheets.WeatherDay

	for _, d := range days {
		if d.Date >= start && d.TempAvg != nil {
			usable = append(usable, d)
		}
	}

	slices.SortStableFunc(usable, func(a, b sheets.WeatherDay) int { return cmp.Compare(a.Date, b.Date) })

	points := make([]GDDPoint, 0, len(usable))

	var cumulative float64

	for _, d := range usable {
		daily := max(*d.TempAvg-base, 0)
		cumulative += daily

		points = append(points, GDDPoint{
			Date:       d.Date,
			Daily:      round1(daily),
			Cumulative: round1(cumulative),
		})
	}

	return points
}

type harvestKey struct {
	year, month int
	planterID   string
	unit        string
}

// HarvestSummaries totals harvest activities by year, month, planter and
// unit. Entries without a quantity or with an unparseable date are left
// out. Rows are ordered by year, month, planter and unit.
func HarvestSummaries(activities []sheets.ActivityLog, planters []sheets.Planter) []sheets.HarvestTotal {
	crops := make(map[string]string, len(planters))
	for _, p := range planters {
		crops[p.ID] = p.CropName
	}

	totals := map[harvestKey]*sheets.HarvestTotal{}

	for _, a := range activities {
		if a.ActivityType != sheets.Harvest || a.Quantity == nil {
			continue
		}

		date, err := time.Parse(time.DateOnly, a.ActivityDate)
		if err != nil {
			continue
		}

		unit := a.Unit
		if unit == "" {
			unit = DefaultHarvestUnit
		}

		key := harvestKey{year: date.Year(), month: int(date.Month()), planterID: a.PlanterID, unit: unit}

		t, ok := totals[key]
		if !ok {
			t = &sheets.HarvestTotal{
				Year:      key.year,
				Month:     key.month,
				PlanterID: a.PlanterID,
				CropName:  crops[a.PlanterID],
				Unit:      unit,
			}
			totals[key] = t
		}

		t.TotalQuantity += *a.Quantity
		t.Count++
	}

	out := make([]sheets.HarvestTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}

	slices.SortFunc(out, func(a, b sheets.HarvestTotal) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.Month, b.Month),
			cmp.Compare(a.PlanterID, b.PlanterID),
			cmp.Compare(a.Unit, b.Unit),
		)
	})

	return out
}

// SoilMetric selects a soil sensor series.
type SoilMetric string

// Soil metrics.
const (
	SoilVWC    SoilMetric = "vwc"
	SoilTemp   SoilMetric = "soil_temp"
	SoilECBulk SoilMetric = "ec_bulk"
	SoilECPore SoilMetric = "ec_pore"
)

// WeatherMetric selects a daily weather series.
type WeatherMetric string

// Weather metrics.
const (
	WeatherTempMax        WeatherMetric = "temp_max"
	WeatherTempMin        WeatherMetric = "temp_min"
	WeatherTempAvg        WeatherMetric = "temp_avg"
	WeatherPrecipitation  WeatherMetric = "precipitation"
	WeatherSolarRadiation WeatherMetric = "solar_radiation"
	WeatherHumidityAvg    WeatherMetric = "humidity_avg"
	WeatherWindSpeedMax   WeatherMetric = "wind_speed_max"
)

func (m SoilMetric) value(r sheets.SoilReading) (*float64, error) {
	switch m {
	case SoilVWC:
		return r.VWC, nil
	case SoilTemp:
		return r.SoilTemp, nil
	case SoilECBulk:
		return r.ECBulk, nil
	case SoilECPore:
		return r.ECPore, nil
	default:
		return nil, fmt.Errorf("analytics: unknown soil metric %q", string(m))
	}
}

func (m WeatherMetric) value(d sheets.WeatherDay) (*float64, error) {
	switch m {
	case WeatherTempMax:
		return d.TempMax, nil
	case WeatherTempMin:
		return d.TempMin, nil
	case WeatherTempAvg:
		return d.TempAvg, nil
	case WeatherPrecipitation:
		return d.Precipitation, nil
	case WeatherSolarRadiation:
		return d.SolarRadiation, nil
	case WeatherHumidityAvg:
		return d.HumidityAvg, nil
	case WeatherWindSpeedMax:
		return d.WindSpeedMax, nil
	default:
		return nil, fmt.Errorf("analytics: unknown weather metric %q", string(m))
	}
}

// Pair is one day's soil mean matched with that day's weather value.
type Pair struct {
	Date    string
	Soil    float64
	Weather float64
}

// readingDate returns the calendar date of a measured_at timestamp as
// recorded, without converting time zones.
func readingDate(measuredAt string) string {
	if len(measuredAt) < len(time.DateOnly) {
		return ""
	}

	return measuredAt[:len(time.DateOnly)]
}

// PairSoilWeather averages the soil metric per day and pairs each day with
// the same day's weather metric. Days missing either side are dropped.
// Pairs are ordered by date.
func PairSoilWeather(
	soil []sheets.SoilReading, weather []sheets.WeatherDay, sm SoilMetric, wm WeatherMetric,
) ([]Pair, error) {
	type acc struct {
		sum float64
		n   int
	}

	daily := map[string]*acc{}

	for _, r := range soil {
		v, err := sm.value(r)
		if err != nil {
			return nil, err
		}

		date := readingDate(r.MeasuredAt)
		if v == nil || date == "" {
			continue
		}

		a, ok := daily[date]
		if !ok {
			a = &acc{}
			daily[date] = a
		}

		a.sum += *v
		a.n++
	}

	var pairs []Pair

	seen := map[string]bool{}

	for _, d := range weather {
		v, err := wm.value(d)
		if err != nil {
			return nil, err
		}

		a, ok := daily[d.Date]
		if v == nil || !ok || seen[d.Date] {
			continue
		}

		seen[d.Date] = true
		pairs = append(pairs, Pair{Date: d.Date, Soil: a.sum / float64(a.n), Weather: *v})
	}

	slices.SortFunc(pairs, func(a, b Pair) int { return cmp.Compare(a.Date, b.Date) })

	return pairs, nil
}

// Columns splits pairs into the soil and weather series for Pearson.
func Columns(pairs []Pair) (soil, weather []float64) {
	soil = make([]float64, len(pairs))
	weather = make([]float64, len(pairs))

	for i, p := range pairs {
		soil[i] = p.Soil
		weather[i] = p.Weather
	}

	return soil, weather
}

// Correlation is a labelled soil/weather correlation result.
type Correlation struct {
	Soil    SoilMetric
	Weather WeatherMetric
	Pairs   []Pair
	R       float64
	OK      bool
	Label   string
}

// Correlate pairs soil and weather and computes their correlation.
func Correlate(soil []sheets.SoilReading, weather []sheets.WeatherDay, sm SoilMetric, wm WeatherMetric) (Correlation, error) {
	pairs, err := PairSoilWeather(soil, weather, sm, wm)
	if err != nil {
		return Correlation{}, err
	}

	x, y := Columns(pairs)
	r, ok := Pearson(x, y)

	return Correlation{Soil: sm, Weather: wm, Pairs: pairs, R: r, OK: ok, Label: CorrelationLabel(r, ok)}, nil
}
