package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tonimelisma/niwalog/internal/sheets"
)

const (
	forecastDays = 7

	// Source is recorded in weather_data rows fetched from Open-Meteo.
	Source = "open-meteo"

	dateLayout = "2006-01-02"
)

var forecastFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"precipitation_probability_max",
	"weather_code",
	"wind_speed_10m_max",
}

var archiveFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"temperature_2m_mean",
	"precipitation_sum",
	"shortwave_radiation_sum",
	"relative_humidity_2m_mean",
	"wind_speed_10m_max",
}

// Location is where weather is fetched for.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// ForecastDay is one day of the forecast. Missing values are zero.
type ForecastDay struct {
	Date                     string
	TempMax                  float64
	TempMin                  float64
	Precipitation            float64 // mm
	PrecipitationProbability float64 // %
	WeatherCode              int
	WindSpeedMax             float64 // km/h
}

// Forecast is the daily forecast starting today.
type Forecast struct {
	Days      []ForecastDay
	FetchedAt time.Time
}

func (l Location) query(fields []string) url.Values {
	tz := l.Timezone
	if tz == "" {
		tz = "auto"
	}

	return url.Values{
		"latitude":  {strconv.FormatFloat(l.Latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(l.Longitude, 'f', -1, 64)},
		"daily":     {strings.Join(fields, ",")},
		"timezone":  {tz},
	}
}

func (l Location) validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("weather: invalid location %g,%g", l.Latitude, l.Longitude)
	}

	return nil
}

// fetchDaily fetches the daily block for fields and returns the dates and
// the per-field value columns.
func (c *Client) fetchDaily(
	ctx context.Context, base string, q url.Values, fields []string,
) ([]string, map[string][]*float64, error) {
	var raw struct {
		Daily map[string]any `json:"daily"`
	}

	if err := c.getJSON(ctx, base, q, &raw); err != nil {
		return nil, nil, err
	}

	if raw.Daily == nil {
		return nil, nil, errors.New("weather: response has no daily block")
	}

	dates, err := stringColumn(raw.Daily["time"])
	if err != nil {
		return nil, nil, err
	}

	cols := make(map[string][]*float64, len(fields))
	for _, f := range fields {
		col, err := numberColumn(raw.Daily[f], len(dates))
		if err != nil {
			return nil, nil, fmt.Errorf("weather: field %s: %w", f, err)
		}

		cols[f] = col
	}

	return dates, cols, nil
}

func stringColumn(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.New("weather: daily.time missing")
	}

	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("weather: daily.time[%d] is not a date", i)
		}

		out[i] = s
	}

	return out, nil
}

// numberColumn converts a JSON array of numbers/nulls; a missing field is
// all nulls.
func numberColumn(v any, n int) ([]*float64, error) {
	out := make([]*float64, n)

	if v == nil {
		return out, nil
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, errors.New("not an array")
	}

	for i := 0; i < n && i < len(arr); i++ {
		switch x := arr[i].(type) {
		case nil:
		case float64:
			out[i] = &x
		default:
			return nil, fmt.Errorf("element %d is not a number", i)
		}
	}

	return out, nil
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}

	return *p
}

// Forecast returns the daily forecast for the next seven days.
func (c *Client) Forecast(ctx context.Context, loc Location) (*Forecast, error) {
	if err := loc.validate(); err != nil {
		return nil, err
	}

	q := loc.query(forecastFields)
	q["forecast_days"] = []string{strconv.Itoa(forecastDays)}

	dates, cols, err := c.fetchDaily(ctx, c.forecastURL, q, forecastFields)
	if err != nil {
		return nil, err
	}

	fc := &Forecast{Days: make([]ForecastDay, len(dates)), FetchedAt: c.now().UTC()}

	for i, date := range dates {
		fc.Days[i] = ForecastDay{
			Date:                     date,
			TempMax:                  orZero(cols["temperature_2m_max"][i]),
			TempMin:                  orZero(cols["temperature_2m_min"][i]),
			Precipitation:            orZero(cols["precipitation_sum"][i]),
			PrecipitationProbability: orZero(cols["precipitation_probability_max"][i]),
			WeatherCode:              int(orZero(cols["weather_code"][i])),
			WindSpeedMax:             orZero(cols["wind_speed_10m_max"][i]),
		}
	}

	c.logger.Info("fetched forecast", slog.Int("days", len(fc.Days)))

	return fc, nil
}

// History returns observed daily weather from from to to (inclusive), in
// the weather_data row shape. Values the archive does not have stay null.
func (c *Client) History(ctx context.Context, loc Location, from, to time.Time) ([]sheets.WeatherDay, error) {
	if err := loc.validate(); err != nil {
		return nil, err
	}

	if to.Before(from) {
		return nil, fmt.Errorf("weather: history range ends %s before it starts %s",
			to.Format(dateLayout), from.Format(dateLayout))
	}

	q := loc.query(archiveFields)
	q["start_date"] = []string{from.Format(dateLayout)}
	q["end_date"] = []string{to.Format(dateLayout)}

	dates, cols, err := c.fetchDaily(ctx, c.archiveURL, q, archiveFields)
	if err != nil {
		return nil, err
	}

	fetchedAt := c.now().UTC().Format(time.RFC3339)
	days := make([]sheets.WeatherDay, len(dates))

	for i, date := range dates {
		days[i] = sheets.WeatherDay{
			Date:           date,
			TempMax:        cols["temperature_2m_max"][i],
			TempMin:        cols["temperature_2m_min"][i],
			TempAvg:        cols["temperature_2m_mean"][i],
			Precipitation:  cols["precipitation_sum"][i],
			SolarRadiation: cols["shortwave_radiation_sum"][i],
			HumidityAvg:    cols["relative_humidity_2m_mean"][i],
			WindSpeedMax:   cols["wind_speed_10m_max"][i],
			Source:         Source,
			FetchedAt:      fetchedAt,
		}
	}

	c.logger.Info("fetched weather history",
		slog.String("from", from.Format(dateLayout)),
		slog.String("to", to.Format(dateLayout)),
		slog.Int("days", len(days)),
	)

	return days, nil
}
