package weather

import (
	"fmt"
	"slices"
)

// Priority orders work advice; lower is more urgent.
type Priority int

// Advice priorities.
const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Advice is one gardening recommendation derived from the forecast.
type Advice struct {
	Emoji       string
	Title       string
	Description string
	Priority    Priority
}

// Thresholds for the advice rules. Temperatures in °C, wind in km/h,
// precipitation in mm and probability in percent.
const (
	frostTemp        = 2
	extremeHeatTemp  = 35
	hotDayTemp       = 30
	rainProbability  = 60
	rainAmount       = 5
	drySpellTemp     = 25
	strongWind       = 40
	calmProbability  = 20
	pleasantTempLow  = 15
	pleasantTempHigh = 30
	calmWind         = 30
)

func rainy(d ForecastDay) bool {
	return d.PrecipitationProbability > rainProbability || d.Precipitation > rainAmount
}

// Advise turns a forecast into work advice, most urgent first. Advice of
// equal priority keeps rule order. An empty forecast yields no advice.
func Advise(fc *Forecast) []Advice {
	if fc == nil || len(fc.Days) == 0 {
		return nil
	}

	var advice []Advice

	today := fc.Days[0]

	switch {
	case today.TempMin <= frostTemp:
		advice = append(advice, Advice{
			Emoji: "🥶", Title: "Frost warning",
			Description: fmt.Sprintf("Low of %g°C today. Frost is possible; cover tender plants.", today.TempMin),
			Priority:    PriorityHigh,
		})
	case len(fc.Days) > 1 && fc.Days[1].TempMin <= frostTemp:
		advice = append(advice, Advice{
			Emoji: "🥶", Title: "Frost possible tomorrow",
			Description: fmt.Sprintf("Low of %g°C tomorrow. Get frost protection ready.", fc.Days[1].TempMin),
			Priority:    PriorityHigh,
		})
	}

	switch {
	case today.TempMax >= extremeHeatTemp:
		advice = append(advice, Advice{
			Emoji: "🔥", Title: "Extreme heat",
			Description: fmt.Sprintf("High of %g°C. Avoid midday work and water in the morning and evening.", today.TempMax),
			Priority:    PriorityHigh,
		})
	case today.TempMax >= hotDayTemp:
		advice = append(advice, Advice{
			Emoji: "☀️", Title: "Hot day",
			Description: fmt.Sprintf("High of %g°C. Watch for wilting and water well in the morning.", today.TempMax),
			Priority:    PriorityMedium,
		})
	}

	rainyDays := 0
	for _, d := range fc.Days {
		if rainy(d) {
			rainyDays++
		}
	}

	switch {
	case rainy(today):
		advice = append(advice, Advice{
			Emoji: "🌧️", Title: "Rain expected, skip watering",
			Description: fmt.Sprintf("%g%% chance of rain today. No need to water.", today.PrecipitationProbability),
			Priority:    PriorityLow,
		})
	case rainyDays == 0 && today.TempMax > drySpellTemp:
		advice = append(advice, Advice{
			Emoji: "💧", Title: "Dry spell, keep watering",
			Description: "No rain in the forecast for the coming week. Water regularly.",
			Priority:    PriorityMedium,
		})
	}

	if today.WindSpeedMax > strongWind {
		advice = append(advice, Advice{
			Emoji: "💨", Title: "Strong wind",
			Description: fmt.Sprintf("Gusts up to %g km/h. Check stakes and secure netting.", today.WindSpeedMax),
			Priority:    PriorityHigh,
		})
	}

	if today.PrecipitationProbability < calmProbability &&
		today.TempMax >= pleasantTempLow && today.TempMax <= pleasantTempHigh &&
		today.WindSpeedMax < calmWind {
		advice = append(advice, Advice{
			Emoji: "🌿", Title: "Great day for garden work",
			Description: fmt.Sprintf("%g–%g°C with a %g%% chance of rain. Ideal for working outside.",
				today.TempMin, today.TempMax, today.PrecipitationProbability),
			Priority: PriorityLow,
		})
	}

	slices.SortStableFunc(advice, func(a, b Advice) int { return int(a.Priority) - int(b.Priority) })

	return advice
}

// CodeInfo maps a WMO weather interpretation code to an icon and label.
func CodeInfo(code int) (emoji, label string) {
	switch {
	case code < 0:
		return "🌤️", "Unknown"
	case code == 0:
		return "☀️", "Clear sky"
	case code <= 3:
		return "⛅", "Partly cloudy"
	case code <= 48:
		return "🌫️", "Fog"
	case code <= 55:
		return "🌦️", "Drizzle"
	case code <= 57:
		return "🌧️", "Freezing drizzle"
	case code <= 65:
		return "🌧️", "Rain"
	case code <= 67:
		return "🥶", "Freezing rain"
	case code <= 75:
		return "❄️", "Snow"
	case code <= 77:
		return "🌨️", "Snow grains"
	case code <= 82:
		return "⛈️", "Rain showers"
	case code <= 86:
		return "🌨️", "Snow showers"
	case code <= 99:
		return "⛈️", "Thunderstorm"
	default:
		return "🌤️", "Unknown"
	}
}
