// Package sheets is the spreadsheet backend: range reads and writes against
// the diary spreadsheet through the Google Sheets v4 API, spreadsheet
// initialization, and the row codecs for each diary table.
//
// A Client is bound to one access token. Callers build a new Client per
// attempt inside an auth.Operation so a refreshed token is picked up.
package sheets

// Sheet names in the diary spreadsheet.
const (
	Planters       = "planters"
	ActivityLogs   = "activity_logs"
	WeatherData    = "weather_data"
	SoilSensorData = "soil_sensor_data"
	Settings       = "settings"
	HarvestSummary = "harvest_summary"
)

// Headers is the header row written into each sheet on initialization, in
// sheet creation order.
var Headers = []struct {
	Sheet   string
	Columns []string
}{
	{Planters, []string{
		"id", "name", "crop_name", "crop_variety", "location",
		"start_date", "end_date", "status", "image_folder_id", "memo",
		"created_at", "updated_at",
	}},
	{ActivityLogs, []string{
		"id", "planter_id", "user_name", "activity_type", "activity_date",
		"memo", "quantity", "unit", "photo_file_ids", "created_at",
	}},
	{WeatherData, []string{
		"date", "temp_max", "temp_min", "temp_avg", "precipitation",
		"solar_radiation", "humidity_avg", "wind_speed_max", "source", "fetched_at",
	}},
	{SoilSensorData, []string{
		"id", "planter_id", "measured_at", "vwc", "soil_temp",
		"ec_bulk", "ec_pore", "created_at",
	}},
	{Settings, []string{"key", "value"}},
	{HarvestSummary, []string{
		"year", "month", "planter_id", "crop_name",
		"total_quantity", "unit", "count",
	}},
}

// ColumnLetter converts a 1-based column number to A1 notation letters:
// 1 is A, 26 is Z, 27 is AA. Returns "" for n < 1.
func ColumnLetter(n int) string {
	var letters []byte

	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}

	return string(letters)
}
