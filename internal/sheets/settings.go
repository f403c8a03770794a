package sheets

import "context"

// Setting keys stored in the settings sheet.
const (
	SettingLatitude      = "latitude"
	SettingLongitude     = "longitude"
	SettingTimezone      = "timezone"
	SettingOwnerEmail    = "owner_email"
	SettingSharedEmails  = "shared_emails"
	SettingSpreadsheetID = "spreadsheet_id"
	SettingDriveFolderID = "drive_folder_id"
)

// ParseSettings decodes settings rows (header skipped) into a key/value map.
// Later rows win when a key repeats.
func ParseSettings(rows [][]string) map[string]string {
	settings := map[string]string{}

	for _, row := range Records(rows, func(r []string) []string { return r }) {
		value := ""
		if len(row) > 1 {
			value = row[1]
		}

		settings[row[0]] = value
	}

	return settings
}

// ReadSettings returns the settings sheet as a key/value map.
func (c *Client) ReadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := c.Values(ctx, Settings)
	if err != nil {
		return nil, err
	}

	return ParseSettings(rows), nil
}

// PutSetting sets key to value, updating the key's row if present and
// appending one otherwise.
func (c *Client) PutSetting(ctx context.Context, key, value string) error {
	rows, err := c.Values(ctx, Settings)
	if err != nil {
		return err
	}

	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] != key {
			continue
		}

		return c.UpdateRow(ctx, Settings, i+1, []string{key, value})
	}

	return c.Append(ctx, Settings, [][]string{{key, value}})
}
