package sheets

import (
	"context"
	"errors"
	"fmt"

	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/tonimelisma/niwalog/internal/gapi"
)

// ErrRowNotFound is returned by FindRowIndex when no row has the given id in
// its first column.
var ErrRowNotFound = errors.New("sheets: row not found")

// Value input and insert modes used for every write.
const (
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"

	// lastColumn bounds row clears; no diary sheet is wider.
	lastColumn = "Z"
)

// Client reads and writes one spreadsheet with one access token.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// New creates a Client for spreadsheetID authorized by token.
func New(ctx context.Context, cfg gapi.Config, token, spreadsheetID string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet ID not configured")
	}

	svc, err := gapi.Service(ctx, cfg, token, "sheets: creating service", sheetsapi.NewService)
	if err != nil {
		return nil, err
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// SpreadsheetID returns the spreadsheet this client is bound to.
func (c *Client) SpreadsheetID() string {
	return c.spreadsheetID
}

// Values returns every row of sheet as strings, header included. Trailing
// empty rows are not returned; cleared rows in the middle come back empty.
func (c *Client) Values(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, gapi.Wrap("sheets: reading "+sheet, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}

	return rows, nil
}

// Append adds rows after the last row of sheet's table.
func (c *Client) Append(ctx context.Context, sheet string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet, valueRange(rows)).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return gapi.Wrap("sheets: appending to "+sheet, err)
	}

	return nil
}

// UpdateRow overwrites the 1-based row rowIndex of sheet with row.
func (c *Client) UpdateRow(ctx context.Context, sheet string, rowIndex int, row []string) error {
	if rowIndex < 1 {
		return fmt.Errorf("sheets: invalid row index %d", rowIndex)
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, rowIndex, ColumnLetter(max(len(row), 1)), rowIndex)

	return c.write(ctx, rng, [][]string{row})
}

// WriteRows writes rows starting at the 1-based row startRow of sheet.
func (c *Client) WriteRows(ctx context.Context, sheet string, startRow int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	return c.write(ctx, fmt.Sprintf("%s!A%d", sheet, startRow), rows)
}

func (c *Client) write(ctx context.Context, rng string, rows [][]string) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return gapi.Wrap("sheets: writing "+rng, err)
	}

	return nil
}

// ClearRow empties the 1-based row rowIndex of sheet. The Sheets values API
// cannot delete rows, so the row stays as a blank line that readers skip.
func (c *Client) ClearRow(ctx context.Context, sheet string, rowIndex int) error {
	return c.clear(ctx, fmt.Sprintf("%s!A%d:%s%d", sheet, rowIndex, lastColumn, rowIndex))
}

// ClearFrom empties every row of sheet from the 1-based row fromRow down.
func (c *Client) ClearFrom(ctx context.Context, sheet string, fromRow int) error {
	return c.clear(ctx, fmt.Sprintf("%s!A%d:%s", sheet, fromRow, lastColumn))
}

func (c *Client) clear(ctx context.Context, rng string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return gapi.Wrap("sheets: clearing "+rng, err)
	}

	return nil
}

// FindRowIndex returns the 1-based index of the first row of sheet whose
// first cell is id.
func (c *Client) FindRowIndex(ctx context.Context, sheet, id string) (int, error) {
	rows, err := c.Values(ctx, sheet)
	if err != nil {
		return 0, err
	}

	for i, row := range rows {
		if len(row) > 0 && row[0] == id {
			return i + 1, nil
		}
	}

	return 0, fmt.Errorf("%w: %s %q", ErrRowNotFound, sheet, id)
}

// SheetTitles lists the titles of the spreadsheet's sheets.
func (c *Client) SheetTitles(ctx context.Context) ([]string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, gapi.Wrap("sheets: listing sheets", err)
	}

	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}

	return titles, nil
}

// AddSheets creates sheets with the given titles in one batch update.
func (c *Client) AddSheets(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

	reqs := make([]*sheetsapi.Request, 0, len(titles))
	for _, title := range titles {
		reqs = append(reqs, &sheetsapi.Request{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		})
	}

	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return gapi.Wrap("sheets: adding sheets", err)
	}

	return nil
}

func valueRange(rows [][]string) *sheetsapi.ValueRange {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	return &sheetsapi.ValueRange{Values: values}
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
