package sheets

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// probeConcurrency caps concurrent header probes during Initialize.
const probeConcurrency = 3

// InitResult reports what Initialize changed.
type InitResult struct {
	CreatedSheets []string
	WroteHeaders  []string
}

// Initialize makes the spreadsheet usable by the diary: it creates any
// missing sheet and writes the header row into every empty one. Existing
// data is never touched, so running it again is a no-op.
func (c *Client) Initialize(ctx context.Context) (InitResult, error) {
	var res InitResult

	existing, err := c.SheetTitles(ctx)
	if err != nil {
		return res, err
	}

	// Titles typed in the Sheets UI can arrive decomposed.
	have := make(map[string]bool, len(existing))
	for _, title := range existing {
		have[norm.NFC.String(title)] = true
	}

	for _, h := range Headers {
		if !have[h.Sheet] {
			res.CreatedSheets = append(res.CreatedSheets, h.Sheet)
		}
	}

	if err := c.AddSheets(ctx, res.CreatedSheets); err != nil {
		return res, err
	}

	empty := make([]bool, len(Headers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i, h := range Headers {
		g.Go(func() error {
			rows, err := c.Values(gctx, h.Sheet)
			if err != nil {
				return err
			}

			empty[i] = len(rows) == 0

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	for i, h := range Headers {
		if !empty[i] {
			continue
		}

		if err := c.Append(ctx, h.Sheet, [][]string{h.Columns}); err != nil {
			return res, err
		}

		res.WroteHeaders = append(res.WroteHeaders, h.Sheet)
	}

	return res, nil
}
