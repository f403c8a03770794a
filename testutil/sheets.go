package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Sheets is an in-process fake of the Google Sheets v4 REST API holding one
// spreadsheet. Cells are stored as strings. Requests must carry the current
// bearer token (see SetToken) or they get a 401.
type Sheets struct {
	URL           string
	SpreadsheetID string

	mu     sync.Mutex
	token  string
	titles []string
	data   map[string][][]string
	calls  map[string]int
	fail   map[string]int
}

// NewSheets starts a fake Sheets API accepting token. The server is closed
// when the test ends.
func NewSheets(t testing.TB, token string) *Sheets {
	t.Helper()

	f := &Sheets{
		SpreadsheetID: "sheet-test",
		token:         token,
		data:          map[string][][]string{},
		calls:         map[string]int{},
		fail:          map[string]int{},
	}

	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	f.URL = srv.URL + "/"

	return f
}

// SetToken changes the bearer token the fake accepts. Requests with any
// other token are rejected with 401 from then on.
func (f *Sheets) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.token = token
}

// AddSheet creates a sheet with the given rows.
func (f *Sheets) AddSheet(title string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[title]; !ok {
		f.titles = append(f.titles, title)
	}

	f.data[title] = cloneRows(rows)
}

// Rows returns a copy of a sheet's rows, nil when the sheet is missing.
func (f *Sheets) Rows(title string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return cloneRows(f.data[title])
}

// Titles returns the sheet titles in creation order.
func (f *Sheets) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.titles...)
}

// Calls returns how many requests hit kind ("get", "values.get",
// "values.append", "values.update", "values.clear", "batchUpdate").
func (f *Sheets) Calls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[kind]
}

// FailNext makes the next n requests of kind fail with status.
func (f *Sheets) FailNext(kind string, status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fail[kind] = n
	f.fail[kind+"#status"] = status
}

var a1Pattern = regexp.MustCompile(`^[A-Z]+(\d+)?(?::[A-Z]+(\d+)?)?$`)

// parseRange splits "sheet!A2:L2" into the sheet title and 1-based start and
// end rows (0 when open).
func parseRange(r string) (sheet string, start, end int) {
	sheet, cells, ok := strings.Cut(r, "!")
	sheet = strings.Trim(sheet, "'")

	if !ok {
		return sheet, 1, 0
	}

	m := a1Pattern.FindStringSubmatch(cells)
	if m == nil {
		return sheet, 1, 0
	}

	start = 1
	if m[1] != "" {
		start, _ = strconv.Atoi(m[1])
	}

	if m[2] != "" {
		end, _ = strconv.Atoi(m[2])
	}

	return sheet, start, end
}

func (f *Sheets) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		writeGoogleError(w, http.StatusUnauthorized, "Request had invalid authentication credentials.")
		return
	}

	prefix := "/v4/spreadsheets/" + f.SpreadsheetID
	path, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok {
		writeGoogleError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	kind := f.kind(r.Method, path)
	f.calls[kind]++

	if f.fail[kind] > 0 {
		f.fail[kind]--
		writeGoogleError(w, f.fail[kind+"#status"], "injected failure")

		return
	}

	switch kind {
	case "get":
		f.serveGet(w)
	case "batchUpdate":
		f.serveBatchUpdate(w, r)
	case "values.get":
		f.serveValuesGet(w, strings.TrimPrefix(path, "/values/"))
	case "values.append":
		f.serveValuesAppend(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "/values/"), ":append"))
	case "values.update":
		f.serveValuesUpdate(w, r, strings.TrimPrefix(path, "/values/"))
	case "values.clear":
		f.serveValuesClear(w, strings.TrimSuffix(strings.TrimPrefix(path, "/values/"), ":clear"))
	default:
		writeGoogleError(w, http.StatusNotFound, "unsupported call "+r.Method+" "+r.URL.Path)
	}
}

func (f *Sheets) kind(method, path string) string {
	switch {
	case path == "" && method == http.MethodGet:
		return "get"
	case path == ":batchUpdate":
		return "batchUpdate"
	case strings.HasSuffix(path, ":append"):
		return "values.append"
	case strings.HasSuffix(path, ":clear"):
		return "values.clear"
	case strings.HasPrefix(path, "/values/") && method == http.MethodPut:
		return "values.update"
	case strings.HasPrefix(path, "/values/"):
		return "values.get"
	default:
		return "unknown"
	}
}

func (f *Sheets) serveGet(w http.ResponseWriter) {
	type props struct {
		SheetID int    `json:"sheetId"`
		Title   string `json:"title"`
	}

	type sheet struct {
		Properties props `json:"properties"`
	}

	resp := struct {
		SpreadsheetID string  `json:"spreadsheetId"`
		Sheets        []sheet `json:"sheets"`
	}{SpreadsheetID: f.SpreadsheetID}

	for i, title := range f.titles {
		resp.Sheets = append(resp.Sheets, sheet{Properties: props{SheetID: i, Title: title}})
	}

	writeJSON(w, resp)
}

func (f *Sheets) serveBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requests []struct {
			AddSheet *struct {
				Properties struct {
					Title string `json:"title"`
				} `json:"properties"`
			} `json:"addSheet"`
		} `json:"requests"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, rq := range req.Requests {
		if rq.AddSheet == nil {
			continue
		}

		title := rq.AddSheet.Properties.Title
		if _, exists := f.data[title]; exists {
			writeGoogleError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid requests[0].addSheet: A sheet with the name %q already exists.", title))

			return
		}

		f.titles = append(f.titles, title)
		f.data[title] = nil
	}

	writeJSON(w, map[string]any{"spreadsheetId": f.SpreadsheetID})
}

func (f *Sheets) serveValuesGet(w http.ResponseWriter, rng string) {
	sheet, _, _ := parseRange(rng)

	rows, ok := f.data[sheet]
	if !ok {
		writeGoogleError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	// The real API trims trailing empty rows and omits "values" when empty.
	last := len(rows)
	for last > 0 && len(rows[last-1]) == 0 {
		last--
	}

	resp := map[string]any{"range": rng, "majorDimension": "ROWS"}
	if last > 0 {
		values := make([][]string, last)
		for i := range values {
			values[i] = append([]string{}, rows[i]...)
		}

		resp["values"] = values
	}

	writeJSON(w, resp)
}

func decodeValues(r *http.Request) ([][]string, error) {
	var body struct {
		Values [][]any `json:"values"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([][]string, len(body.Values))
	for i, row := range body.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}

		out[i] = trimRow(out[i])
	}

	return out, nil
}

func (f *Sheets) serveValuesAppend(w http.ResponseWriter, r *http.Request, rng string) {
	sheet, _, _ := parseRange(rng)

	if _, ok := f.data[sheet]; !ok {
		writeGoogleError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	rows, err := decodeValues(r)
	if err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.data[sheet] = append(f.data[sheet], rows...)

	writeJSON(w, map[string]any{"spreadsheetId": f.SpreadsheetID, "tableRange": sheet})
}

func (f *Sheets) serveValuesUpdate(w http.ResponseWriter, r *http.Request, rng string) {
	sheet, start, _ := parseRange(rng)

	if _, ok := f.data[sheet]; !ok {
		writeGoogleError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	rows, err := decodeValues(r)
	if err != nil {
		writeGoogleError(w, http.StatusBadRequest, err.Error())
		return
	}

	for i, row := range rows {
		idx := start - 1 + i
		for len(f.data[sheet]) <= idx {
			f.data[sheet] = append(f.data[sheet], nil)
		}

		f.data[sheet][idx] = row
	}

	writeJSON(w, map[string]any{"spreadsheetId": f.SpreadsheetID, "updatedRange": rng})
}

func (f *Sheets) serveValuesClear(w http.ResponseWriter, rng string) {
	sheet, start, end := parseRange(rng)

	rows, ok := f.data[sheet]
	if !ok {
		writeGoogleError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	if end == 0 || end > len(rows) {
		end = len(rows)
	}

	for i := start - 1; i < end; i++ {
		rows[i] = nil
	}

	writeJSON(w, map[string]any{"spreadsheetId": f.SpreadsheetID, "clearedRange": rng})
}

func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}

	return row[:n]
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}

	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}

	return out
}

// writeGoogleError writes the JSON error envelope Google APIs use, which
// google.golang.org/api decodes into *googleapi.Error.
func writeGoogleError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
