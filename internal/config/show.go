package config

import (
	"fmt"
	"io"
)

// redacted replaces secrets in rendered output.
const redacted = "(set)"

// RenderEffective writes the resolved configuration as an annotated summary
// to w. It powers "config show": the values after every override layer.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n", r.Path)
	ew.printf("# Data directory: %s\n\n", r.DataDir)

	g := r.Google
	ew.printf("[google]\n")
	ew.printf("  client_id      = %q\n", g.ClientID)
	ew.printf("  client_secret  = %q\n", secret(g.ClientSecret))
	ew.printf("  spreadsheet_id = %q\n", g.SpreadsheetID)
	ew.printf("  folder_id      = %q\n\n", g.FolderID)

	l := r.Location
	ew.printf("[location]\n")

	if l.Set() {
		ew.printf("  latitude  = %g\n", *l.Latitude)
		ew.printf("  longitude = %g\n", *l.Longitude)
	} else {
		ew.printf("  # coordinates unset; the diary's saved location is used\n")
	}

	ew.printf("  timezone  = %q\n\n", l.Timezone)

	ew.printf("[analytics]\n")
	ew.printf("  gdd_base_temp = %g\n\n", r.Analytics.GDDBaseTemp)

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.Logging.LogLevel)
	ew.printf("  log_format = %q\n\n", r.Logging.LogFormat)

	ew.printf("[network]\n")
	ew.printf("  timeout    = %q\n", r.Network.Timeout)
	ew.printf("  user_agent = %q\n\n", r.Network.UserAgent)

	ew.printf("[soil]\n")
	ew.printf("  watch_dir  = %q\n", r.Soil.WatchDir)
	ew.printf("  planter_id = %q\n", r.Soil.PlanterID)
	ew.printf("  debounce   = %q\n", r.Soil.Debounce)

	return ew.err
}

func secret(s string) string {
	if s == "" {
		return ""
	}

	return redacted
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
