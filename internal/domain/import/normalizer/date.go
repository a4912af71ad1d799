package normalizer

import (
	"strconv"
	"strings"
	"time"
)

// excelEpoch is the spreadsheet serial-date epoch. Serial 1 is 1899-12-31,
// but the inherited Lotus leap-year bug makes 1899-12-30 the working base.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serial numbers outside this window are not treated as dates; it covers
// roughly 1981 through 2063, wide enough for any statement we ingest.
const (
	minSerialDay = 30000
	maxSerialDay = 60000
)

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
}

// Date parses DD/MM/YYYY (two- or four-digit year), ISO YYYY-MM-DD, and
// numeric spreadsheet serial dates. A two-digit year means 20YY. Returns
// false on failure; callers drop the row, since an undatable record cannot
// be reconciled against anything.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// Timestamps like "15/03/2025 14:02" keep only the date part.
	if idx := strings.IndexAny(s, " T"); idx > 0 {
		s = s[:idx]
	}

	// Expand DD/MM/YY to 20YY before parsing: time.Parse's "06" layout
	// pivots years 69-99 into the 1900s, and no statement we ingest
	// predates 2000.
	if parts := strings.Split(s, "/"); len(parts) == 3 && len(parts[2]) == 2 {
		if t, err := time.Parse("2/1/2006", parts[0]+"/"+parts[1]+"/20"+parts[2]); err == nil {
			return t, true
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Spreadsheet serial day number.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		days := int(serial)
		if days >= minSerialDay && days <= maxSerialDay {
			return excelEpoch.AddDate(0, 0, days), true
		}
	}

	return time.Time{}, false
}

// OFXDate parses the YYYYMMDD prefix of an OFX DTPOSTED value, ignoring any
// time and timezone suffix.
func OFXDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LooksLikeDate reports whether a cell plausibly holds a date. Used by the
// spreadsheet parser to find the first data row when no header matched.
func LooksLikeDate(raw string) bool {
	_, ok := Date(raw)
	return ok
}
