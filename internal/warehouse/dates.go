package warehouse

import (
	"strings"
	"time"

	"smartsales/internal/table"
)

// ISODate is the warehouse date format
const ISODate = "2006-01-02"

var dateLayouts = []string{
	ISODate,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1-2-2006",
	"01-02-2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"20060102",
}

// ParseDate parses the date formats found in the raw extracts. Month-first
// is preferred for ambiguous slash dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// normalizeDate renders v as YYYY-MM-DD. Null input yields null with ok set;
// ok is false only for a non-null value that is not a date.
func normalizeDate(v table.Value) (table.Value, bool) {
	if v.IsNull() {
		return v, true
	}
	ts, ok := ParseDate(v.String())
	if !ok {
		return v, false
	}
	return table.Str(ts.Format(ISODate)), true
}
