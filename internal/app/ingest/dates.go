package ingest

import (
	"strings"
	"time"
)

// dateLayouts is the parse chain, in priority order: ISO-8601 with time,
// vendor slash-dates, the ticketing-system pattern, dash dates, then bare
// dates as a generic fallback.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2/Jan/06 3:04 PM",
	"02/Jan/06 3:04 PM",
	"2-Jan-2006",
	"02-Jan-2006",
	"2006/01/02",
	"2006-01-02",
}

// ParseDate parses a vendor-supplied date string. Returns nil when every
// layout fails; an unparseable date is never a row-fatal error.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// UTC-suffixed console exports: "2025/08/27 02:29:55 UTC".
	if trimmed, ok := strings.CutSuffix(s, " UTC"); ok {
		if t, err := time.ParseInLocation("2006/01/02 15:04:05", trimmed, time.UTC); err == nil {
			return &t
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// DayBucket truncates a timestamp to its day component in UTC.
func DayBucket(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
