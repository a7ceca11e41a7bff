// Package timeutil holds the timestamp and calendar-date helpers
// shared by the loaders, the pipeline, and the HTTP layer.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used for start_date and
// for every date bound. Dates in this form order lexically.
const DateLayout = "2006-01-02"

// timestampLayouts are tried in order by ParseTimestamp. They
// cover RFC 3339 and the space-separated forms produced by
// warehouse exports and spreadsheet tools.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp parses a start_time value. Timestamps without a
// zone are taken as UTC, and the original zone of zoned values is
// kept so that Date reports the calendar date as written.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Date returns the calendar date of t in its own location.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// IsValidDate checks that s is a well-formed YYYY-MM-DD string.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Format returns t as an RFC3339Nano string in UTC, or "" for the
// zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
