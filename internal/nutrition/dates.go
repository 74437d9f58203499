// ABOUTME: Calendar-day parsing and half-open UTC day ranges
// ABOUTME: All day arithmetic is in UTC; YYYY-MM-DD strings name whole UTC days

package nutrition

import (
	"strings"
	"time"
)

const (
	dayLayout = "2006-01-02"

	// isoLayout matches the millisecond ISO-8601 form used for timestamped
	// metric entry dates.
	isoLayout = "2006-01-02T15:04:05.000Z"

	day = 24 * time.Hour
)

// ParseDay parses a YYYY-MM-DD string as 00:00 UTC on that day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, invalidf("Invalid date %q: expected YYYY-MM-DD.", s)
	}
	return t, nil
}

// FormatDay renders t's UTC calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// startOfDay truncates t to 00:00 UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayRange is the half-open interval [From, To) covering whole UTC days.
type DayRange struct {
	From time.Time
	To   time.Time
}

// daysBetween returns the range from the start of first to the end of last,
// both given as YYYY-MM-DD. Empty strings fall back to the defaults.
func daysBetween(first, last, defaultFirst, defaultLast string) (DayRange, string, string, error) {
	if first == "" {
		first = defaultFirst
	}
	if last == "" {
		last = defaultLast
	}
	from, err := ParseDay(first)
	if err != nil {
		return DayRange{}, "", "", err
	}
	to, err := ParseDay(last)
	if err != nil {
		return DayRange{}, "", "", err
	}
	return DayRange{From: from, To: to.Add(day)}, first, last, nil
}

// Datetime layouts accepted for loggedAt. Layouts without an offset are UTC.
var loggedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// parseLoggedAt accepts ISO datetimes or a bare YYYY-MM-DD, which means noon
// UTC on that day.
func parseLoggedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(dayLayout) {
		d, err := ParseDay(s)
		if err != nil {
			return time.Time{}, err
		}
		return d.Add(12 * time.Hour), nil
	}
	for _, layout := range loggedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidf("Invalid loggedAt %q: expected an ISO datetime or YYYY-MM-DD.", s)
}
