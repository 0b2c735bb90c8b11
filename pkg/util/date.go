package util

import (
	"math"
	"strconv"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTime tries RFC3339, RFC3339Nano, a few naive layouts, a bare date and
// unix seconds. Naive values are read as UTC. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// DaysBetween returns the whole number of days elapsed from `from` to `to`,
// floored like a timedelta day component.
func DaysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// WeekdayIndex maps time.Weekday onto Monday=0 .. Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ISOWeek returns the ISO-8601 week number (1..53).
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
