package util

import (
	"strconv"
	"time"
)

// DateLayout is the day format used by the upstream candle endpoints.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, the day layout and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// LastClosedDate returns the day whose session the hourly chart should show.
// Before 06:30 local the previous day is used; the result is then moved off
// the weekend, and Mondays fall back to the preceding Friday.
func LastClosedDate(now time.Time) time.Time {
	day := now
	if now.Hour() < 6 || (now.Hour() == 6 && now.Minute() < 30) {
		day = day.AddDate(0, 0, -1)
	}

	switch day.Weekday() {
	case time.Sunday:
		day = day.AddDate(0, 0, -2)
	case time.Saturday:
		day = day.AddDate(0, 0, -1)
	case time.Monday:
		day = day.AddDate(0, 0, -3)
	}

	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location())
}

// HourlyWindow returns the [from, to] day strings for the hourly chart ending at the last closed day.
func HourlyWindow(now time.Time) (from, to string) {
	last := LastClosedDate(now)
	return last.AddDate(0, 0, -1).Format(DateLayout), last.Format(DateLayout)
}
