package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnixAndDay(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}

	got, ok = ParseTime("2024-10-10")
	if !ok || got.Format(DateLayout) != "2024-10-10" {
		t.Fatalf("unexpected day %v", got)
	}
}

func TestLastClosedDate(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		// 2024-05-08 is a Wednesday
		{"weekday after open", time.Date(2024, 5, 8, 9, 0, 0, 0, la), "2024-05-08"},
		{"weekday before 06:30", time.Date(2024, 5, 8, 6, 29, 0, 0, la), "2024-05-07"},
		{"weekday at 06:30", time.Date(2024, 5, 8, 6, 30, 0, 0, la), "2024-05-08"},
		{"saturday", time.Date(2024, 5, 11, 12, 0, 0, 0, la), "2024-05-10"},
		{"sunday", time.Date(2024, 5, 12, 12, 0, 0, 0, la), "2024-05-10"},
		{"monday", time.Date(2024, 5, 13, 12, 0, 0, 0, la), "2024-05-10"},
		{"monday early is sunday", time.Date(2024, 5, 13, 5, 0, 0, 0, la), "2024-05-10"},
		{"tuesday early is monday", time.Date(2024, 5, 14, 5, 0, 0, 0, la), "2024-05-10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LastClosedDate(tc.now).Format(DateLayout)
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestHourlyWindow(t *testing.T) {
	now := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)
	from, to := HourlyWindow(now)
	if from != "2024-05-07" || to != "2024-05-08" {
		t.Fatalf("got %s..%s", from, to)
	}
}
