package util

import (
	"strconv"
	"time"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime tries RFC3339, zone-less ISO layouts, a plain date and unix
// seconds. Zone-less inputs are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// DateKey is the UTC calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func IsWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Schedule lists tick times t with start <= t <= end, both instants inclusive.
// Daily schedules place one tick per day at hour; hourly schedules tick every
// hour. Weekends are left out when skipWeekend is set.
func Schedule(start, end time.Time, hour int, hourly, skipWeekend bool) []time.Time {
	start = start.UTC()
	end = end.UTC()
	var out []time.Time
	if hourly {
		t := start.Truncate(time.Hour)
		if t.Before(start) {
			t = t.Add(time.Hour)
		}
		for ; !t.After(end); t = t.Add(time.Hour) {
			if skipWeekend && IsWeekend(t) {
				continue
			}
			out = append(out, t)
		}
		return out
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for ; !day.After(end); day = day.AddDate(0, 0, 1) {
		if skipWeekend && IsWeekend(day) {
			continue
		}
		t := day.Add(time.Duration(hour) * time.Hour)
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}
