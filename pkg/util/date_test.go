package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2022-03-18T21:00:00Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeZoneless(t *testing.T) {
	got, ok := ParseTime("2022-03-18 21:00:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2022, 3, 18, 21, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
	if _, ok := ParseTime("18/03/2022"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestScheduleDailySkipsWeekend(t *testing.T) {
	// 2022-03-18 is a Friday.
	start := time.Date(2022, 3, 18, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 3, 22, 21, 0, 0, 0, time.UTC)
	got := Schedule(start, end, 21, false, true)
	want := []time.Time{
		time.Date(2022, 3, 18, 21, 0, 0, 0, time.UTC),
		time.Date(2022, 3, 21, 21, 0, 0, 0, time.UTC),
		time.Date(2022, 3, 22, 21, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("tick %d = %v, want %v", i, got[i], want[i])
		}
	}
	if n := len(Schedule(start, end, 21, false, false)); n != 5 {
		t.Fatalf("expected 5 ticks with weekends, got %d", n)
	}
}

func TestScheduleEndIsInclusiveInstant(t *testing.T) {
	start := time.Date(2022, 3, 21, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 3, 22, 0, 0, 0, 0, time.UTC)

	daily := Schedule(start, end, 21, false, false)
	if len(daily) != 1 || !daily[0].Equal(time.Date(2022, 3, 21, 21, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily ticks = %v, want only 03-21 21:00", daily)
	}
	hourly := Schedule(start, end, 0, true, false)
	if len(hourly) != 25 || !hourly[24].Equal(end) {
		t.Fatalf("hourly ticks = %d, last %v", len(hourly), hourly[len(hourly)-1])
	}

	// a daily tick before start is left out as well
	late := time.Date(2022, 3, 21, 22, 0, 0, 0, time.UTC)
	if n := len(Schedule(late, end, 21, false, false)); n != 0 {
		t.Fatalf("expected no ticks, got %d", n)
	}
}

func TestScheduleHourly(t *testing.T) {
	start := time.Date(2022, 3, 21, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 3, 21, 5, 0, 0, 0, time.UTC)
	if n := len(Schedule(start, end, 0, true, true)); n != 6 {
		t.Fatalf("expected 6 hourly ticks, got %d", n)
	}
}

func TestSplitTrim(t *testing.T) {
	got := SplitTrim(" a:1, ,b:2 ", ",")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("unexpected %v", got)
	}
}
