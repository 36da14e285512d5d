package market

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

// et builds an instant at the given Eastern wall-clock time on a fixed
// Tuesday (2025-01-07).
func et(t *testing.T, hour, minute int) time.Time {
    t.Helper()
    loc, err := time.LoadLocation("America/New_York")
    if err != nil { t.Fatalf("load location: %v", err) }
    return time.Date(2025, 1, 7, hour, minute, 0, 0, loc)
}

func TestClassify_SessionBoundaries(t *testing.T) {
    cal := Default()
    cases := []struct {
        hour, minute int
        want         Session
    }{
        {3, 59, Closed},
        {4, 0, Pre},
        {9, 29, Pre},
        {9, 30, Regular},
        {15, 59, Regular},
        {16, 0, Post},
        {19, 59, Post},
        {20, 0, Closed},
        {23, 30, Closed},
    }
    for _, c := range cases {
        got := cal.Classify(et(t, c.hour, c.minute))
        if got != c.want {
            t.Fatalf("%02d:%02d ET: want %s, got %s", c.hour, c.minute, c.want, got)
        }
    }
}

func TestClassify_WeekendIsClosed(t *testing.T) {
    cal := Default()
    loc := cal.Location()
    sat := time.Date(2025, 1, 4, 12, 0, 0, 0, loc) // Saturday midday
    sun := time.Date(2025, 1, 5, 12, 0, 0, 0, loc)
    if got := cal.Classify(sat); got != Closed {
        t.Fatalf("saturday: want CLOSED, got %s", got)
    }
    if got := cal.Classify(sun); got != Closed {
        t.Fatalf("sunday: want CLOSED, got %s", got)
    }
}

func TestClassify_HolidayIsClosed(t *testing.T) {
    cal := Default()
    loc := cal.Location()
    jul4 := time.Date(2025, 7, 4, 12, 0, 0, 0, loc) // Friday, Independence Day
    if got := cal.Classify(jul4); got != Closed {
        t.Fatalf("july 4: want CLOSED, got %s", got)
    }
}

func TestClassify_TimezoneConversion(t *testing.T) {
    cal := Default()
    // 15:00 UTC is 10:00 ET in January: regular session.
    utc := time.Date(2025, 1, 7, 15, 0, 0, 0, time.UTC)
    if got := cal.Classify(utc); got != Regular {
        t.Fatalf("15:00 UTC: want REGULAR, got %s", got)
    }
}

func TestTradingDate_UsesExchangeLocalDate(t *testing.T) {
    cal := Default()
    // 02:00 UTC on Jan 8 is still Jan 7 in New York.
    late := time.Date(2025, 1, 8, 2, 0, 0, 0, time.UTC)
    if got := cal.TradingDate(late); got != "2025-01-07" {
        t.Fatalf("want 2025-01-07, got %s", got)
    }
}

func TestNextOpen_SkipsWeekend(t *testing.T) {
    cal := Default()
    loc := cal.Location()
    fridayEvening := time.Date(2025, 1, 3, 18, 0, 0, 0, loc)
    next := cal.NextOpen(fridayEvening)
    if next.Weekday() != time.Monday || next.Hour() != 9 || next.Minute() != 30 {
        t.Fatalf("want Monday 09:30, got %v", next)
    }
}

func TestLoad_YAMLCalendar(t *testing.T) {
    path := filepath.Join(t.TempDir(), "calendar.yaml")
    content := `
timezone: America/New_York
open: {hour: 10, minute: 0}
close: {hour: 15, minute: 0}
pre_open: {hour: 8, minute: 0}
post_end: {hour: 17, minute: 0}
holidays:
  - {month: 12, day: 26}
`
    if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    cal, err := Load(path)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if got := cal.Classify(et(t, 9, 0)); got != Pre {
        t.Fatalf("09:00 with 10:00 open: want PRE, got %s", got)
    }
    boxing := time.Date(2025, 12, 26, 12, 0, 0, 0, cal.Location())
    if got := cal.Classify(boxing); got != Closed {
        t.Fatalf("custom holiday: want CLOSED, got %s", got)
    }
}

func TestLoad_BadCalendarFails(t *testing.T) {
    dir := t.TempDir()

    badTZ := filepath.Join(dir, "tz.yaml")
    os.WriteFile(badTZ, []byte("timezone: Not/AZone\n"), 0o644)
    if _, err := Load(badTZ); err == nil {
        t.Fatal("bad timezone: want error")
    }

    inverted := filepath.Join(dir, "inverted.yaml")
    os.WriteFile(inverted, []byte(`
timezone: America/New_York
open: {hour: 16, minute: 0}
close: {hour: 9, minute: 30}
`), 0o644)
    if _, err := Load(inverted); err == nil {
        t.Fatal("close before open: want error")
    }
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
    cal, err := Load("")
    if err != nil {
        t.Fatalf("load default: %v", err)
    }
    if cal.Timezone != "America/New_York" {
        t.Fatalf("unexpected timezone %q", cal.Timezone)
    }
}
