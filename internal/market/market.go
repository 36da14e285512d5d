package market

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "time"

    "gopkg.in/yaml.v3"
)

// Session is the exchange's current trading phase.
type Session string

const (
    Pre     Session = "PRE"
    Regular Session = "REGULAR"
    Post    Session = "POST"
    Closed  Session = "CLOSED"
)

// ErrBadCalendar reports a malformed exchange calendar.
var ErrBadCalendar = errors.New("market: bad calendar")

// WallTime is a clock-on-the-wall time of day in the exchange timezone.
type WallTime struct {
    Hour   int `json:"hour" yaml:"hour"`
    Minute int `json:"minute" yaml:"minute"`
}

func (w WallTime) minutes() int { return w.Hour*60 + w.Minute }

// Holiday is a fixed-date full-day market closure.
type Holiday struct {
    Month int `json:"month" yaml:"month"`
    Day   int `json:"day" yaml:"day"`
}

// Calendar describes one exchange's trading schedule. The zero value is not
// usable; construct via Default or Load.
type Calendar struct {
    Timezone string    `json:"timezone" yaml:"timezone"`
    PreOpen  WallTime  `json:"pre_open" yaml:"pre_open"`
    Open     WallTime  `json:"open" yaml:"open"`
    Close    WallTime  `json:"close" yaml:"close"`
    PostEnd  WallTime  `json:"post_end" yaml:"post_end"`
    Holidays []Holiday `json:"holidays" yaml:"holidays"`

    loc *time.Location
}

// Default returns the NYSE/Nasdaq schedule: pre-market from 04:00, regular
// 09:30-16:00, post-market until 20:00, Eastern time.
func Default() Calendar {
    c := Calendar{
        Timezone: "America/New_York",
        PreOpen:  WallTime{4, 0},
        Open:     WallTime{9, 30},
        Close:    WallTime{16, 0},
        PostEnd:  WallTime{20, 0},
        Holidays: []Holiday{{1, 1}, {7, 4}, {12, 25}},
    }
    c.loc, _ = time.LoadLocation(c.Timezone)
    return c
}

// Load reads a calendar from a YAML or JSON file and validates it.
// An empty path returns the default calendar.
func Load(path string) (Calendar, error) {
    if path == "" {
        return Default(), nil
    }
    b, err := os.ReadFile(path)
    if err != nil {
        return Calendar{}, fmt.Errorf("%w: read %s: %v", ErrBadCalendar, path, err)
    }
    cal := Default()
    // Accept YAML first, fall back to JSON.
    if err := yaml.Unmarshal(b, &cal); err != nil {
        if jerr := json.Unmarshal(b, &cal); jerr != nil {
            return Calendar{}, fmt.Errorf("%w: parse %s: %v", ErrBadCalendar, path, err)
        }
    }
    if err := cal.init(); err != nil {
        return Calendar{}, err
    }
    return cal, nil
}

func (c *Calendar) init() error {
    loc, err := time.LoadLocation(c.Timezone)
    if err != nil {
        return fmt.Errorf("%w: timezone %q: %v", ErrBadCalendar, c.Timezone, err)
    }
    if c.Open.minutes() >= c.Close.minutes() {
        return fmt.Errorf("%w: open %02d:%02d not before close %02d:%02d",
            ErrBadCalendar, c.Open.Hour, c.Open.Minute, c.Close.Hour, c.Close.Minute)
    }
    if c.PreOpen.minutes() > c.Open.minutes() || c.Close.minutes() > c.PostEnd.minutes() {
        return fmt.Errorf("%w: pre/post window does not bracket regular hours", ErrBadCalendar)
    }
    c.loc = loc
    return nil
}

// Location returns the exchange timezone.
func (c Calendar) Location() *time.Location {
    if c.loc != nil {
        return c.loc
    }
    loc, err := time.LoadLocation(c.Timezone)
    if err != nil {
        return time.UTC
    }
    return loc
}

func (c Calendar) isHoliday(t time.Time) bool {
    for _, h := range c.Holidays {
        if int(t.Month()) == h.Month && t.Day() == h.Day {
            return true
        }
    }
    return false
}

// Classify maps an instant to the trading session in effect at that moment.
func (c Calendar) Classify(t time.Time) Session {
    et := t.In(c.Location())
    if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
        return Closed
    }
    if c.isHoliday(et) {
        return Closed
    }
    m := et.Hour()*60 + et.Minute()
    switch {
    case m < c.PreOpen.minutes():
        return Closed
    case m < c.Open.minutes():
        return Pre
    case m < c.Close.minutes():
        return Regular
    case m < c.PostEnd.minutes():
        return Post
    default:
        return Closed
    }
}

// TradingDate returns the exchange-local calendar date for t, formatted
// 2006-01-02. It keys the post-close cache: a new date invalidates the
// previous day's cached closes.
func (c Calendar) TradingDate(t time.Time) string {
    return t.In(c.Location()).Format("2006-01-02")
}

// NextOpen returns the next regular-session open at or after t. Useful for
// callers that display "market opens in ..." status.
func (c Calendar) NextOpen(t time.Time) time.Time {
    et := t.In(c.Location())
    for i := 0; i < 14; i++ { // bounded scan; two weeks covers any holiday run
        day := et.AddDate(0, 0, i)
        open := time.Date(day.Year(), day.Month(), day.Day(), c.Open.Hour, c.Open.Minute, 0, 0, c.Location())
        if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday || c.isHoliday(day) {
            continue
        }
        if open.After(et) || open.Equal(et) {
            return open
        }
    }
    return time.Time{}
}
