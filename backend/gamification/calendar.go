package gamification

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is used when the configured reference timezone cannot be loaded.
const DefaultTimezone = "America/New_York"

// DateKeyLayout is the time layout of a DateKey.
const DateKeyLayout = "2006-01-02"

// DateKey is a calendar day (YYYY-MM-DD) in the reference timezone.
// The empty key means "absent".
type DateKey string

func (k DateKey) String() string {
	return string(k)
}

func (k DateKey) IsZero() bool {
	return k == ""
}

// Valid reports whether k is a well-formed calendar date.
func (k DateKey) Valid() bool {
	_, ok := parseDateKey(k)
	return ok
}

func parseDateKey(k DateKey) (time.Time, bool) {
	s := string(k)
	if s == "" || strings.TrimSpace(s) != s {
		return time.Time{}, false
	}
	t, err := time.Parse(DateKeyLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clock is the source of the current instant.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Calendar turns instants into DateKeys and does day arithmetic on them in
// one named timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named timezone. An unknown name falls back to
// DefaultTimezone and logs a warning; it never fails.
func NewCalendar(timezone string, logger *slog.Logger) *Calendar {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(timezone)
	if err == nil && timezone != "" {
		return &Calendar{loc: loc}
	}

	logger.Warn("Unknown reference timezone, using default",
		slog.String("type", "sys"),
		slog.String("timezone", timezone),
		slog.String("fallback", DefaultTimezone),
		slog.Any("error", err),
	)
	return &Calendar{loc: defaultLocation()}
}

// CalendarIn returns a calendar for an already loaded location.
func CalendarIn(loc *time.Location) *Calendar {
	if loc == nil {
		loc = defaultLocation()
	}
	return &Calendar{loc: loc}
}

var (
	defaultLocOnce sync.Once
	defaultLoc     *time.Location
)

func defaultLocation() *time.Location {
	defaultLocOnce.Do(func() {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			// tzdata is embedded; only reachable with a broken build
			loc = time.UTC
		}
		defaultLoc = loc
	})
	return defaultLoc
}

var (
	defaultCalOnce sync.Once
	defaultCal     *Calendar
)

// DefaultCalendar is the calendar of DefaultTimezone.
func DefaultCalendar() *Calendar {
	defaultCalOnce.Do(func() {
		defaultCal = CalendarIn(defaultLocation())
	})
	return defaultCal
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today renders now as a DateKey in the calendar's timezone.
func (c *Calendar) Today(now time.Time) DateKey {
	return DateKey(now.In(c.loc).Format(DateKeyLayout))
}

// noon anchors a key at 12:00 local time, which exists on every DST
// transition day.
func (c *Calendar) noon(k DateKey) (time.Time, bool) {
	d, ok := parseDateKey(k)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, c.loc), true
}

// DaysBetween is the signed number of calendar days from start to end.
// It is 0 when either key is absent or malformed.
func (c *Calendar) DaysBetween(start, end DateKey) int {
	s, ok := c.noon(start)
	if !ok {
		return 0
	}
	e, ok := c.noon(end)
	if !ok {
		return 0
	}
	// 23h and 25h days round to one
	return int(math.Round(e.Sub(s).Hours() / 24))
}

// IsConsecutiveDay reports whether current is exactly one day after previous.
func (c *Calendar) IsConsecutiveDay(previous, current DateKey) bool {
	if _, ok := c.noon(previous); !ok {
		return false
	}
	if _, ok := c.noon(current); !ok {
		return false
	}
	return c.DaysBetween(previous, current) == 1
}

// CurrentDateKey renders the current instant as a DateKey in timezone.
func CurrentDateKey(timezone string) DateKey {
	return NewCalendar(timezone, nil).Today(time.Now())
}

func DaysBetween(start, end DateKey) int {
	return DefaultCalendar().DaysBetween(start, end)
}

func IsConsecutiveDay(previous, current DateKey) bool {
	return DefaultCalendar().IsConsecutiveDay(previous, current)
}
