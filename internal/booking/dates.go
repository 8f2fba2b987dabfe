package booking

import (
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// WeekDays is the number of bookable days shown per week (Monday to
// Saturday).
const WeekDays = 6

// ParseDate parses an ISO calendar date in loc.  A malformed value is an
// ErrInvalidInput.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, newError(ErrInvalidInput, "date is required")
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, newError(ErrInvalidInput, "date %q is not YYYY-MM-DD", s)
	}
	return t, nil
}

// DayOf returns midnight of the calendar day containing t, as seen in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayKey formats the calendar day of t without converting zones.
func DayKey(t time.Time) string { return t.Format(DateLayout) }

// SameDay reports whether a and b carry the same year, month and day.
func SameDay(a, b time.Time) bool { return DayKey(a) == DayKey(b) }

// WeekOf returns the Monday that starts the week containing day.  Weeks
// start on Monday, so a Sunday belongs to the week before it.
func WeekOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
