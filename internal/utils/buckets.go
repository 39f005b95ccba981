package utils

import (
	"time"

	"github.com/julianstephens/anchor/internal/constants"
)

// DayKey returns the local calendar date of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// WeekStartKey returns the day key of the Sunday that starts t's week.
func WeekStartKey(t time.Time) string {
	return DayKey(StartOfWeek(t))
}

// MonthKey returns t's month bucket as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(constants.MonthFormat)
}

// YearKey returns t's year bucket as YYYY.
func YearKey(t time.Time) string {
	return t.Format(constants.YearFormat)
}

// StartOfDay returns local midnight of t's calendar date, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns local midnight of the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	return AddDays(d, -int(d.Weekday()))
}

// AddDays moves t by n calendar days, keeping the wall-clock time across DST changes.
func AddDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a).
// Only the local date fields are compared, so DST transitions never produce fractional days.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// WeeksBetween returns the number of whole weeks between the weeks containing a and b.
func WeeksBetween(a, b time.Time) int {
	return DaysBetween(StartOfWeek(a), StartOfWeek(b)) / 7
}

// LastNDayKeys returns the n day keys ending at today, oldest first.
func LastNDayKeys(today time.Time, n int) []string {
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, DayKey(AddDays(today, -i)))
	}
	return keys
}

// ParseDayKey parses a YYYY-MM-DD key as local midnight in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	return ParseDateInLocation(key, loc)
}

// ShiftDayKey returns the day key n days away from key. Invalid keys are returned unchanged.
func ShiftDayKey(key string, n int) string {
	t, err := time.Parse(constants.DateFormat, key)
	if err != nil {
		return key
	}
	return DayKey(AddDays(t, n))
}

// DayKeysBetween returns the whole days between two day keys, or false if either is invalid.
func DayKeysBetween(from, to string) (int, bool) {
	a, err := time.Parse(constants.DateFormat, from)
	if err != nil {
		return 0, false
	}
	b, err := time.Parse(constants.DateFormat, to)
	if err != nil {
		return 0, false
	}
	return DaysBetween(a, b), true
}
