package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/streakd/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "Local" {
		return time.Local, nil
	}
	if timezone == "" {
		return nil, fmt.Errorf("empty timezone")
	}
	return time.LoadLocation(timezone)
}

// ResolveLocation loads the user's zone, falling back to def when the name
// cannot be resolved. The returned bool reports whether the fallback was used.
func ResolveLocation(timezone string, def *time.Location) (*time.Location, bool) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		if def == nil {
			def = time.UTC
		}
		return def, true
	}
	return loc, false
}

// ParseTime parses a time string in the standard format (HH:MM).
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(constants.TimeFormat, timeStr)
}

// ParseTimeToMinutes parses a time string (HH:MM) and returns the number of minutes from midnight.
func ParseTimeToMinutes(timeStr string) (int, error) {
	t, err := ParseTime(timeStr)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// CombineDateAndTime combines a date string (YYYY-MM-DD) and time string (HH:MM)
// into a single time.Time in the specified timezone.
func CombineDateAndTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	date, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}

	timeOfDay, err := time.Parse(constants.TimeFormat, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %w", err)
	}

	return time.Date(
		date.Year(), date.Month(), date.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		loc,
	), nil
}

// Day truncates t to its calendar date in t's own location and returns it
// as a UTC midnight, which makes day arithmetic immune to DST shifts.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight.
func ParseDay(day string) (time.Time, error) {
	return time.Parse(constants.DateFormat, day)
}

// FormatDay formats a date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// DaysBetween returns the whole days from a to b (both UTC midnights).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// WeekStart returns the Monday of the ISO week containing day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ValidateTimeFormat checks if the string matches the standard time format.
func ValidateTimeFormat(timeStr string) bool {
	_, err := ParseTime(timeStr)
	return err == nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}
