package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncodeWeekdays stores a weekday set as "1,3,5".
func EncodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// DecodeWeekdays parses the EncodeWeekdays form. An empty string is an
// empty set.
func DecodeWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

// ParseWeekdayNames accepts "mon,wed,fri" style input from the CLI.
func ParseWeekdayNames(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	names := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
		"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	}
	var days []time.Weekday
	for _, p := range strings.Split(s, ",") {
		key := strings.ToLower(strings.TrimSpace(p))
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := names[key]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		days = append(days, d)
	}
	return days, nil
}
