package utils

import (
	"testing"
	"time"
)

func TestResolveLocation(t *testing.T) {
	def := time.FixedZone("DEF", 3600)

	loc, fellBack := ResolveLocation("Europe/Madrid", def)
	if fellBack {
		t.Fatal("valid zone should not fall back")
	}
	if loc.String() != "Europe/Madrid" {
		t.Errorf("expected Europe/Madrid, got %s", loc)
	}

	for _, tz := range []string{"", "Mars/Olympus", "not a zone"} {
		loc, fellBack = ResolveLocation(tz, def)
		if !fellBack {
			t.Errorf("%q: expected fallback", tz)
		}
		if loc != def {
			t.Errorf("%q: expected default location, got %s", tz, loc)
		}
	}

	loc, fellBack = ResolveLocation("nope", nil)
	if !fellBack || loc != time.UTC {
		t.Errorf("nil default should fall back to UTC, got %s", loc)
	}
}

func TestDayArithmetic(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 00:30 local on the DST switch day is still the 29th locally.
	local := time.Date(2026, 3, 29, 0, 30, 0, 0, madrid)
	day := Day(local)
	if got := FormatDay(day); got != "2026-03-29" {
		t.Errorf("Day() = %s", got)
	}

	from, _ := ParseDay("2026-03-27")
	to, _ := ParseDay("2026-03-31")
	if got := DaysBetween(from, to); got != 4 {
		t.Errorf("DaysBetween() = %d, want 4", got)
	}
}

func TestWeekStart(t *testing.T) {
	tests := map[string]string{
		"2026-10-12": "2026-10-12", // Monday
		"2026-10-14": "2026-10-12",
		"2026-10-18": "2026-10-12", // Sunday
		"2026-10-19": "2026-10-19",
	}
	for in, want := range tests {
		day, err := ParseDay(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := FormatDay(WeekStart(day)); got != want {
			t.Errorf("WeekStart(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestParseTimeToMinutes(t *testing.T) {
	m, err := ParseTimeToMinutes("20:05")
	if err != nil || m != 20*60+5 {
		t.Errorf("ParseTimeToMinutes() = %d, %v", m, err)
	}
	if _, err := ParseTimeToMinutes("25:00"); err == nil {
		t.Error("expected error for invalid time")
	}
	if ValidateTimeFormat("7pm") {
		t.Error("7pm should not validate")
	}
}
