package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDispatch("evening", "delivered")
	m.ObserveExhausted("evening")
	m.ObserveTick(0.2)
	m.ObserveTimezoneFallback()
	m.ObserveSkipped("habit")
	m.ObserveXP("habit_completed", 10)
	m.ObserveUnlock()
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveDispatch("evening", "delivered")
	m.ObserveDispatch("evening", "delivered")
	m.ObserveDispatch("night", "already_claimed")
	m.ObserveXP("habit_completed", 15)
	m.ObserveXP("habit_completed", 0)
	m.ObserveUnlock()

	body := scrape(t, m)
	for _, want := range []string{
		`streakd_dispatch_total{kind="evening",outcome="delivered"} 2`,
		`streakd_dispatch_total{kind="night",outcome="already_claimed"} 1`,
		`streakd_xp_awarded_total{event="habit_completed"} 15`,
		"streakd_achievements_unlocked_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}
