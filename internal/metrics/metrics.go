// Package metrics holds the Prometheus collectors streakd exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Dispatch         *prometheus.CounterVec
	DispatchExhaust  *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	TimezoneFallback prometheus.Counter
	ConfigSkipped    *prometheus.CounterVec
	XPAwarded        *prometheus.CounterVec
	Unlocks          prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streakd_dispatch_total",
			Help: "Dispatch attempts by reminder kind and outcome.",
		}, []string{"kind", "outcome"}),
		DispatchExhaust: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streakd_dispatch_exhausted_total",
			Help: "Reminders that hit the delivery attempt limit.",
		}, []string{"kind"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streakd_tick_duration_seconds",
			Help:    "Wall time of one scheduling tick.",
			Buckets: prometheus.DefBuckets,
		}),
		TimezoneFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakd_timezone_fallback_total",
			Help: "Users evaluated in the default zone because their timezone failed to load.",
		}),
		ConfigSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streakd_config_skipped_total",
			Help: "Habits, reminders or achievements skipped for invalid configuration.",
		}, []string{"what"}),
		XPAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streakd_xp_awarded_total",
			Help: "XP granted by event kind.",
		}, []string{"event"}),
		Unlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streakd_achievements_unlocked_total",
			Help: "Achievement unlocks.",
		}),
	}
	m.registry.MustRegister(
		m.Dispatch,
		m.DispatchExhaust,
		m.TickDuration,
		m.TimezoneFallback,
		m.ConfigSkipped,
		m.XPAwarded,
		m.Unlocks,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveDispatch(kind, outcome string) {
	if m == nil {
		return
	}
	m.Dispatch.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveExhausted(kind string) {
	if m == nil {
		return
	}
	m.DispatchExhaust.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(seconds)
}

func (m *Metrics) ObserveTimezoneFallback() {
	if m == nil {
		return
	}
	m.TimezoneFallback.Inc()
}

func (m *Metrics) ObserveSkipped(what string) {
	if m == nil {
		return
	}
	m.ConfigSkipped.WithLabelValues(what).Inc()
}

func (m *Metrics) ObserveXP(event string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.XPAwarded.WithLabelValues(event).Add(float64(amount))
}

func (m *Metrics) ObserveUnlock() {
	if m == nil {
		return
	}
	m.Unlocks.Inc()
}
