// Package metrics содержит Prometheus-метрики сервиса олимпиады.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "olympiad"

// Metrics — набор метрик ядра. Nil-receiver безопасен: все методы
// проверяют m == nil, чтобы тесты могли не заводить registry.
type Metrics struct {
	registry *prometheus.Registry

	rolloversTotal    prometheus.Counter
	matchesRecorded   prometheus.Counter
	weeklyGrantsTotal prometheus.Counter
	persistenceErrors prometheus.Counter
	drainTimeouts     prometheus.Counter

	noblesRegistered prometheus.Gauge
	compOpen         prometheus.Gauge
	currentCycle     prometheus.Gauge

	drainSeconds prometheus.Histogram
}

// New создаёт метрики на собственном registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rolloversTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollovers_total",
			Help:      "Completed cycle rollovers.",
		}),
		matchesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_recorded_total",
			Help:      "Match results applied to the noble table.",
		}),
		weeklyGrantsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_grants_total",
			Help:      "Weekly bonus point passes executed.",
		}),
		persistenceErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Store calls that failed after retry.",
		}),
		drainTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drain_timeouts_total",
			Help:      "Match driver drains that hit the hard timeout.",
		}),
		noblesRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nobles_registered",
			Help:      "Nobles in the live table.",
		}),
		compOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "competition_open",
			Help:      "1 while the competition window is open.",
		}),
		currentCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_cycle",
			Help:      "Current olympiad cycle number.",
		}),
		drainSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "drain_seconds",
			Help:      "Time spent waiting for match driver quiescence.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
	}
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RolloverCompleted инкрементирует счётчик rollover.
func (m *Metrics) RolloverCompleted(cycle int32) {
	if m == nil {
		return
	}
	m.rolloversTotal.Inc()
	m.currentCycle.Set(float64(cycle))
}

// MatchRecorded инкрементирует счётчик применённых результатов.
func (m *Metrics) MatchRecorded() {
	if m == nil {
		return
	}
	m.matchesRecorded.Inc()
}

// WeeklyGrant отмечает выполненный weekly pass.
func (m *Metrics) WeeklyGrant() {
	if m == nil {
		return
	}
	m.weeklyGrantsTotal.Inc()
}

// PersistenceError отмечает неудавшийся (после retry) вызов store.
func (m *Metrics) PersistenceError() {
	if m == nil {
		return
	}
	m.persistenceErrors.Inc()
}

// DrainTimeout отмечает принудительную остановку драйвера.
func (m *Metrics) DrainTimeout() {
	if m == nil {
		return
	}
	m.drainTimeouts.Inc()
}

// SetNoblesRegistered выставляет размер живой таблицы.
func (m *Metrics) SetNoblesRegistered(n int) {
	if m == nil {
		return
	}
	m.noblesRegistered.Set(float64(n))
}

// SetCompOpen выставляет флаг открытого окна.
func (m *Metrics) SetCompOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.compOpen.Set(1)
	} else {
		m.compOpen.Set(0)
	}
}

// SetCurrentCycle выставляет номер текущего цикла.
func (m *Metrics) SetCurrentCycle(cycle int32) {
	if m == nil {
		return
	}
	m.currentCycle.Set(float64(cycle))
}

// ObserveDrain записывает длительность ожидания quiescence.
func (m *Metrics) ObserveDrain(seconds float64) {
	if m == nil {
		return
	}
	m.drainSeconds.Observe(seconds)
}
