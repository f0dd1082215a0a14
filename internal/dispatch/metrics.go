package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report dispatcher activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth prometheus.Gauge
	inFlight   prometheus.Gauge
}

// MustNewMetrics constructs Metrics and registers them with reg.
// Registration errors panic, mirroring promauto, so callers should supply a
// fresh registry per dispatcher (tests in particular).
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "namegen",
				Subsystem: "dispatch",
				Name:      "task_outcomes_total",
				Help:      "Final outcomes recorded for tasks, by status and failure reason.",
			},
			[]string{"status", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "namegen",
				Subsystem: "dispatch",
				Name:      "generation_duration_seconds",
				Help:      "Time spent waiting on the generation engine per task.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "namegen",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Tasks waiting for a worker.",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "namegen",
				Subsystem: "dispatch",
				Name:      "tasks_in_flight",
				Help:      "Tasks currently being generated.",
			},
		),
	}

	reg.MustRegister(m.outcomes, m.duration, m.queueDepth, m.inFlight)
	return m
}

func (m *Metrics) observeOutcome(status, reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) observeDuration(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) addInFlight(delta float64) {
	if m == nil {
		return
	}
	m.inFlight.Add(delta)
}
