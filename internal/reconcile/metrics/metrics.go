package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconcile module.
type Metrics struct {
	// Detection outcomes by result and candidate source
	DetectOutcome *prometheus.CounterVec

	// Conflict resolutions by decision
	Resolutions *prometheus.CounterVec

	// Conflicts currently awaiting review
	OpenConflicts prometheus.Gauge

	// Full detection latency including store round trips
	DetectLatency prometheus.Histogram
}

// New creates a new Metrics instance with all reconcile module metrics registered.
func New() *Metrics {
	return &Metrics{
		DetectOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "origo_reconcile_detect_outcomes_total",
			Help: "Total detection outcomes by result and candidate source",
		}, []string{"outcome", "source"}), // outcome: "accepted", "corroborated", "conflicted"

		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "origo_reconcile_resolutions_total",
			Help: "Total conflict resolutions by decision",
		}, []string{"decision"}),

		OpenConflicts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "origo_reconcile_open_conflicts",
			Help: "Conflicts currently in the open state",
		}),

		DetectLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "origo_reconcile_detect_duration_seconds",
			Help:    "Duration of a full detect call including store round trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDetect records a detection outcome.
func (m *Metrics) IncrementDetect(outcome, source string) {
	if m != nil {
		m.DetectOutcome.WithLabelValues(outcome, source).Inc()
	}
}

// IncrementResolution records a conflict resolution.
func (m *Metrics) IncrementResolution(decision string) {
	if m != nil {
		m.Resolutions.WithLabelValues(decision).Inc()
	}
}

// ConflictOpened bumps the open-conflict gauge.
func (m *Metrics) ConflictOpened() {
	if m != nil {
		m.OpenConflicts.Inc()
	}
}

// ConflictClosed lowers the open-conflict gauge.
func (m *Metrics) ConflictClosed() {
	if m != nil {
		m.OpenConflicts.Dec()
	}
}

// ObserveDetectLatency records the duration of a detect call.
func (m *Metrics) ObserveDetectLatency(d time.Duration) {
	if m != nil {
		m.DetectLatency.Observe(d.Seconds())
	}
}
