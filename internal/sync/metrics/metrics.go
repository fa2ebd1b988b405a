package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sync module.
type Metrics struct {
	// Propagation outcomes by result
	Propagations *prometheus.CounterVec

	// Changes published to the notifier
	Published prometheus.Counter

	// Propagation latency including target writes
	PropagateLatency prometheus.Histogram
}

// New creates a new Metrics instance with all sync module metrics registered.
func New() *Metrics {
	return &Metrics{
		Propagations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "origo_sync_propagations_total",
			Help: "Total propagation outcomes by result",
		}, []string{"result"}), // result: "applied", "stale", "duplicate", "own_origin", "error"

		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "origo_sync_published_total",
			Help: "Changes published to the field-changes topic",
		}),

		PropagateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "origo_sync_propagate_duration_seconds",
			Help:    "Duration of a propagation including target writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementPropagation records one propagation outcome.
func (m *Metrics) IncrementPropagation(result string) {
	if m != nil {
		m.Propagations.WithLabelValues(result).Inc()
	}
}

// IncrementPublished records one published change.
func (m *Metrics) IncrementPublished() {
	if m != nil {
		m.Published.Inc()
	}
}

// ObservePropagateLatency records the duration of a propagation.
func (m *Metrics) ObservePropagateLatency(d time.Duration) {
	if m != nil {
		m.PropagateLatency.Observe(d.Seconds())
	}
}
