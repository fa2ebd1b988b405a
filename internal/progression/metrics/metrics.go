package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the progression module.
type Metrics struct {
	// Stage transitions by workflow and direction
	Transitions *prometheus.CounterVec

	// Entities currently at each stage, refreshed on aggregate reads
	StageOccupancy *prometheus.GaugeVec
}

// New creates a new Metrics instance with all progression module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "origo_progression_transitions_total",
			Help: "Total stage transitions by workflow and direction",
		}, []string{"workflow", "direction"}), // direction: "forward", "revert"

		StageOccupancy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "origo_progression_stage_occupancy",
			Help: "Entities currently assigned to each stage",
		}, []string{"workflow", "stage"}),
	}
}

// IncrementTransition records one stage transition.
func (m *Metrics) IncrementTransition(workflow string, revert bool) {
	if m != nil {
		direction := "forward"
		if revert {
			direction = "revert"
		}
		m.Transitions.WithLabelValues(workflow, direction).Inc()
	}
}

// SetOccupancy publishes a stage count observed during aggregation.
func (m *Metrics) SetOccupancy(workflow, stage string, count int) {
	if m != nil {
		m.StageOccupancy.WithLabelValues(workflow, stage).Set(float64(count))
	}
}
