package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Encounters provides observability for the encounter workflow.
type Encounters struct {
	// Encounters created by initial status
	Created *prometheus.CounterVec

	// Successful transitions by source and target status
	Transitions *prometheus.CounterVec

	// Rejected requests by operation and reason
	Rejected *prometheus.CounterVec
}

// New registers the encounter metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Encounters {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Encounters{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encounters_created_total",
			Help: "Total encounters created by initial status",
		}, []string{"status"}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encounter_transitions_total",
			Help: "Total successful status transitions",
		}, []string{"from", "to"}),

		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "encounter_requests_rejected_total",
			Help: "Total rejected create and transition requests by reason",
		}, []string{"operation", "reason"}), // reason: "validation", "conflict", "not_found"
	}
}

// IncrementCreated records a new encounter.
func (m *Encounters) IncrementCreated(status string) {
	if m != nil {
		m.Created.WithLabelValues(status).Inc()
	}
}

// IncrementTransition records a successful status change.
func (m *Encounters) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncrementRejected records a request refused before any mutation.
func (m *Encounters) IncrementRejected(operation, reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(operation, reason).Inc()
	}
}
