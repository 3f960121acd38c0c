package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEncounters_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementCreated("Triage")
	m.IncrementCreated("Triage")
	m.IncrementTransition("Triage", "In-Care")
	m.IncrementRejected("transition", "conflict")

	if got := testutil.ToFloat64(m.Created.WithLabelValues("Triage")); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("Triage", "In-Care")); got != 1 {
		t.Errorf("transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Rejected.WithLabelValues("transition", "conflict")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestEncounters_NilSafe(t *testing.T) {
	var m *Encounters
	m.IncrementCreated("Triage")
	m.IncrementTransition("Triage", "In-Care")
	m.IncrementRejected("create", "validation")
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
