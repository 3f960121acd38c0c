package encounter

// Status is one of the fixed clinical states an encounter moves through.
type Status string

const (
	StatusTriage         Status = "Triage"
	StatusInCare         Status = "In-Care"
	StatusAwaitingExam   Status = "Awaiting-Exam"
	StatusInExam         Status = "In-Exam"
	StatusAwaitingResult Status = "Awaiting-Result"
	StatusAdmitted       Status = "Admitted"
	StatusDischarged     Status = "Discharged"
)

// orderedStatuses lists every status in workflow order.
var orderedStatuses = []Status{
	StatusTriage,
	StatusInCare,
	StatusAwaitingExam,
	StatusInExam,
	StatusAwaitingResult,
	StatusAdmitted,
	StatusDischarged,
}

// transitions maps a status to the statuses it may move to.
// Discharged is terminal.
var transitions = map[Status][]Status{
	StatusTriage:         {StatusInCare},
	StatusInCare:         {StatusAwaitingExam, StatusAdmitted, StatusDischarged},
	StatusAwaitingExam:   {StatusInExam},
	StatusInExam:         {StatusAwaitingResult},
	StatusAwaitingResult: {StatusDischarged, StatusAdmitted},
	StatusAdmitted:       {StatusDischarged},
	StatusDischarged:     {},
}

// Statuses returns every known status in workflow order.
func Statuses() []Status {
	out := make([]Status, len(orderedStatuses))
	copy(out, orderedStatuses)
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// RequiresExam reports whether s mandates an exam type.
func RequiresExam(s Status) bool {
	return s == StatusAwaitingExam || s == StatusInExam
}

// AllowedTransitions returns the statuses reachable from s in one step.
// Unknown and terminal statuses yield an empty slice.
func AllowedTransitions(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	return s.Valid() && len(transitions[s]) == 0
}
