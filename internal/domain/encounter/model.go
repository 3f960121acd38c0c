package encounter

import (
	"time"
)

// SystemActor is recorded on history entries produced by the API.
const SystemActor = "system"

// Encounter is one patient's episode of care.
type Encounter struct {
	ID            int64          `db:"id" json:"id"`
	PatientName   string         `db:"patient_name" json:"patientName"`
	TaxID         string         `db:"tax_id" json:"taxId,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	CurrentStatus Status         `db:"current_status" json:"currentStatus"`
	ExamType      *string        `db:"exam_type" json:"examType,omitempty"`
	Notes         *string        `db:"notes" json:"notes,omitempty"`
	History       []HistoryEntry `json:"history"`
}

// HistoryEntry maps to the encounter_history table.
type HistoryEntry struct {
	Timestamp time.Time `db:"at" json:"timestamp"`
	Status    Status    `db:"status" json:"status"`
	Actor     string    `db:"actor" json:"actor"`
	Note      *string   `db:"note" json:"note,omitempty"`
}

// Clone returns a deep copy so stored records never escape by reference.
func (e *Encounter) Clone() *Encounter {
	if e == nil {
		return nil
	}
	out := *e
	out.ExamType = clonePtr(e.ExamType)
	out.Notes = clonePtr(e.Notes)
	out.History = make([]HistoryEntry, len(e.History))
	for i, h := range e.History {
		h.Note = clonePtr(h.Note)
		out.History[i] = h
	}
	return &out
}

// LastEntry returns the most recent history entry.
func (e *Encounter) LastEntry() (HistoryEntry, bool) {
	if len(e.History) == 0 {
		return HistoryEntry{}, false
	}
	return e.History[len(e.History)-1], true
}

func newHistoryEntry(at time.Time, status Status, examType *string) HistoryEntry {
	entry := HistoryEntry{Timestamp: at, Status: status, Actor: SystemActor}
	if examType != nil {
		note := "exam: " + *examType
		entry.Note = &note
	}
	return entry
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
