package encounter

import (
	"strings"
	"unicode/utf8"
)

const (
	minPatientNameLen = 3
	taxIDLen          = 11
)

// CreateInput is the body of a new-encounter request.
type CreateInput struct {
	PatientName string `json:"patientName"`
	TaxID       string `json:"taxId"`
	Status      Status `json:"status"`
	ExamType    string `json:"examType"`
	Notes       string `json:"notes"`
}

// CreateFields holds normalized, validated fields for a new encounter.
type CreateFields struct {
	PatientName string
	TaxID       string
	Status      Status
	ExamType    *string
	Notes       *string
}

// TransitionInput is the body of a status-change request.
type TransitionInput struct {
	Status   Status `json:"status"`
	ExamType string `json:"examType"`
}

// TransitionResult is the outcome of a legal transition.
// ExamType is nil unless the new status requires one.
type TransitionResult struct {
	Status   Status
	ExamType *string
}

// NormalizeTaxID strips every non-digit character.
func NormalizeTaxID(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCreate checks a new-encounter request. Any known status is
// accepted as the initial status; the workflow only restricts transitions.
func ValidateCreate(in CreateInput) (CreateFields, error) {
	name := strings.TrimSpace(in.PatientName)
	if utf8.RuneCountInString(name) < minPatientNameLen {
		return CreateFields{}, invalid("patientName", "invalid patient name (minimum %d characters)", minPatientNameLen)
	}
	if !in.Status.Valid() {
		return CreateFields{}, invalid("status", "invalid initial status")
	}
	taxID := NormalizeTaxID(in.TaxID)
	if in.TaxID != "" && len(taxID) != taxIDLen {
		return CreateFields{}, invalid("taxId", "invalid tax id (use %d digits or leave blank)", taxIDLen)
	}
	exam, err := examTypeFor(in.Status, in.ExamType)
	if err != nil {
		return CreateFields{}, err
	}

	fields := CreateFields{
		PatientName: name,
		TaxID:       taxID,
		Status:      in.Status,
		ExamType:    exam,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		fields.Notes = &notes
	}
	return fields, nil
}

// ValidateTransition decides whether current -> requested is legal. It has
// no side effects; the caller applies the result.
func ValidateTransition(current, requested Status, examType string) (TransitionResult, error) {
	if requested == "" {
		return TransitionResult{}, invalid("status", "status is required")
	}
	if !CanTransition(current, requested) {
		return TransitionResult{}, &ConflictError{From: current, To: requested}
	}
	exam, err := examTypeFor(requested, examType)
	if err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Status: requested, ExamType: exam}, nil
}

func examTypeFor(s Status, examType string) (*string, error) {
	if !RequiresExam(s) {
		return nil, nil
	}
	exam := strings.TrimSpace(examType)
	if exam == "" {
		return nil, invalid("examType", "exam type is required for status '%s'", s)
	}
	return &exam, nil
}
