package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/encounters/internal/platform/metrics"
)

type Service struct {
	repo    Repository
	logger  zerolog.Logger
	metrics *metrics.Encounters
	now     func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "encounter").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics attaches optional Prometheus counters to the service.
func (s *Service) SetMetrics(m *metrics.Encounters) {
	s.metrics = m
}

// Create validates in, then stores a new encounter whose history holds a
// single entry for the initial status.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Encounter, error) {
	fields, err := ValidateCreate(in)
	if err != nil {
		s.reject("create", err)
		return nil, err
	}

	now := s.now()
	enc := &Encounter{
		PatientName:   fields.PatientName,
		TaxID:         fields.TaxID,
		CreatedAt:     now,
		CurrentStatus: fields.Status,
		ExamType:      fields.ExamType,
		Notes:         fields.Notes,
		History:       []HistoryEntry{newHistoryEntry(now, fields.Status, fields.ExamType)},
	}
	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, fmt.Errorf("create encounter: %w", err)
	}

	s.metrics.IncrementCreated(string(enc.CurrentStatus))
	s.logger.Info().
		Int64("encounter_id", enc.ID).
		Str("status", string(enc.CurrentStatus)).
		Msg("encounter created")
	return enc, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

// ApplyTransition moves encounter id to in.Status when the workflow allows
// it. The legality check runs inside the store's critical section, so two
// concurrent requests can never both succeed from the same source status.
func (s *Service) ApplyTransition(ctx context.Context, id int64, in TransitionInput) (*Encounter, error) {
	var from Status
	enc, err := s.repo.UpdateStatus(ctx, id, func(enc *Encounter) error {
		res, err := ValidateTransition(enc.CurrentStatus, in.Status, in.ExamType)
		if err != nil {
			return err
		}
		from = enc.CurrentStatus
		enc.CurrentStatus = res.Status
		enc.ExamType = res.ExamType
		enc.History = append(enc.History, newHistoryEntry(s.now(), res.Status, res.ExamType))
		return nil
	})
	if err != nil {
		s.reject("transition", err)
		s.logger.Debug().Err(err).Int64("encounter_id", id).Str("to", string(in.Status)).Msg("transition rejected")
		return nil, err
	}

	s.metrics.IncrementTransition(string(from), string(enc.CurrentStatus))
	s.logger.Info().
		Int64("encounter_id", id).
		Str("from", string(from)).
		Str("to", string(enc.CurrentStatus)).
		Msg("encounter status changed")
	return enc, nil
}

// ListAll returns every encounter in creation order.
func (s *Service) ListAll(ctx context.Context) ([]*Encounter, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	if items == nil {
		items = []*Encounter{}
	}
	return items, nil
}

func (s *Service) reject(operation string, err error) {
	var (
		verr *ValidationError
		cerr *ConflictError
		nerr *NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		s.metrics.IncrementRejected(operation, "validation")
	case errors.As(err, &cerr):
		s.metrics.IncrementRejected(operation, "conflict")
	case errors.As(err, &nerr):
		s.metrics.IncrementRejected(operation, "not_found")
	}
}
