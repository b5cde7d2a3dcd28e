package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "scheduling").Logger(),
	}
}

// CreateInput is the booking payload.
type CreateInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	ManagerID string    `json:"manager_id"`
	Type      string    `json:"type"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Note      *string   `json:"note,omitempty"`
}

// Create books an appointment. Rejects empty identifiers, windows that
// end before they start, bookings in the past, and overlaps with the
// manager's existing non-cancelled appointments.
func (s *Service) Create(ctx context.Context, in CreateInput, createdBy string) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.ManagerID == "" {
		return nil, fmt.Errorf("manager_id is required")
	}
	if !validTypes[in.Type] {
		return nil, fmt.Errorf("invalid appointment type: %s", in.Type)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("ends_at must be after starts_at")
	}
	if in.StartsAt.Before(time.Now().UTC()) {
		return nil, fmt.Errorf("cannot book an appointment in the past")
	}

	overlapping, err := s.repo.CountOverlapping(ctx, in.ManagerID, in.StartsAt, in.EndsAt)
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if overlapping > 0 {
		return nil, ErrDoubleBooked
	}

	a := &Appointment{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		ManagerID: in.ManagerID,
		Type:      in.Type,
		Status:    StatusBooked,
		StartsAt:  in.StartsAt.UTC(),
		EndsAt:    in.EndsAt.UTC(),
		Note:      in.Note,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("patient_id", a.PatientID.String()).
		Str("manager_id", a.ManagerID).
		Time("starts_at", a.StartsAt).
		Msg("appointment booked")
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus moves an appointment out of booked. Fulfilled, cancelled
// and no_show are terminal.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == status {
		return a, nil
	}
	if a.Status != StatusBooked {
		return nil, fmt.Errorf("appointment is %s and cannot change to %s", a.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	return a, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDay(ctx context.Context, managerID string, day time.Time) ([]*Appointment, error) {
	return s.repo.ListByDay(ctx, managerID, day)
}
