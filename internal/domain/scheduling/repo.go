package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrDoubleBooked = errors.New("manager already has an appointment in this window")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// CountOverlapping counts non-cancelled appointments for the manager
	// intersecting the half-open window [start, end).
	CountOverlapping(ctx context.Context, managerID string, start, end time.Time) (int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListByDay lists a manager's appointments on a calendar day (UTC).
	ListByDay(ctx context.Context, managerID string, day time.Time) ([]*Appointment, error)
}
