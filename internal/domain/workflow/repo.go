package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrPatientNotFound is returned when the patient row does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrConflict is returned when the patient's status changed between
	// the read and the conditional write.
	ErrConflict = errors.New("patient status changed concurrently")
)

// Repository is the persistence boundary for status changes.
type Repository interface {
	// GetPatientState loads the workflow-relevant fields of a patient.
	GetPatientState(ctx context.Context, patientID uuid.UUID) (*PatientState, error)

	// UpdateStatus sets the patient's status conditioned on the row
	// still holding expected. Returns false when the condition failed.
	// managerID, when non-nil, is written to assigned_manager_id.
	UpdateStatus(ctx context.Context, patientID uuid.UUID, expected, target Status, managerID *string) (bool, error)

	// AppendHistory records an accepted transition.
	AppendHistory(ctx context.Context, h *StatusHistory) error

	// GetHistory lists a patient's transitions, newest first.
	GetHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error)
}
