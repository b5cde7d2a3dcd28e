package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointments table. A booking ties a patient
// to a manager for a time window; overlapping bookings for the same
// manager are rejected at creation.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	ManagerID string    `db:"manager_id" json:"manager_id"`
	Type      string    `db:"type" json:"type"`
	Status    string    `db:"status" json:"status"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	Note      *string   `db:"note" json:"note,omitempty"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	StatusBooked    = "booked"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

var validStatuses = map[string]bool{
	StatusBooked:    true,
	StatusFulfilled: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

var validTypes = map[string]bool{
	"consultation": true,
	"examination":  true,
	"followup":     true,
}

// Overlaps reports whether two half-open time windows intersect.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartsAt.Before(end) && start.Before(a.EndsAt)
}
