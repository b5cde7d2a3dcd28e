package workflow

import (
	"time"

	"github.com/google/uuid"
)

// PatientState is the slice of the patient record the workflow engine
// reads and writes. The full record lives in the patient domain.
type PatientState struct {
	ID                uuid.UUID
	Status            Status
	AssignedManagerID *string
}

// StatusHistory is one append-only row recording an accepted transition.
type StatusHistory struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Note       string    `json:"note,omitempty"`
	ChangedBy  string    `json:"changed_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actor identifies who requested a status change, for history and audit.
type Actor struct {
	UserID    string
	Name      string
	Role      Role
	IPAddress string
	UserAgent string
}
