package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one generic append-only audit row. Old and new data are
// stored as jsonb so any table's change can be captured.
type Event struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Action    string         `db:"action" json:"action"`
	TableName string         `db:"table_name" json:"table_name"`
	RecordID  string         `db:"record_id" json:"record_id,omitempty"`
	OldData   map[string]any `db:"old_data" json:"old_data,omitempty"`
	NewData   map[string]any `db:"new_data" json:"new_data,omitempty"`
	UserID    string         `db:"user_id" json:"user_id,omitempty"`
	UserRole  string         `db:"user_role" json:"user_role,omitempty"`
	IPAddress string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent string         `db:"user_agent" json:"user_agent,omitempty"`
	RequestID string         `db:"request_id" json:"request_id,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SSNAccess is the persisted form of one resident registration number
// access attempt, successful or denied.
type SSNAccess struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	PatientID    string    `db:"patient_id" json:"patient_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	Success      bool      `db:"success" json:"success"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
