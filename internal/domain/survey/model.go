package survey

import (
	"time"

	"github.com/google/uuid"
)

// Token is a single-use intake link. It is handed to a prospective
// patient out of band; submitting the survey consumes it.
type Token struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Value     string     `db:"value" json:"value"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *Token) Used() bool {
	return t.UsedAt != nil
}
