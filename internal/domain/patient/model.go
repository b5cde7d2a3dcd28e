package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/workflow"
)

// Patient maps to the patients table. The resident registration number
// is never stored or served in plaintext: only the GCM ciphertext
// triple, the lookup hash and the display mask are persisted.
type Patient struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	BirthDate         *time.Time      `db:"birth_date" json:"birth_date,omitempty"`
	Gender            *string         `db:"gender" json:"gender,omitempty"`
	PhoneMobile       *string         `db:"phone_mobile" json:"phone_mobile,omitempty"`
	Email             *string         `db:"email" json:"email,omitempty"`
	AddressLine1      *string         `db:"address_line1" json:"address_line1,omitempty"`
	City              *string         `db:"city" json:"city,omitempty"`
	PostalCode        *string         `db:"postal_code" json:"postal_code,omitempty"`
	ReferralSource    *string         `db:"referral_source" json:"referral_source,omitempty"`
	Note              *string         `db:"note" json:"note,omitempty"`
	Status            workflow.Status `db:"status" json:"status"`
	AssignedManagerID *string         `db:"assigned_manager_id" json:"assigned_manager_id,omitempty"`

	SSNEncrypted  string `db:"ssn_encrypted" json:"-"`
	SSNIV         string `db:"ssn_iv" json:"-"`
	SSNTag        string `db:"ssn_tag" json:"-"`
	SSNKeyVersion int    `db:"ssn_key_version" json:"-"`
	SSNHash       string `db:"ssn_hash" json:"-"`
	SSNMasked     string `db:"ssn_masked" json:"ssn_masked,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}
