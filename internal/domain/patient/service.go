package patient

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/workflow"
	"github.com/carehub/carehub/internal/platform/metrics"
	"github.com/carehub/carehub/internal/platform/ssn"
)

// ErrInvalidSSN rejects input that fails the format or checksum gate.
// Raised before any hash or encryption work.
var ErrInvalidSSN = errors.New("invalid resident registration number")

type Service struct {
	repo     Repository
	cipher   *ssn.Cipher
	guard    *ssn.Guard
	hashSalt string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(repo Repository, cipher *ssn.Cipher, guard *ssn.Guard, hashSalt string, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		cipher:   cipher,
		guard:    guard,
		hashSalt: hashSalt,
		logger:   logger.With().Str("component", "patient").Logger(),
	}
}

// SetMetrics attaches optional counters.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// RegisterInput is the intake payload. RRN is the plaintext resident
// registration number; it never leaves this layer unencrypted.
type RegisterInput struct {
	Name           string     `json:"name"`
	RRN            string     `json:"rrn"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	PhoneMobile    *string    `json:"phone_mobile,omitempty"`
	Email          *string    `json:"email,omitempty"`
	AddressLine1   *string    `json:"address_line1,omitempty"`
	City           *string    `json:"city,omitempty"`
	PostalCode     *string    `json:"postal_code,omitempty"`
	ReferralSource *string    `json:"referral_source,omitempty"`
	Note           *string    `json:"note,omitempty"`
}

// Register validates the RRN, dedupes by hash, encrypts, and creates the
// patient in the pending intake status.
func (s *Service) Register(ctx context.Context, in RegisterInput, actor ssn.Actor) (*Patient, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	normalized := ssn.Normalize(in.RRN)
	if !ssn.Validate(normalized) {
		return nil, ErrInvalidSSN
	}

	hash := ssn.Hash(normalized, s.hashSalt)
	if existing, err := s.repo.GetBySSNHash(ctx, hash); err == nil && existing != nil {
		return nil, ErrDuplicateSSN
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("dedupe lookup: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(normalized)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(in.Name),
		BirthDate:      in.BirthDate,
		Gender:         in.Gender,
		PhoneMobile:    in.PhoneMobile,
		Email:          in.Email,
		AddressLine1:   in.AddressLine1,
		City:           in.City,
		PostalCode:     in.PostalCode,
		ReferralSource: in.ReferralSource,
		Note:           in.Note,
		Status:         workflow.StatusPending,
		SSNEncrypted:   encrypted.Encrypted,
		SSNIV:          encrypted.IV,
		SSNTag:         encrypted.Tag,
		SSNKeyVersion:  encrypted.Version,
		SSNHash:        hash,
		SSNMasked:      ssn.Mask(normalized),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.guard.RecordAccess(ctx, actor, p.ID.String(), ssn.ActionEncrypt, true, "")
	if s.metrics != nil {
		s.metrics.IncPatientCreated()
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Str("created_by", actor.UserID).Msg("patient registered")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// UpdateInput carries the mutable demographics. The RRN-derived columns
// are immutable after registration.
type UpdateInput struct {
	Name           string     `json:"name"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	PhoneMobile    *string    `json:"phone_mobile,omitempty"`
	Email          *string    `json:"email,omitempty"`
	AddressLine1   *string    `json:"address_line1,omitempty"`
	City           *string    `json:"city,omitempty"`
	PostalCode     *string    `json:"postal_code,omitempty"`
	ReferralSource *string    `json:"referral_source,omitempty"`
	Note           *string    `json:"note,omitempty"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.BirthDate = in.BirthDate
	p.Gender = in.Gender
	p.PhoneMobile = in.PhoneMobile
	p.Email = in.Email
	p.AddressLine1 = in.AddressLine1
	p.City = in.City
	p.PostalCode = in.PostalCode
	p.ReferralSource = in.ReferralSource
	p.Note = in.Note

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// LookupBySSN finds a patient by resident registration number using the
// deterministic hash. Every call is audited as a lookup, found or not.
func (s *Service) LookupBySSN(ctx context.Context, rrn string, actor ssn.Actor) (*Patient, error) {
	normalized := ssn.Normalize(rrn)
	if !ssn.Validate(normalized) {
		return nil, ErrInvalidSSN
	}

	p, err := s.repo.GetBySSNHash(ctx, ssn.Hash(normalized, s.hashSalt))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.guard.RecordAccess(ctx, actor, "", ssn.ActionLookup, false, "no match")
		}
		return nil, err
	}

	s.guard.RecordAccess(ctx, actor, p.ID.String(), ssn.ActionLookup, true, "")
	return p, nil
}

// RevealSSN decrypts a patient's resident registration number through the
// guard: rate limit, then role gate, then GCM decrypt, all audited.
func (s *Service) RevealSSN(ctx context.Context, id uuid.UUID, actor ssn.Actor) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	data := &ssn.EncryptedSSN{
		Encrypted: p.SSNEncrypted,
		IV:        p.SSNIV,
		Tag:       p.SSNTag,
		Version:   p.SSNKeyVersion,
	}
	plaintext, err := s.guard.Reveal(ctx, actor, p.ID.String(), data)
	if s.metrics != nil {
		switch {
		case errors.Is(err, ssn.ErrRateLimited):
			s.metrics.IncSSNDecryptRateLimited()
		case errors.Is(err, ssn.ErrPermissionDenied):
			s.metrics.IncSSNDecryptDenied(actor.Role)
		case err != nil:
			s.metrics.IncSSNDecrypt("failure")
		default:
			s.metrics.IncSSNDecrypt("success")
		}
	}
	return plaintext, err
}

// RecordMaskedView audits a view_masked access for a single patient read.
func (s *Service) RecordMaskedView(ctx context.Context, id uuid.UUID, actor ssn.Actor) {
	s.guard.RecordAccess(ctx, actor, id.String(), ssn.ActionViewMasked, true, "")
}

// ExportCSV streams the roster with masked RRNs only. Plaintext never
// appears in exports regardless of the caller's role.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, filter Filter) error {
	const batch = 500

	cw := csv.NewWriter(w)
	header := []string{"id", "name", "rrn_masked", "status", "assigned_manager", "phone", "email", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for offset := 0; ; offset += batch {
		patients, _, err := s.repo.List(ctx, filter, batch, offset)
		if err != nil {
			return err
		}
		for _, p := range patients {
			row := []string{
				p.ID.String(),
				p.Name,
				p.SSNMasked,
				string(p.Status),
				strValue(p.AssignedManagerID),
				strValue(p.PhoneMobile),
				strValue(p.Email),
				p.CreatedAt.Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		if len(patients) < batch {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
