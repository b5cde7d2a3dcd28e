package survey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/metrics"
	"github.com/carehub/carehub/internal/platform/ssn"
)

const (
	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 72 * time.Hour
	// MaxTTL caps caller-supplied expiries.
	MaxTTL = 30 * 24 * time.Hour

	tokenBytes = 24
)

type Service struct {
	repo     Repository
	patients *patient.Service
	pool     *pgxpool.Pool
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(repo Repository, patients *patient.Service, pool *pgxpool.Pool, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		pool:     pool,
		logger:   logger.With().Str("component", "survey").Logger(),
	}
}

// SetMetrics attaches optional counters.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Issue creates a fresh single-use token. A non-positive ttl falls back
// to the default; oversized ttls are capped.
func (s *Service) Issue(ctx context.Context, createdBy string, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	t := &Token{
		ID:        uuid.New(),
		Value:     hex.EncodeToString(raw),
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info().Str("token_id", t.ID.String()).Str("created_by", createdBy).
		Time("expires_at", t.ExpiresAt).Msg("survey token issued")
	return t, nil
}

// Get resolves a token for the public survey page. Expired and consumed
// tokens surface as distinct errors so the page can explain which.
func (s *Service) Get(ctx context.Context, value string) (*Token, error) {
	t, err := s.repo.GetByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if t.Used() {
		return nil, ErrTokenUsed
	}
	if t.Expired(time.Now().UTC()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// List returns issued tokens for the back office.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Token, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Submit runs the public intake: the token is checked and consumed and
// the patient is registered, all in one transaction. The new patient
// starts in the pending status like any other intake.
func (s *Service) Submit(ctx context.Context, value string, in patient.RegisterInput) (*patient.Patient, error) {
	t, err := s.Get(ctx, value)
	if err != nil {
		return nil, err
	}

	actor := ssn.Actor{UserID: "survey:" + t.ID.String(), Role: "public"}

	var created *patient.Patient
	err = db.RunInTx(ctx, s.pool, func(txCtx context.Context) error {
		p, err := s.patients.Register(txCtx, in, actor)
		if err != nil {
			return err
		}
		ok, err := s.repo.MarkUsed(txCtx, t.ID, p.ID)
		if err != nil {
			return fmt.Errorf("consume token: %w", err)
		}
		if !ok {
			return ErrTokenUsed
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncSurveySubmitted()
	}
	s.logger.Info().Str("token_id", t.ID.String()).Str("patient_id", created.ID.String()).
		Msg("survey submitted")
	return created, nil
}
