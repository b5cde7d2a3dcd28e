package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/metrics"
)

// Auditor records accepted status changes in the generic audit trail.
// Implementations are expected to honor a transaction already carried
// in the context so the audit row commits with the status change.
type Auditor interface {
	RecordStatusChange(ctx context.Context, patientID uuid.UUID, from, to Status, note string, actor Actor) error
}

type Service struct {
	repo    Repository
	pool    *pgxpool.Pool
	auditor Auditor
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(repo Repository, pool *pgxpool.Pool, auditor Auditor, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		pool:    pool,
		auditor: auditor,
		logger:  logger.With().Str("component", "workflow").Logger(),
	}
}

// SetMetrics attaches optional transition counters.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// ChangeResult reports the outcome of a status change request. When
// Validation.IsValid is false the change was rejected and nothing was
// persisted.
type ChangeResult struct {
	Validation Result         `json:"validation"`
	Patient    *PatientState  `json:"patient,omitempty"`
	History    *StatusHistory `json:"history,omitempty"`
}

// ChangeStatus validates and persists a status transition. The status
// write, the history row and the audit row commit in one transaction,
// conditioned on the status still matching what was read.
func (s *Service) ChangeStatus(ctx context.Context, patientID uuid.UUID, target Status, note string, actor Actor) (*ChangeResult, error) {
	state, err := s.repo.GetPatientState(ctx, patientID)
	if err != nil {
		return nil, err
	}

	res := ValidateTransition(state.Status, target, actor.Role)
	if !res.IsValid {
		s.denied("rejected", state.Status, target, actor)
		return &ChangeResult{Validation: res}, nil
	}

	if res.RequiresNote && strings.TrimSpace(note) == "" {
		s.denied("note_required", state.Status, target, actor)
		res.IsValid = false
		res.Error = "이 상태 변경에는 사유 메모가 필요합니다."
		return &ChangeResult{Validation: res}, nil
	}

	managerID := state.AssignedManagerID
	if res.AutoAssignManager && managerID == nil && actor.UserID != "" {
		id := actor.UserID
		managerID = &id
	}

	history := &StatusHistory{
		ID:         uuid.New(),
		PatientID:  patientID,
		FromStatus: state.Status,
		ToStatus:   target,
		Note:       strings.TrimSpace(note),
		ChangedBy:  actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}

	err = db.RunInTx(ctx, s.pool, func(txCtx context.Context) error {
		ok, err := s.repo.UpdateStatus(txCtx, patientID, state.Status, target, managerID)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return ErrConflict
		}
		if err := s.repo.AppendHistory(txCtx, history); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		if s.auditor != nil {
			if err := s.auditor.RecordStatusChange(txCtx, patientID, state.Status, target, history.Note, actor); err != nil {
				return fmt.Errorf("audit status change: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncStatusTransition(string(state.Status), string(target))
	}
	s.logger.Info().
		Str("patient_id", patientID.String()).
		Str("from", string(state.Status)).
		Str("to", string(target)).
		Str("user_id", actor.UserID).
		Str("role", string(actor.Role)).
		Bool("handover_to_cs", IsHandoverToCS(state.Status, target)).
		Msg("patient status changed")

	state.Status = target
	state.AssignedManagerID = managerID
	return &ChangeResult{Validation: res, Patient: state, History: history}, nil
}

// StatusHistory lists a patient's transition history, newest first.
func (s *Service) StatusHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*StatusHistory, int, error) {
	return s.repo.GetHistory(ctx, patientID, limit, offset)
}

// Preview returns the validation outcome without persisting anything,
// for UI selectors that gate which transitions to offer.
func (s *Service) Preview(ctx context.Context, patientID uuid.UUID, target Status, role Role) (Result, error) {
	state, err := s.repo.GetPatientState(ctx, patientID)
	if err != nil {
		return Result{}, err
	}
	return ValidateTransition(state.Status, target, role), nil
}

func (s *Service) denied(reason string, from, to Status, actor Actor) {
	if s.metrics != nil {
		s.metrics.IncStatusTransitionDenied(reason)
	}
	s.logger.Warn().
		Str("reason", reason).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("user_id", actor.UserID).
		Str("role", string(actor.Role)).
		Msg("status transition denied")
}
