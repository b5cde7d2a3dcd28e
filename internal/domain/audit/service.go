package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/domain/workflow"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/middleware"
	"github.com/carehub/carehub/internal/platform/ssn"
)

// Service is the audit trail's write and read surface. It implements
// ssn.Recorder, workflow.Auditor and middleware.AuditRecorder so the
// rest of the system depends on those interfaces, not on this package.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// summarizeUserAgent reduces a raw User-Agent header to a short
// "Browser version (OS)" form for the audit views.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OSInfo().Name; os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

// Record persists one SSN access attempt. Implements ssn.Recorder.
// The insert runs on its own connection, never on a transaction the caller
// happens to be inside: a failed access-log write must not poison the
// caller's transaction, and a rolled-back caller must not erase the log.
func (s *Service) Record(ctx context.Context, entry ssn.AccessLog) error {
	row := &SSNAccess{
		ID:           uuid.New(),
		UserID:       entry.UserID,
		PatientID:    entry.PatientID,
		Action:       string(entry.Action),
		Success:      entry.Success,
		ErrorMessage: entry.ErrorMessage,
		IPAddress:    entry.IPAddress,
		UserAgent:    summarizeUserAgent(entry.UserAgent),
		CreatedAt:    entry.OccurredAt,
	}
	return s.repo.AppendSSNAccess(db.DetachTx(ctx), row)
}

// RecordStatusChange persists an accepted status transition as a
// generic audit event. Implements workflow.Auditor; expected to run
// inside the transition's transaction.
func (s *Service) RecordStatusChange(ctx context.Context, patientID uuid.UUID, from, to workflow.Status, note string, actor workflow.Actor) error {
	e := &Event{
		ID:        uuid.New(),
		Action:    "status_change",
		TableName: "patients",
		RecordID:  patientID.String(),
		OldData:   map[string]any{"status": string(from)},
		NewData:   map[string]any{"status": string(to)},
		UserID:    actor.UserID,
		UserRole:  string(actor.Role),
		IPAddress: actor.IPAddress,
		UserAgent: summarizeUserAgent(actor.UserAgent),
	}
	if note != "" {
		e.NewData["note"] = note
	}
	return s.repo.AppendEvent(ctx, e)
}

// RecordAccess persists an HTTP-level access entry from the audit
// middleware. Implements middleware.AuditRecorder. Failures are the
// middleware's to log; they never fail the request.
func (s *Service) RecordAccess(entry middleware.AuditEntry) error {
	e := &Event{
		ID:        uuid.New(),
		Action:    entry.Action,
		TableName: entry.Resource,
		RecordID:  entry.PatientID,
		NewData: map[string]any{
			"path":        entry.Path,
			"method":      entry.Method,
			"status_code": entry.StatusCode,
		},
		UserID:    entry.UserID,
		UserRole:  entry.UserRole,
		IPAddress: entry.IPAddress,
		UserAgent: summarizeUserAgent(entry.UserAgent),
		RequestID: entry.RequestID,
		CreatedAt: entry.Timestamp,
	}
	return s.repo.AppendEvent(context.Background(), e)
}

func (s *Service) ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*Event, int, error) {
	return s.repo.ListEvents(ctx, filter, limit, offset)
}

func (s *Service) ListSSNAccess(ctx context.Context, filter AccessFilter, limit, offset int) ([]*SSNAccess, int, error) {
	return s.repo.ListSSNAccess(ctx, filter, limit, offset)
}
