package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/db"
)

type mockRepo struct {
	state      *PatientState
	stateErr   error
	updateOK   bool
	updateErr  error
	historyErr error

	updatedTo   Status
	lastManager *string
	history     []*StatusHistory
}

func (m *mockRepo) GetPatientState(context.Context, uuid.UUID) (*PatientState, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	copied := *m.state
	return &copied, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, _ uuid.UUID, _, target Status, managerID *string) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	if m.updateOK {
		m.updatedTo = target
		m.lastManager = managerID
	}
	return m.updateOK, nil
}

func (m *mockRepo) AppendHistory(_ context.Context, h *StatusHistory) error {
	if m.historyErr != nil {
		return m.historyErr
	}
	m.history = append(m.history, h)
	return nil
}

func (m *mockRepo) GetHistory(context.Context, uuid.UUID, int, int) ([]*StatusHistory, int, error) {
	return m.history, len(m.history), nil
}

type mockAuditor struct {
	calls int
	fail  bool
}

func (m *mockAuditor) RecordStatusChange(context.Context, uuid.UUID, Status, Status, string, Actor) error {
	if m.fail {
		return errors.New("audit store down")
	}
	m.calls++
	return nil
}

// stubTx satisfies pgx.Tx without a database. Seeding it into the
// context makes RunInTx join it instead of opening a real transaction.
type stubTx struct{ pgx.Tx }

func txContext() context.Context {
	return context.WithValue(context.Background(), db.DBTxKey, stubTx{})
}

func newTestService(repo Repository, auditor Auditor) *Service {
	return NewService(repo, nil, auditor, zerolog.Nop())
}

func TestChangeStatus_Success(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusPending},
		updateOK: true,
	}
	auditor := &mockAuditor{}
	svc := newTestService(repo, auditor)

	actor := Actor{UserID: "u1", Role: RoleBD}
	result, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusActive, "", actor)
	if err != nil {
		t.Fatalf("ChangeStatus() error: %v", err)
	}
	if !result.Validation.IsValid {
		t.Fatalf("expected accepted transition, got %q", result.Validation.Error)
	}
	if repo.updatedTo != StatusActive {
		t.Errorf("repo updated to %q, want active", repo.updatedTo)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(repo.history))
	}
	h := repo.history[0]
	if h.FromStatus != StatusPending || h.ToStatus != StatusActive || h.ChangedBy != "u1" {
		t.Errorf("unexpected history row %+v", h)
	}
	if auditor.calls != 1 {
		t.Errorf("expected 1 audit call, got %d", auditor.calls)
	}
	if result.Patient.Status != StatusActive {
		t.Errorf("result patient status %q, want active", result.Patient.Status)
	}
}

func TestChangeStatus_RejectionPersistsNothing(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusActive},
		updateOK: true,
	}
	auditor := &mockAuditor{}
	svc := newTestService(repo, auditor)

	result, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusPending, "", Actor{UserID: "u1", Role: RoleCS})
	if err != nil {
		t.Fatalf("rejections are results, not errors: %v", err)
	}
	if result.Validation.IsValid {
		t.Fatal("active -> pending has no edge and must be rejected")
	}
	if repo.updatedTo != "" || len(repo.history) != 0 || auditor.calls != 0 {
		t.Error("rejected transition must not touch persistence or audit")
	}
}

func TestChangeStatus_NoteRequired(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusActive},
		updateOK: true,
	}
	svc := newTestService(repo, &mockAuditor{})
	actor := Actor{UserID: "u1", Role: RoleManager}

	result, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusClosed, "   ", actor)
	if err != nil {
		t.Fatalf("ChangeStatus() error: %v", err)
	}
	if result.Validation.IsValid {
		t.Fatal("closing without a note must be rejected")
	}
	if !strings.Contains(result.Validation.Error, "메모") {
		t.Errorf("unexpected message %q", result.Validation.Error)
	}
	if len(repo.history) != 0 {
		t.Error("rejected change must not append history")
	}

	result, err = svc.ChangeStatus(txContext(), repo.state.ID, StatusClosed, "환자 요청으로 종결", actor)
	if err != nil {
		t.Fatalf("ChangeStatus() error: %v", err)
	}
	if !result.Validation.IsValid {
		t.Fatalf("expected accepted close with note, got %q", result.Validation.Error)
	}
	if repo.history[0].Note != "환자 요청으로 종결" {
		t.Errorf("note not carried into history: %+v", repo.history[0])
	}
}

func TestChangeStatus_AutoAssignsManager(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusConsulted},
		updateOK: true,
	}
	svc := newTestService(repo, &mockAuditor{})

	result, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusReservationInProgress, "", Actor{UserID: "cs-7", Role: RoleCS})
	if err != nil {
		t.Fatalf("ChangeStatus() error: %v", err)
	}
	if !result.Validation.IsValid {
		t.Fatalf("handover should be accepted, got %q", result.Validation.Error)
	}
	if repo.lastManager == nil || *repo.lastManager != "cs-7" {
		t.Errorf("expected acting user assigned as manager, got %v", repo.lastManager)
	}
}

func TestChangeStatus_KeepsExistingManager(t *testing.T) {
	existing := "mgr-1"
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusConsulted, AssignedManagerID: &existing},
		updateOK: true,
	}
	svc := newTestService(repo, &mockAuditor{})

	result, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusReservationInProgress, "", Actor{UserID: "cs-7", Role: RoleCS})
	if err != nil {
		t.Fatalf("ChangeStatus() error: %v", err)
	}
	if !result.Validation.IsValid {
		t.Fatalf("handover should be accepted, got %q", result.Validation.Error)
	}
	if repo.lastManager == nil || *repo.lastManager != "mgr-1" {
		t.Errorf("an already assigned manager must not be replaced, got %v", repo.lastManager)
	}
}

func TestChangeStatus_ConcurrentModification(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusPending},
		updateOK: false,
	}
	svc := newTestService(repo, &mockAuditor{})

	_, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusActive, "", Actor{UserID: "u1", Role: RoleBD})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestChangeStatus_PatientNotFound(t *testing.T) {
	repo := &mockRepo{stateErr: ErrPatientNotFound}
	svc := newTestService(repo, &mockAuditor{})

	_, err := svc.ChangeStatus(txContext(), uuid.New(), StatusActive, "", Actor{UserID: "u1", Role: RoleBD})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestChangeStatus_AuditFailureAbortsTransaction(t *testing.T) {
	repo := &mockRepo{
		state:    &PatientState{ID: uuid.New(), Status: StatusPending},
		updateOK: true,
	}
	svc := newTestService(repo, &mockAuditor{fail: true})

	_, err := svc.ChangeStatus(txContext(), repo.state.ID, StatusActive, "", Actor{UserID: "u1", Role: RoleBD})
	if err == nil {
		t.Fatal("audit failure inside the transaction must surface as an error")
	}
}

func TestPreview(t *testing.T) {
	repo := &mockRepo{state: &PatientState{ID: uuid.New(), Status: StatusActive}}
	svc := newTestService(repo, &mockAuditor{})

	res, err := svc.Preview(context.Background(), repo.state.ID, StatusConsulted, RoleBD)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if !res.IsValid {
		t.Errorf("expected valid preview, got %q", res.Error)
	}
	if len(repo.history) != 0 {
		t.Error("preview must not persist anything")
	}
}
