package workflow

import (
	"strings"
	"testing"
)

func statusListEqual(a, b []Status) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestValidateTransition_PendingToActiveByBD(t *testing.T) {
	res := ValidateTransition(StatusPending, StatusActive, RoleBD)
	if !res.IsValid {
		t.Fatalf("expected valid transition, got error %q", res.Error)
	}
	if res.RequiresNote {
		t.Error("pending -> active must not require a note")
	}
	if !statusListEqual(res.AllowedNextStatuses, []Status{StatusActive}) {
		t.Errorf("expected allowed next [active], got %v", res.AllowedNextStatuses)
	}
}

func TestValidateTransition_MissingEdgeListsAllowedTargets(t *testing.T) {
	res := ValidateTransition(StatusActive, Status("inactive"), RoleCS)
	if res.IsValid {
		t.Fatal("expected rejection for a nonexistent edge")
	}
	want := "'active'에서 'inactive'로 직접 변경할 수 없습니다."
	if !strings.Contains(res.Error, want) {
		t.Errorf("expected message containing %q, got %q", want, res.Error)
	}
	if !statusListEqual(res.AllowedNextStatuses, []Status{StatusConsulted, StatusClosed}) {
		t.Errorf("expected allowed next [consulted closed], got %v", res.AllowedNextStatuses)
	}
}

func TestValidateTransition_SelfTransitionRejected(t *testing.T) {
	res := ValidateTransition(StatusActive, StatusActive, RoleAdmin)
	if res.IsValid {
		t.Fatal("self-transition must be rejected even for admin")
	}
	if !strings.Contains(res.Error, "이미") {
		t.Errorf("unexpected message %q", res.Error)
	}
}

func TestValidateTransition_RoleNotAllowed(t *testing.T) {
	// The edge exists but BD does not own the reservation phase.
	res := ValidateTransition(StatusReservationInProgress, StatusReservationCompleted, RoleBD)
	if res.IsValid {
		t.Fatal("bd must not complete reservations")
	}
	if !strings.Contains(res.Error, "'bd' 권한") {
		t.Errorf("message should name the denied role, got %q", res.Error)
	}

	// Same edge is open to CS.
	if res := ValidateTransition(StatusReservationInProgress, StatusReservationCompleted, RoleCS); !res.IsValid {
		t.Errorf("cs should complete reservations, got error %q", res.Error)
	}
}

func TestValidateTransition_InvalidInputs(t *testing.T) {
	if res := ValidateTransition(Status("limbo"), StatusActive, RoleAdmin); res.IsValid {
		t.Error("unknown current status must be rejected")
	}
	if res := ValidateTransition(StatusPending, StatusActive, Role("intern")); res.IsValid {
		t.Error("unknown role must be rejected")
	}
}

func TestValidateTransition_ReactivationEdge(t *testing.T) {
	res := ValidateTransition(StatusClosed, StatusPending, RoleManager)
	if !res.IsValid {
		t.Fatalf("manager must be able to reactivate, got %q", res.Error)
	}
	if !res.RequiresNote {
		t.Error("reactivation must require a note")
	}

	if res := ValidateTransition(StatusClosed, StatusPending, RoleBD); res.IsValid {
		t.Error("bd must not reactivate closed patients")
	}
}

func TestAvailableStatuses_FiltersByRole(t *testing.T) {
	got := AvailableStatuses(StatusActive, RoleBD)
	if !statusListEqual(got, []Status{StatusConsulted, StatusClosed}) {
		t.Errorf("bd from active: got %v", got)
	}
	if got := AvailableStatuses(StatusActive, RoleCS); len(got) != 0 {
		t.Errorf("cs has no transitions from active, got %v", got)
	}
	if got := AvailableStatuses(StatusClosed, RoleAdmin); !statusListEqual(got, []Status{StatusPending}) {
		t.Errorf("admin from closed: got %v", got)
	}
}

func TestNoteRequired_DistinguishesMissingRule(t *testing.T) {
	required, ok := NoteRequired(StatusActive, StatusClosed)
	if !ok || !required {
		t.Errorf("active -> closed: got (%v, %v), want (true, true)", required, ok)
	}
	required, ok = NoteRequired(StatusPending, StatusActive)
	if !ok || required {
		t.Errorf("pending -> active: got (%v, %v), want (false, true)", required, ok)
	}
	if _, ok := NoteRequired(StatusPending, StatusClosed); ok {
		t.Error("missing rule must report ok=false, not a defaulted value")
	}
}

func TestAutoAssignsManager(t *testing.T) {
	assigns, ok := AutoAssignsManager(StatusConsulted, StatusReservationInProgress)
	if !ok || !assigns {
		t.Errorf("handover edge: got (%v, %v), want (true, true)", assigns, ok)
	}
	assigns, ok = AutoAssignsManager(StatusPending, StatusActive)
	if !ok || assigns {
		t.Errorf("pending -> active: got (%v, %v), want (false, true)", assigns, ok)
	}
	if _, ok := AutoAssignsManager(StatusActive, StatusPending); ok {
		t.Error("missing rule must report ok=false")
	}
}

func TestIsHandoverToCS(t *testing.T) {
	if !IsHandoverToCS(StatusConsulted, StatusReservationInProgress) {
		t.Error("consulted -> reservation_in_progress is the handover edge")
	}
	for _, rule := range transitionTable {
		if rule.From == StatusConsulted && rule.To == StatusReservationInProgress {
			continue
		}
		if IsHandoverToCS(rule.From, rule.To) {
			t.Errorf("unexpected handover edge %s -> %s", rule.From, rule.To)
		}
	}
}

func TestStatusManagedByRole(t *testing.T) {
	for _, status := range AllStatuses {
		if !StatusManagedByRole(status, RoleAdmin) {
			t.Errorf("admin must manage %s", status)
		}
		if !StatusManagedByRole(status, RoleManager) {
			t.Errorf("manager must manage %s", status)
		}
	}

	if !StatusManagedByRole(StatusPending, RoleBD) || StatusManagedByRole(StatusPending, RoleCS) {
		t.Error("pending belongs to bd, not cs")
	}
	if !StatusManagedByRole(StatusReservationInProgress, RoleCS) || StatusManagedByRole(StatusReservationInProgress, RoleBD) {
		t.Error("reservation_in_progress belongs to cs, not bd")
	}
	if !StatusManagedByRole(StatusClosed, RoleBD) || !StatusManagedByRole(StatusClosed, RoleCS) {
		t.Error("closed shows on both bd and cs dashboards")
	}
	if StatusManagedByRole(StatusActive, RoleDoctor) {
		t.Error("doctor has no workflow dashboard")
	}
}

func TestValidateTable(t *testing.T) {
	if err := ValidateTable(); err != nil {
		t.Fatalf("shipped table must validate: %v", err)
	}
}

func TestValidateTable_DetectsDuplicateEdge(t *testing.T) {
	original := transitionTable
	defer func() { transitionTable = original }()

	transitionTable = append(append([]Rule{}, original...), Rule{
		From: StatusPending, To: StatusActive, AllowedRoles: []Role{RoleCS},
	})
	if err := ValidateTable(); err == nil {
		t.Fatal("duplicate (from, to) edge must fail validation")
	}
}

func TestValidateTable_DetectsMissingOutgoing(t *testing.T) {
	original := transitionTable
	defer func() { transitionTable = original }()

	var trimmed []Rule
	for _, rule := range original {
		if rule.From == StatusClosed {
			continue
		}
		trimmed = append(trimmed, rule)
	}
	transitionTable = trimmed
	if err := ValidateTable(); err == nil {
		t.Fatal("a status with no outgoing edges must fail validation")
	}
}

func TestTransitionGraph_EveryStatusReachable(t *testing.T) {
	reached := map[Status]bool{StatusPending: true}
	for changed := true; changed; {
		changed = false
		for _, rule := range transitionTable {
			if reached[rule.From] && !reached[rule.To] {
				reached[rule.To] = true
				changed = true
			}
		}
	}
	for _, status := range AllStatuses {
		if !reached[status] {
			t.Errorf("status %s is unreachable from pending", status)
		}
	}
}
