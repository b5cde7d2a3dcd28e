package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	byID map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockRepo) CountOverlapping(_ context.Context, managerID string, start, end time.Time) (int, error) {
	count := 0
	for _, a := range m.byID {
		if a.ManagerID != managerID || a.Status == StatusCancelled || a.Status == StatusNoShow {
			continue
		}
		if a.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.byID {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByDay(_ context.Context, managerID string, day time.Time) ([]*Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	var out []*Appointment
	for _, a := range m.byID {
		if a.ManagerID == managerID && !a.StartsAt.Before(dayStart) && a.StartsAt.Before(dayEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func validInput() CreateInput {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	return CreateInput{
		PatientID: uuid.New(),
		ManagerID: "mgr-1",
		Type:      "consultation",
		StartsAt:  start,
		EndsAt:    start.Add(30 * time.Minute),
	}
}

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	a, err := svc.Create(context.Background(), validInput(), "u1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if a.Status != StatusBooked {
		t.Errorf("new appointment status %q, want booked", a.Status)
	}
	if a.CreatedBy != "u1" {
		t.Errorf("created_by %q, want u1", a.CreatedBy)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing patient", func(in *CreateInput) { in.PatientID = uuid.Nil }},
		{"missing manager", func(in *CreateInput) { in.ManagerID = "" }},
		{"unknown type", func(in *CreateInput) { in.Type = "walk-in" }},
		{"end before start", func(in *CreateInput) { in.EndsAt = in.StartsAt.Add(-time.Minute) }},
		{"zero-length window", func(in *CreateInput) { in.EndsAt = in.StartsAt }},
		{"in the past", func(in *CreateInput) {
			in.StartsAt = time.Now().UTC().Add(-time.Hour)
			in.EndsAt = in.StartsAt.Add(30 * time.Minute)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Create(ctx, in, "u1"); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreate_DoubleBooking(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	first := validInput()
	if _, err := svc.Create(ctx, first, "u1"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Same manager, overlapping window.
	second := validInput()
	second.StartsAt = first.StartsAt.Add(15 * time.Minute)
	second.EndsAt = second.StartsAt.Add(30 * time.Minute)
	if _, err := svc.Create(ctx, second, "u1"); !errors.Is(err, ErrDoubleBooked) {
		t.Fatalf("expected ErrDoubleBooked, got %v", err)
	}

	// Adjacent window is fine: [start, end) does not include end.
	adjacent := validInput()
	adjacent.StartsAt = first.EndsAt
	adjacent.EndsAt = adjacent.StartsAt.Add(30 * time.Minute)
	if _, err := svc.Create(ctx, adjacent, "u1"); err != nil {
		t.Errorf("back-to-back booking should be allowed, got %v", err)
	}

	// Different manager, overlapping window is fine.
	other := validInput()
	other.ManagerID = "mgr-2"
	if _, err := svc.Create(ctx, other, "u1"); err != nil {
		t.Errorf("other manager may book the same window, got %v", err)
	}
}

func TestCreate_CancelledSlotCanBeRebooked(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	in := validInput()
	a, err := svc.Create(ctx, in, "u1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCancelled); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}

	rebook := validInput()
	rebook.PatientID = uuid.New()
	if _, err := svc.Create(ctx, rebook, "u1"); err != nil {
		t.Errorf("cancelled appointments must not block the window, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput(), "u1")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, a.ID, StatusFulfilled)
	if err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if updated.Status != StatusFulfilled {
		t.Errorf("status %q, want fulfilled", updated.Status)
	}

	// Fulfilled is terminal.
	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCancelled); err == nil {
		t.Error("fulfilled appointment must not change status again")
	}

	if _, err := svc.UpdateStatus(ctx, a.ID, "rescheduled"); err == nil {
		t.Error("unknown status must be rejected")
	}

	if _, err := svc.UpdateStatus(ctx, uuid.New(), StatusCancelled); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
