package audit

import "context"

// EventFilter narrows event listings. Zero values mean "no constraint".
type EventFilter struct {
	Action    string
	TableName string
	UserID    string
}

// AccessFilter narrows SSN access listings.
type AccessFilter struct {
	UserID    string
	PatientID string
	Action    string
}

// Repository is append-only by contract: rows are never updated or
// deleted, only inserted and listed.
type Repository interface {
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*Event, int, error)

	AppendSSNAccess(ctx context.Context, a *SSNAccess) error
	ListSSNAccess(ctx context.Context, filter AccessFilter, limit, offset int) ([]*SSNAccess, int, error)
}
