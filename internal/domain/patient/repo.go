package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("patient not found")
	ErrDuplicateSSN = errors.New("patient with this resident registration number already exists")
)

// Filter narrows List queries. Zero values mean "no constraint".
type Filter struct {
	Status    string
	ManagerID string
	// Query matches against name, phone and email.
	Query string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetBySSNHash(ctx context.Context, hash string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Delete soft-deletes; the row stays for the audit trail.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Patient, int, error)
}
