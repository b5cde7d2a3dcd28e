package survey

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrTokenNotFound = errors.New("survey token not found")
	ErrTokenExpired  = errors.New("survey token expired")
	ErrTokenUsed     = errors.New("survey token already used")
)

type Repository interface {
	Create(ctx context.Context, t *Token) error
	GetByValue(ctx context.Context, value string) (*Token, error)
	// MarkUsed consumes the token, conditioned on it being unused.
	// Returns false when another submission won the race.
	MarkUsed(ctx context.Context, id uuid.UUID, patientID uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Token, int, error)
}
