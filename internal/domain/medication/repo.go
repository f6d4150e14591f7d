package medication

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("medication not found")
	ErrInvalid  = errors.New("invalid medication")
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	// ListByUser returns the user's medications, active first then newest first.
	ListByUser(ctx context.Context, userID string) ([]*Medication, error)
	// Update applies a partial update and returns the stored result.
	// It returns ErrNotFound when id does not exist.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Medication, error)
}
