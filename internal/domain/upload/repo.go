package upload

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("upload not found")
	ErrInvalidStatus = errors.New("invalid processing status")
)

type Repository interface {
	Create(ctx context.Context, u *Upload) error
	GetByID(ctx context.Context, id uuid.UUID) (*Upload, error)
	// ListByUser returns the user's uploads, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Upload, error)
	Update(ctx context.Context, id uuid.UUID, p Update) (*Upload, error)
}
