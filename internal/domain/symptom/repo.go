package symptom

import (
	"context"
	"errors"
)

var (
	ErrInvalid = errors.New("invalid symptom record")
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	// ListByUser returns matching records, newest first.
	ListByUser(ctx context.Context, userID string, f Filter) ([]*Record, error)
}
