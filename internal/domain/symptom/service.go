package symptom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/funkyjh/pilllog/internal/domain/medication"
)

// Medications is the part of the medication service symptoms depend on.
type Medications interface {
	Get(ctx context.Context, userID string, id uuid.UUID) (*medication.Medication, error)
	List(ctx context.Context, userID string) ([]*medication.Medication, error)
}

type Service struct {
	repo Repository
	meds Medications
}

func NewService(repo Repository, meds Medications) *Service {
	return &Service{repo: repo, meds: meds}
}

// Create validates and stores a record. The medication must belong to the
// same user.
func (s *Service) Create(ctx context.Context, r *Record) error {
	if r.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalid)
	}
	if r.MedicationID == uuid.Nil {
		return fmt.Errorf("%w: medicationId is required", ErrInvalid)
	}
	if r.PainLevel < MinPainLevel || r.PainLevel > MaxPainLevel {
		return fmt.Errorf("%w: painLevel must be between %d and %d", ErrInvalid, MinPainLevel, MaxPainLevel)
	}

	symptoms := make([]string, 0, len(r.Symptoms))
	for _, sym := range r.Symptoms {
		if sym = strings.TrimSpace(sym); sym != "" {
			symptoms = append(symptoms, sym)
		}
	}
	if r.Symptoms != nil {
		r.Symptoms = symptoms
	}

	if _, err := s.meds.Get(ctx, r.UserID, r.MedicationID); err != nil {
		if errors.Is(err, medication.ErrNotFound) {
			return fmt.Errorf("%w: unknown medicationId", ErrInvalid)
		}
		return fmt.Errorf("lookup medication: %w", err)
	}
	return s.repo.Create(ctx, r)
}

func (s *Service) List(ctx context.Context, userID string, f Filter) ([]*Record, error) {
	return s.repo.ListByUser(ctx, userID, f)
}
