package medication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateDates(m *Medication) error {
	if m.StartDate != nil && m.EndDate != nil && m.EndDate.Before(*m.StartDate) {
		return fmt.Errorf("%w: endDate must not be before startDate", ErrInvalid)
	}
	return nil
}

// Create validates and stores a medication. New medications are active.
func (s *Service) Create(ctx context.Context, m *Medication) error {
	if m.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalid)
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := validateDates(m); err != nil {
		return err
	}
	return s.repo.Create(ctx, m)
}

// Get returns the medication when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Medication, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Medication, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update applies a partial update to one of userID's medications.
func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, p Patch) (*Medication, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	preview := *current
	p.Apply(&preview)
	if err := validateDates(&preview); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return current, nil
	}
	m, err := s.repo.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return m, nil
}
