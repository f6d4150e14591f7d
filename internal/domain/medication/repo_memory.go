package medication

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu   sync.RWMutex
	meds map[uuid.UUID]*Medication
}

// NewMemoryRepo returns a Repository kept in process memory. Contents are lost
// on restart.
func NewMemoryRepo() Repository {
	return &memoryRepo{meds: make(map[uuid.UUID]*Medication)}
}

func (r *memoryRepo) Create(_ context.Context, m *Medication) error {
	m.ID = uuid.New()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	cp := *m
	r.mu.Lock()
	r.meds[m.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meds[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string) ([]*Medication, error) {
	r.mu.RLock()
	result := make([]*Medication, 0)
	for _, m := range r.meds {
		if m.UserID != userID {
			continue
		}
		cp := *m
		result = append(result, &cp)
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool { return lessForListing(result[i], result[j]) })
	return result, nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, p Patch) (*Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meds[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Apply(m)
	cp := *m
	return &cp, nil
}
