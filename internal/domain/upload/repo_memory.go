package upload

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu      sync.RWMutex
	uploads map[uuid.UUID]*Upload
}

func NewMemoryRepo() Repository {
	return &memoryRepo{uploads: make(map[uuid.UUID]*Upload)}
}

func copyUpload(u *Upload) *Upload {
	cp := *u
	if u.ExtractedText != nil {
		t := *u.ExtractedText
		cp.ExtractedText = &t
	}
	if u.MedicationID != nil {
		id := *u.MedicationID
		cp.MedicationID = &id
	}
	return &cp
}

func (r *memoryRepo) Create(_ context.Context, u *Upload) error {
	u.ID = uuid.New()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.uploads[u.ID] = copyUpload(u)
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUpload(u), nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string) ([]*Upload, error) {
	r.mu.RLock()
	result := make([]*Upload, 0)
	for _, u := range r.uploads {
		if u.UserID == userID {
			result = append(result, copyUpload(u))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, p Update) (*Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.apply(u)
	return copyUpload(u), nil
}
