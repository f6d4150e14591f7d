package symptom

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu      sync.RWMutex
	records []*Record
}

func NewMemoryRepo() Repository {
	return &memoryRepo{}
}

func copyRecord(r *Record) *Record {
	cp := *r
	if r.Symptoms != nil {
		cp.Symptoms = append([]string(nil), r.Symptoms...)
	}
	if r.Notes != nil {
		n := *r.Notes
		cp.Notes = &n
	}
	return &cp
}

func (m *memoryRepo) Create(_ context.Context, r *Record) error {
	r.ID = uuid.New()
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.records = append(m.records, copyRecord(r))
	m.mu.Unlock()
	return nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID string, f Filter) ([]*Record, error) {
	m.mu.RLock()
	result := make([]*Record, 0)
	for _, r := range m.records {
		if r.UserID == userID && f.matches(r) {
			result = append(result, copyRecord(r))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})
	return result, nil
}
