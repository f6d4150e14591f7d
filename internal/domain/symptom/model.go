package symptom

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinPainLevel = 0
	MaxPainLevel = 10
)

// Record is one symptom check-in for a medication. Records are immutable once
// stored.
type Record struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	MedicationID uuid.UUID `json:"medicationId" db:"medication_id"`
	PainLevel    int       `json:"painLevel" db:"pain_level"`
	Symptoms     []string  `json:"symptoms" db:"symptoms"`
	Notes        *string   `json:"notes" db:"notes"`
	RecordedAt   time.Time `json:"recordedAt" db:"recorded_at"`
}

// Filter narrows a listing to one medication when MedicationID is set.
type Filter struct {
	MedicationID *uuid.UUID
}

func (f Filter) matches(r *Record) bool {
	return f.MedicationID == nil || r.MedicationID == *f.MedicationID
}
