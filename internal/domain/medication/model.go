package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication maps to the medications table. Optional prescription details are
// nil when unknown.
type Medication struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"userId"`
	Name           string     `db:"name" json:"name"`
	Dosage         *string    `db:"dosage" json:"dosage,omitempty"`
	Frequency      *string    `db:"frequency" json:"frequency,omitempty"`
	Duration       *string    `db:"duration" json:"duration,omitempty"`
	HospitalName   *string    `db:"hospital_name" json:"hospitalName,omitempty"`
	DoctorName     *string    `db:"doctor_name" json:"doctorName,omitempty"`
	PrescribedDate *time.Time `db:"prescribed_date" json:"prescribedDate,omitempty"`
	StartDate      *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate        *time.Time `db:"end_date" json:"endDate,omitempty"`
	Effect         *string    `db:"effect" json:"effect,omitempty"`
	IsActive       bool       `db:"is_active" json:"isActive"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Patch is a partial update. Only non-nil fields are applied.
type Patch struct {
	Name           *string    `json:"name,omitempty"`
	Dosage         *string    `json:"dosage,omitempty"`
	Frequency      *string    `json:"frequency,omitempty"`
	Duration       *string    `json:"duration,omitempty"`
	HospitalName   *string    `json:"hospitalName,omitempty"`
	DoctorName     *string    `json:"doctorName,omitempty"`
	PrescribedDate *time.Time `json:"prescribedDate,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Effect         *string    `json:"effect,omitempty"`
	IsActive       *bool      `json:"isActive,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Dosage == nil && p.Frequency == nil && p.Duration == nil &&
		p.HospitalName == nil && p.DoctorName == nil && p.PrescribedDate == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Effect == nil && p.IsActive == nil
}

// Apply copies the patch's set fields onto m.
func (p Patch) Apply(m *Medication) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = p.Dosage
	}
	if p.Frequency != nil {
		m.Frequency = p.Frequency
	}
	if p.Duration != nil {
		m.Duration = p.Duration
	}
	if p.HospitalName != nil {
		m.HospitalName = p.HospitalName
	}
	if p.DoctorName != nil {
		m.DoctorName = p.DoctorName
	}
	if p.PrescribedDate != nil {
		m.PrescribedDate = p.PrescribedDate
	}
	if p.StartDate != nil {
		m.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		m.EndDate = p.EndDate
	}
	if p.Effect != nil {
		m.Effect = p.Effect
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
}

// lessForListing orders active medications first, then newest first.
func lessForListing(a, b *Medication) bool {
	if a.IsActive != b.IsActive {
		return a.IsActive
	}
	return a.CreatedAt.After(b.CreatedAt)
}
