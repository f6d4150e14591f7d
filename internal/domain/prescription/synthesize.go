package prescription

import (
	"strconv"
	"strings"
	"time"

	"github.com/funkyjh/pilllog/internal/domain/medication"
)

// UnknownMedicationName is used when no name could be extracted.
const UnknownMedicationName = "알 수 없는 약물"

// maxCourseDays bounds day counts read from OCR text so the end date stays a
// representable timestamp. Larger values are treated as unparseable.
const maxCourseDays = 1_000_000

// Synthesize builds an insertable medication from extracted fields. Prescribed
// and start dates are both now; the end date is derived from Duration when it
// starts with a day count.
func Synthesize(f ExtractedFields, userID string, now time.Time) *medication.Medication {
	m := &medication.Medication{
		UserID:       userID,
		Name:         UnknownMedicationName,
		Dosage:       f.Dosage,
		Frequency:    f.Frequency,
		Duration:     f.Duration,
		HospitalName: f.HospitalName,
		DoctorName:   f.DoctorName,
		Effect:       f.Effect,
		IsActive:     true,
	}
	if f.Name != nil && *f.Name != "" {
		m.Name = *f.Name
	}

	start := now
	prescribed := now
	m.PrescribedDate = &prescribed
	m.StartDate = &start

	if f.Duration != nil {
		if days, ok := leadingDays(*f.Duration); ok {
			end := start.AddDate(0, 0, days)
			m.EndDate = &end
		}
	}
	return m
}

// leadingDays parses the integer prefix of a duration such as "7일" or "14".
// Zero is accepted and yields an end date equal to the start.
func leadingDays(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n > maxCourseDays {
		return 0, false
	}
	return n, true
}
