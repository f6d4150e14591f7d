package symptom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/funkyjh/pilllog/internal/platform/db"
)

type symptomRepoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &symptomRepoPG{q: q}
}

func (r *symptomRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	var symptoms []byte
	if rec.Symptoms != nil {
		var err error
		if symptoms, err = json.Marshal(rec.Symptoms); err != nil {
			return fmt.Errorf("marshal symptoms: %w", err)
		}
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO symptom_records (id, user_id, medication_id, pain_level, symptoms, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING recorded_at`,
		rec.ID, rec.UserID, rec.MedicationID, rec.PainLevel, symptoms, rec.Notes,
	).Scan(&rec.RecordedAt)
}

func (r *symptomRepoPG) ListByUser(ctx context.Context, userID string, f Filter) ([]*Record, error) {
	query := `SELECT id, user_id, medication_id, pain_level, symptoms, notes, recorded_at
		FROM symptom_records WHERE user_id = $1`
	args := []interface{}{userID}
	if f.MedicationID != nil {
		query += ` AND medication_id = $2`
		args = append(args, *f.MedicationID)
	}
	query += ` ORDER BY recorded_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list symptom records: %w", err)
	}
	defer rows.Close()

	items := make([]*Record, 0)
	for rows.Next() {
		var rec Record
		var symptoms []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.MedicationID, &rec.PainLevel,
			&symptoms, &rec.Notes, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan symptom record: %w", err)
		}
		if len(symptoms) > 0 {
			if err := json.Unmarshal(symptoms, &rec.Symptoms); err != nil {
				return nil, fmt.Errorf("unmarshal symptoms: %w", err)
			}
		}
		items = append(items, &rec)
	}
	return items, rows.Err()
}
