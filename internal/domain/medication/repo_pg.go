package medication

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funkyjh/pilllog/internal/platform/db"
)

type medicationRepoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &medicationRepoPG{q: q}
}

const medCols = `id, user_id, name, dosage, frequency, duration, hospital_name, doctor_name,
	prescribed_date, start_date, end_date, effect, is_active, created_at`

func scanMed(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &m.Duration,
		&m.HospitalName, &m.DoctorName, &m.PrescribedDate, &m.StartDate, &m.EndDate,
		&m.Effect, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	return r.q.QueryRow(ctx, `
		INSERT INTO medications (id, user_id, name, dosage, frequency, duration,
			hospital_name, doctor_name, prescribed_date, start_date, end_date, effect, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at`,
		m.ID, m.UserID, m.Name, m.Dosage, m.Frequency, m.Duration,
		m.HospitalName, m.DoctorName, m.PrescribedDate, m.StartDate, m.EndDate,
		m.Effect, m.IsActive).Scan(&m.CreatedAt)
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMed(r.q.QueryRow(ctx, `SELECT `+medCols+` FROM medications WHERE id = $1`, id))
}

func (r *medicationRepoPG) ListByUser(ctx context.Context, userID string) ([]*Medication, error) {
	rows, err := r.q.Query(ctx, `SELECT `+medCols+` FROM medications
		WHERE user_id = $1 ORDER BY is_active DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	items := make([]*Medication, 0)
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *medicationRepoPG) Update(ctx context.Context, id uuid.UUID, p Patch) (*Medication, error) {
	return scanMed(r.q.QueryRow(ctx, `
		UPDATE medications SET
			name = COALESCE($2, name),
			dosage = COALESCE($3, dosage),
			frequency = COALESCE($4, frequency),
			duration = COALESCE($5, duration),
			hospital_name = COALESCE($6, hospital_name),
			doctor_name = COALESCE($7, doctor_name),
			prescribed_date = COALESCE($8, prescribed_date),
			start_date = COALESCE($9, start_date),
			end_date = COALESCE($10, end_date),
			effect = COALESCE($11, effect),
			is_active = COALESCE($12, is_active)
		WHERE id = $1
		RETURNING `+medCols,
		id, p.Name, p.Dosage, p.Frequency, p.Duration, p.HospitalName, p.DoctorName,
		p.PrescribedDate, p.StartDate, p.EndDate, p.Effect, p.IsActive))
}
