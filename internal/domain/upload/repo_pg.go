package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funkyjh/pilllog/internal/platform/db"
)

type uploadRepoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &uploadRepoPG{q: q}
}

const uploadCols = `id, user_id, file_name, original_url, extracted_text, processing_status, medication_id, created_at`

func scanUpload(row pgx.Row) (*Upload, error) {
	var u Upload
	err := row.Scan(&u.ID, &u.UserID, &u.FileName, &u.OriginalURL, &u.ExtractedText,
		&u.ProcessingStatus, &u.MedicationID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *uploadRepoPG) Create(ctx context.Context, u *Upload) error {
	u.ID = uuid.New()
	return r.q.QueryRow(ctx, `
		INSERT INTO image_uploads (id, user_id, file_name, original_url, extracted_text, processing_status, medication_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.UserID, u.FileName, u.OriginalURL, u.ExtractedText, u.ProcessingStatus, u.MedicationID,
	).Scan(&u.CreatedAt)
}

func (r *uploadRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Upload, error) {
	return scanUpload(r.q.QueryRow(ctx, `SELECT `+uploadCols+` FROM image_uploads WHERE id = $1`, id))
}

func (r *uploadRepoPG) ListByUser(ctx context.Context, userID string) ([]*Upload, error) {
	rows, err := r.q.Query(ctx, `SELECT `+uploadCols+` FROM image_uploads
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	items := make([]*Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *uploadRepoPG) Update(ctx context.Context, id uuid.UUID, p Update) (*Upload, error) {
	return scanUpload(r.q.QueryRow(ctx, `
		UPDATE image_uploads SET
			extracted_text    = COALESCE($2, extracted_text),
			processing_status = COALESCE($3, processing_status),
			medication_id     = COALESCE($4, medication_id)
		WHERE id = $1
		RETURNING `+uploadCols,
		id, p.ExtractedText, p.Status, p.MedicationID))
}
