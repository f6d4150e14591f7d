package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"

	"github.com/funkyjh/pilllog/internal/platform/db"
)

// PGStore keeps blobs in the image_blobs table so images survive restarts
// alongside the records that reference them.
type PGStore struct {
	q       db.Querier
	maxSize int64
}

func NewPGStore(q db.Querier, maxSize int64) *PGStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &PGStore{q: q, maxSize: maxSize}
}

func (s *PGStore) Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	data, err := readLimited(&meta, content, s.maxSize)
	if err != nil {
		return nil, err
	}
	err = s.q.QueryRow(ctx, `
		INSERT INTO image_blobs (id, file_name, content_type, size, hash, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		meta.ID, meta.FileName, meta.ContentType, meta.Size, meta.Hash, data,
	).Scan(&meta.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert blob: %w", err)
	}
	return &meta, nil
}

func (s *PGStore) Get(ctx context.Context, id string) ([]byte, *Metadata, error) {
	var meta Metadata
	var data []byte
	err := s.q.QueryRow(ctx, `
		SELECT id, file_name, content_type, size, hash, created_at, content
		FROM image_blobs WHERE id = $1`, id,
	).Scan(&meta.ID, &meta.FileName, &meta.ContentType, &meta.Size, &meta.Hash, &meta.CreatedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get blob: %w", err)
	}
	return data, &meta, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM image_blobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlobNotFound
	}
	return nil
}
