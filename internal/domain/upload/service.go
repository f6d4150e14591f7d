package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funkyjh/pilllog/internal/platform/blobstore"
)

const acceptedMessage = "Image uploaded successfully. Processing in progress..."

// Enqueuer hands an accepted upload to background processing. It must not
// block.
type Enqueuer interface {
	Enqueue(id uuid.UUID) error
}

type Service struct {
	repo   Repository
	blobs  blobstore.Store
	queue  Enqueuer
	logger zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, queue Enqueuer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, queue: queue, logger: logger}
}

// Accept stores the image, records the upload as processing and queues it.
// It returns as soon as the upload is queued. When the queue is full the
// upload is recorded as failed and ErrQueueFull is returned.
func (s *Service) Accept(ctx context.Context, userID, fileName, contentType string, data io.Reader) (*Upload, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	if fileName == "" {
		fileName = "upload"
	}
	if err := blobstore.ValidateImageType(contentType); err != nil {
		return nil, err
	}

	blob, err := s.blobs.Put(ctx, blobstore.Metadata{FileName: fileName, ContentType: contentType}, data)
	if err != nil {
		return nil, err
	}

	u := &Upload{
		UserID:           userID,
		FileName:         fileName,
		OriginalURL:      blob.ID,
		ProcessingStatus: StatusProcessing,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if delErr := s.blobs.Delete(ctx, blob.ID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("blob_id", blob.ID).Msg("failed to remove orphaned blob")
		}
		return nil, fmt.Errorf("create upload: %w", err)
	}

	if err := s.queue.Enqueue(u.ID); err != nil {
		failed := StatusFailed
		if _, uerr := s.repo.Update(ctx, u.ID, Update{Status: &failed}); uerr != nil {
			s.logger.Error().Err(uerr).Str("upload_id", u.ID.String()).Msg("failed to mark rejected upload")
		}
		return nil, err
	}

	s.logger.Info().
		Str("upload_id", u.ID.String()).
		Str("file_name", fileName).
		Int64("size", blob.Size).
		Msg("upload accepted")
	return u, nil
}

// Get returns the upload when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Upload, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.UserID != userID {
		return nil, ErrNotFound
	}
	return u, nil
}

// List returns the user's uploads newest first, optionally limited to one
// status.
func (s *Service) List(ctx context.Context, userID string, status Status) ([]*Upload, error) {
	if status != "" && !validStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return items, nil
	}
	filtered := make([]*Upload, 0, len(items))
	for _, u := range items {
		if u.ProcessingStatus == status {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// Image returns the original bytes of one of userID's uploads.
func (s *Service) Image(ctx context.Context, userID string, id uuid.UUID) ([]byte, *blobstore.Metadata, error) {
	u, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	data, meta, err := s.blobs.Get(ctx, u.OriginalURL)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, nil, ErrNotFound
	}
	return data, meta, err
}
