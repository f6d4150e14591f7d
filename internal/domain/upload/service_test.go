package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funkyjh/pilllog/internal/platform/blobstore"
)

type recordingQueue struct {
	ids []uuid.UUID
	err error
}

func (q *recordingQueue) Enqueue(id uuid.UUID) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func newTestService(q Enqueuer) (*Service, Repository, *blobstore.MemoryStore) {
	repo := NewMemoryRepo()
	blobs := blobstore.NewMemoryStore(16)
	return NewService(repo, blobs, q, zerolog.Nop()), repo, blobs
}

func TestService_Accept(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, blobs := newTestService(q)
	ctx := context.Background()

	u, err := svc.Accept(ctx, testUser, "rx.jpg", "image/jpeg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ProcessingStatus != StatusProcessing {
		t.Errorf("expected processing, got %s", u.ProcessingStatus)
	}
	if len(q.ids) != 1 || q.ids[0] != u.ID {
		t.Errorf("expected upload to be enqueued, got %v", q.ids)
	}

	stored, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, meta, err := blobs.Get(ctx, stored.OriginalURL)
	if err != nil {
		t.Fatalf("expected blob for upload: %v", err)
	}
	if string(data) != "jpeg" || meta.FileName != "rx.jpg" {
		t.Errorf("unexpected blob %q %+v", data, meta)
	}
}

func TestService_Accept_RejectsNonImage(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, _ := newTestService(q)

	_, err := svc.Accept(context.Background(), testUser, "rx.pdf", "application/pdf", strings.NewReader("pdf"))
	if !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Fatalf("expected ErrInvalidContentType, got %v", err)
	}
	items, _ := repo.ListByUser(context.Background(), testUser)
	if len(items) != 0 || len(q.ids) != 0 {
		t.Error("rejected upload must not be recorded or queued")
	}
}

func TestService_Accept_TooLarge(t *testing.T) {
	svc, _, _ := newTestService(&recordingQueue{})
	_, err := svc.Accept(context.Background(), testUser, "big.jpg", "image/jpeg", strings.NewReader(strings.Repeat("x", 17)))
	if !errors.Is(err, blobstore.ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestService_Accept_QueueFull(t *testing.T) {
	svc, repo, _ := newTestService(&recordingQueue{err: ErrQueueFull})

	_, err := svc.Accept(context.Background(), testUser, "rx.jpg", "image/jpeg", strings.NewReader("jpeg"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	items, _ := repo.ListByUser(context.Background(), testUser)
	if len(items) != 1 {
		t.Fatalf("expected the rejected upload to be recorded, got %d", len(items))
	}
	if items[0].ProcessingStatus != StatusFailed {
		t.Errorf("expected failed, got %s", items[0].ProcessingStatus)
	}
}

func TestService_Get_OtherUser(t *testing.T) {
	svc, repo, _ := newTestService(&recordingQueue{})
	u := &Upload{UserID: "someone-else", FileName: "a.jpg", ProcessingStatus: StatusProcessing}
	repo.Create(context.Background(), u)

	if _, err := svc.Get(context.Background(), testUser, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_List_NewestFirstWithFilter(t *testing.T) {
	svc, repo, _ := newTestService(&recordingQueue{})
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.Create(ctx, &Upload{UserID: testUser, FileName: "old", ProcessingStatus: StatusCompleted, CreatedAt: base})
	repo.Create(ctx, &Upload{UserID: testUser, FileName: "new", ProcessingStatus: StatusFailed, CreatedAt: base.Add(time.Hour)})
	repo.Create(ctx, &Upload{UserID: testUser, FileName: "mid", ProcessingStatus: StatusCompleted, CreatedAt: base.Add(time.Minute)})

	all, err := svc.List(ctx, testUser, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].FileName != "new" || all[2].FileName != "old" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].FileName, all[1].FileName, all[2].FileName)
	}

	completed, err := svc.List(ctx, testUser, StatusCompleted)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 2 || completed[0].FileName != "mid" {
		t.Errorf("unexpected filtered result: %d items", len(completed))
	}

	if _, err := svc.List(ctx, testUser, "done"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestService_Image(t *testing.T) {
	svc, _, _ := newTestService(&recordingQueue{})
	ctx := context.Background()
	u, err := svc.Accept(ctx, testUser, "rx.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	data, meta, err := svc.Image(ctx, testUser, u.ID)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if string(data) != "png" || meta.ContentType != "image/png" {
		t.Errorf("unexpected image %q %+v", data, meta)
	}

	if _, _, err := svc.Image(ctx, "other", u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
}
