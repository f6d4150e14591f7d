package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funkyjh/pilllog/internal/domain/medication"
	"github.com/funkyjh/pilllog/internal/platform/blobstore"
	"github.com/funkyjh/pilllog/internal/platform/ocr"
)

const testUser = "demo-user-id"

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type failingMedications struct{}

func (failingMedications) Create(context.Context, *medication.Medication) error {
	return errors.New("database unavailable")
}

type processorFixture struct {
	proc    *Processor
	uploads Repository
	blobs   *blobstore.MemoryStore
	meds    medication.Repository
}

func newTestProcessor(t *testing.T, rec ocr.Recognizer, cfg ProcessorConfig) *processorFixture {
	t.Helper()
	f := &processorFixture{
		uploads: NewMemoryRepo(),
		blobs:   blobstore.NewMemoryStore(0),
		meds:    medication.NewMemoryRepo(),
	}
	f.proc = NewProcessor(cfg, f.uploads, f.blobs, rec, f.meds, zerolog.Nop())
	f.proc.now = func() time.Time { return fixedNow }
	return f
}

func staticText(text string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, []byte) (string, error) { return text, nil })
}

func (f *processorFixture) seed(t *testing.T) *Upload {
	t.Helper()
	ctx := context.Background()
	blob, err := f.blobs.Put(ctx, blobstore.Metadata{FileName: "rx.jpg", ContentType: "image/jpeg"}, strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("put blob: %v", err)
	}
	u := &Upload{UserID: testUser, FileName: "rx.jpg", OriginalURL: blob.ID, ProcessingStatus: StatusProcessing}
	if err := f.uploads.Create(ctx, u); err != nil {
		t.Fatalf("create upload: %v", err)
	}
	return u
}

func (f *processorFixture) get(t *testing.T, id uuid.UUID) *Upload {
	t.Helper()
	u, err := f.uploads.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get upload: %v", err)
	}
	return u
}

func (f *processorFixture) medicationCount(t *testing.T) int {
	t.Helper()
	items, err := f.meds.ListByUser(context.Background(), testUser)
	if err != nil {
		t.Fatalf("list medications: %v", err)
	}
	return len(items)
}

func TestProcessor_CreatesMedication(t *testing.T) {
	f := newTestProcessor(t, staticText("약품명: 아스피린\n용법용량: 1일 2회\n병원명: 서울병원"), DefaultProcessorConfig())
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	got := f.get(t, u.ID)
	if got.ProcessingStatus != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.ProcessingStatus)
	}
	if got.ExtractedText == nil || !strings.HasPrefix(*got.ExtractedText, "약품명: 아스피린") {
		t.Errorf("expected extracted text to be stored, got %v", got.ExtractedText)
	}
	if got.MedicationID == nil {
		t.Fatal("expected medicationId to be linked")
	}

	m, err := f.meds.GetByID(context.Background(), *got.MedicationID)
	if err != nil {
		t.Fatalf("get medication: %v", err)
	}
	if m.Name != "아스피린" {
		t.Errorf("name: got %q", m.Name)
	}
	if m.HospitalName == nil || *m.HospitalName != "서울병원" {
		t.Errorf("hospital: got %v", m.HospitalName)
	}
	if m.UserID != testUser || !m.IsActive {
		t.Errorf("unexpected medication %+v", m)
	}
	if m.StartDate == nil || !m.StartDate.Equal(fixedNow) {
		t.Errorf("startDate: got %v", m.StartDate)
	}
	if m.Frequency == nil || *m.Frequency != "용법용량: 1일 2회" {
		t.Errorf("frequency: got %v", m.Frequency)
	}
	if m.Dosage == nil || *m.Dosage != "1일 2회" {
		t.Errorf("dosage: got %v", m.Dosage)
	}
}

func TestProcessor_LargeDurationStillCreatesMedication(t *testing.T) {
	rec := staticText("약품명: 타이레놀\n투여일수: 200000일")
	f := newTestProcessor(t, rec, DefaultProcessorConfig())
	// Route creation through the service so its date checks apply.
	f.proc = NewProcessor(DefaultProcessorConfig(), f.uploads, f.blobs, rec, medication.NewService(f.meds), zerolog.Nop())
	f.proc.now = func() time.Time { return fixedNow }
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	got := f.get(t, u.ID)
	if got.ProcessingStatus != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.ProcessingStatus)
	}
	if got.MedicationID == nil {
		t.Fatal("expected medicationId to be linked")
	}
	m, err := f.meds.GetByID(context.Background(), *got.MedicationID)
	if err != nil {
		t.Fatalf("get medication: %v", err)
	}
	if m.EndDate == nil || !m.EndDate.Equal(fixedNow.AddDate(0, 0, 200000)) {
		t.Errorf("endDate: got %v", m.EndDate)
	}
}

func TestProcessor_RecognitionFailure(t *testing.T) {
	rec := ocr.RecognizerFunc(func(context.Context, []byte) (string, error) {
		return "", &ocr.RecognitionError{Err: ocr.ErrNoTextDetected}
	})
	f := newTestProcessor(t, rec, DefaultProcessorConfig())
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	got := f.get(t, u.ID)
	if got.ProcessingStatus != StatusFailed {
		t.Errorf("expected failed, got %s", got.ProcessingStatus)
	}
	if got.MedicationID != nil {
		t.Error("expected no medication link")
	}
	if got.ExtractedText != nil {
		t.Error("expected no extracted text")
	}
	if n := f.medicationCount(t); n != 0 {
		t.Errorf("expected no medications, got %d", n)
	}
}

func TestProcessor_NoNameCompletesWithoutMedication(t *testing.T) {
	f := newTestProcessor(t, staticText("영수증\n합계 5,000원"), DefaultProcessorConfig())
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	got := f.get(t, u.ID)
	if got.ProcessingStatus != StatusCompleted {
		t.Errorf("expected completed, got %s", got.ProcessingStatus)
	}
	if got.MedicationID != nil {
		t.Error("expected no medication link")
	}
	if n := f.medicationCount(t); n != 0 {
		t.Errorf("expected no medications, got %d", n)
	}
}

func TestProcessor_MedicationCreateFailure(t *testing.T) {
	f := newTestProcessor(t, staticText("약품명: 타이레놀"), DefaultProcessorConfig())
	f.proc.medications = failingMedications{}
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	if got := f.get(t, u.ID); got.ProcessingStatus != StatusFailed {
		t.Errorf("expected failed, got %s", got.ProcessingStatus)
	}
}

func TestProcessor_PanicMarksFailed(t *testing.T) {
	rec := ocr.RecognizerFunc(func(context.Context, []byte) (string, error) {
		panic("boom")
	})
	f := newTestProcessor(t, rec, DefaultProcessorConfig())
	u := f.seed(t)

	f.proc.Process(context.Background(), u.ID)

	if got := f.get(t, u.ID); got.ProcessingStatus != StatusFailed {
		t.Errorf("expected failed, got %s", got.ProcessingStatus)
	}
}

func TestProcessor_MissingBlob(t *testing.T) {
	f := newTestProcessor(t, staticText("약품명: 타이레놀"), DefaultProcessorConfig())
	u := &Upload{UserID: testUser, FileName: "rx.jpg", OriginalURL: "missing", ProcessingStatus: StatusProcessing}
	f.uploads.Create(context.Background(), u)

	f.proc.Process(context.Background(), u.ID)

	if got := f.get(t, u.ID); got.ProcessingStatus != StatusFailed {
		t.Errorf("expected failed, got %s", got.ProcessingStatus)
	}
}

func TestProcessor_SkipsTerminalUploads(t *testing.T) {
	called := false
	rec := ocr.RecognizerFunc(func(context.Context, []byte) (string, error) {
		called = true
		return "", nil
	})
	f := newTestProcessor(t, rec, DefaultProcessorConfig())
	u := f.seed(t)
	failed := StatusFailed
	f.uploads.Update(context.Background(), u.ID, Update{Status: &failed})

	f.proc.Process(context.Background(), u.ID)

	if called {
		t.Error("expected recognizer not to be called for a finished upload")
	}
	if got := f.get(t, u.ID); got.ProcessingStatus != StatusFailed {
		t.Errorf("expected status to stay failed, got %s", got.ProcessingStatus)
	}
}

func TestProcessor_EnqueueFull(t *testing.T) {
	f := newTestProcessor(t, staticText(""), ProcessorConfig{Workers: 1, QueueSize: 1})

	if err := f.proc.Enqueue(uuid.New()); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := f.proc.Enqueue(uuid.New()); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if f.proc.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", f.proc.Pending())
	}
}

func TestProcessor_RunProcessesQueue(t *testing.T) {
	f := newTestProcessor(t, staticText("약품명: 아스피린"), ProcessorConfig{Workers: 2, QueueSize: 8})
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		u := f.seed(t)
		ids = append(ids, u.ID)
		if err := f.proc.Enqueue(u.ID); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.proc.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for _, id := range ids {
		for f.get(t, id).ProcessingStatus != StatusCompleted {
			if time.Now().After(deadline) {
				t.Fatalf("upload %s not completed in time", id)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if n := f.medicationCount(t); n != len(ids) {
		t.Errorf("expected %d medications, got %d", len(ids), n)
	}
}

func TestProcessor_ShutdownFailsQueued(t *testing.T) {
	rec := ocr.RecognizerFunc(func(ctx context.Context, _ []byte) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", &ocr.RecognitionError{Err: err}
		}
		return "약품명: 아스피린", nil
	})
	f := newTestProcessor(t, rec, ProcessorConfig{Workers: 1, QueueSize: 4})
	u := f.seed(t)
	f.proc.Enqueue(u.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.proc.Run(ctx)

	if got := f.get(t, u.ID); got.ProcessingStatus != StatusFailed {
		t.Errorf("expected failed after shutdown, got %s", got.ProcessingStatus)
	}
	if f.proc.Pending() != 0 {
		t.Errorf("expected queue to be drained, got %d", f.proc.Pending())
	}
}
