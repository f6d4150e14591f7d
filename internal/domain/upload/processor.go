package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funkyjh/pilllog/internal/domain/medication"
	"github.com/funkyjh/pilllog/internal/domain/prescription"
	"github.com/funkyjh/pilllog/internal/platform/blobstore"
	"github.com/funkyjh/pilllog/internal/platform/ocr"
)

var ErrQueueFull = errors.New("upload queue is full")

const failureWriteTimeout = 5 * time.Second

// MedicationCreator persists medications synthesized from uploads.
type MedicationCreator interface {
	Create(ctx context.Context, m *medication.Medication) error
}

type ProcessorConfig struct {
	Workers   int
	QueueSize int
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{Workers: 4, QueueSize: 64}
}

// Processor runs recognition for accepted uploads on a fixed pool of workers
// fed by a bounded queue.
type Processor struct {
	uploads     Repository
	blobs       blobstore.Store
	recognizer  ocr.Recognizer
	medications MedicationCreator
	workers     int
	queue       chan uuid.UUID
	now         func() time.Time
	logger      zerolog.Logger
}

func NewProcessor(
	cfg ProcessorConfig,
	uploads Repository,
	blobs blobstore.Store,
	recognizer ocr.Recognizer,
	medications MedicationCreator,
	logger zerolog.Logger,
) *Processor {
	def := DefaultProcessorConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Processor{
		uploads:     uploads,
		blobs:       blobs,
		recognizer:  recognizer,
		medications: medications,
		workers:     cfg.Workers,
		queue:       make(chan uuid.UUID, cfg.QueueSize),
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("component", "upload-processor").Logger(),
	}
}

// Enqueue schedules an upload without blocking.
func (p *Processor) Enqueue(id uuid.UUID) error {
	select {
	case p.queue <- id:
		return nil
	default:
		p.logger.Warn().Str("upload_id", id.String()).Msg("upload queue full")
		return ErrQueueFull
	}
}

// Pending returns the number of queued uploads not yet picked up.
func (p *Processor) Pending() int {
	return len(p.queue)
}

// Run starts the workers and blocks until ctx is cancelled. In-flight jobs
// observe the cancellation; uploads still queued at shutdown are marked
// failed.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info().Int("workers", p.workers).Int("queue_size", cap(p.queue)).Msg("upload processor started")

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()

	p.failQueued(ctx)
	p.logger.Info().Msg("upload processor stopped")
	return nil
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			p.Process(ctx, id)
		}
	}
}

func (p *Processor) failQueued(ctx context.Context) {
	for {
		select {
		case id := <-p.queue:
			log := p.logger.With().Str("upload_id", id.String()).Logger()
			log.Warn().Msg("upload dropped at shutdown")
			p.markFailed(ctx, id, log)
		default:
			return
		}
	}
}

// Process runs one upload to a terminal state. Errors and panics are logged
// and recorded as a failed upload; nothing propagates to the caller.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) {
	log := p.logger.With().Str("upload_id", id.String()).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("upload processing panicked")
			p.markFailed(ctx, id, log)
		}
	}()

	if err := p.process(ctx, id, log); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("upload processing failed")
		p.markFailed(ctx, id, log)
		return
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("upload processed")
}

func (p *Processor) process(ctx context.Context, id uuid.UUID, log zerolog.Logger) error {
	u, err := p.uploads.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load upload: %w", err)
	}
	if u.Terminal() {
		log.Warn().Str("status", string(u.ProcessingStatus)).Msg("upload already finished, skipping")
		return nil
	}

	image, _, err := p.blobs.Get(ctx, u.OriginalURL)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	text, err := p.recognizer.Recognize(ctx, image)
	if err != nil {
		return err
	}

	completed := StatusCompleted
	if _, err := p.uploads.Update(ctx, id, Update{ExtractedText: &text, Status: &completed}); err != nil {
		return fmt.Errorf("store extracted text: %w", err)
	}
	log.Debug().Int("chars", len(text)).Msg("text attached")

	fields := prescription.Extract(text)
	if !fields.HasName() {
		log.Info().Msg("no medication name found")
		return nil
	}

	m := prescription.Synthesize(fields, u.UserID, p.now())
	if err := p.medications.Create(ctx, m); err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	if _, err := p.uploads.Update(ctx, id, Update{MedicationID: &m.ID}); err != nil {
		return fmt.Errorf("link medication %s: %w", m.ID, err)
	}
	log.Info().Str("medication_id", m.ID.String()).Str("name", m.Name).Msg("medication created from upload")
	return nil
}

// markFailed records the failure even when ctx is already cancelled.
func (p *Processor) markFailed(ctx context.Context, id uuid.UUID, log zerolog.Logger) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	failed := StatusFailed
	if _, err := p.uploads.Update(wctx, id, Update{Status: &failed}); err != nil {
		log.Error().Err(err).Msg("failed to mark upload as failed")
	}
}
