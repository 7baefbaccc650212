package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/morphlabs/roomctx/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed ingest job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll picks up
	claimBatchSize = 10
)

// IngestJobStore is the job queue surface the worker needs.
type IngestJobStore interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) (int, error)
}

// DocumentProcessor chunks and embeds one document's raw text.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID, rawText string) error
}

// IngestWorker drains pending document ingest jobs.
type IngestWorker struct {
	store     IngestJobStore
	processor DocumentProcessor
}

func NewIngestWorker(store IngestJobStore, processor DocumentProcessor) *IngestWorker {
	return &IngestWorker{store: store, processor: processor}
}

// ProcessJobs claims a batch of pending jobs and runs them sequentially. Per-
// job failures are retried up to MaxRetries; they never abort the batch.
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.store.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("claiming pending ingest jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("ingest: processing %d pending jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("ingest: job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	if err := w.processor.ProcessDocument(ctx, job.DocumentID, job.RawText); err != nil {
		return w.handleFailure(ctx, job, err)
	}

	if err := w.store.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}

	log.Printf("ingest: job %s completed for document %s", job.ID, job.DocumentID)
	return nil
}

func (w *IngestWorker) handleFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	retries, err := w.store.IncrementRetries(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("incrementing retries: %w", err)
	}

	if retries >= MaxRetries {
		log.Printf("ingest: job %s exceeded max retries, marking failed", job.ID)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.store.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("marking job failed: %w", err)
		}
		return nil
	}

	log.Printf("ingest: job %s will be retried (attempt %d/%d)", job.ID, retries, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", retries, jobErr)
	if err := w.store.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("resetting job to pending: %w", err)
	}

	return nil
}
