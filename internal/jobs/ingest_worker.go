package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for an ingest job
	MaxRetries = 3

	claimBatchSize = 20
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending moves up to limit pending jobs to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	IncrementRetries(ctx context.Context, id string) error
}

// DocumentIndexer re-chunks, re-embeds and replaces the vectors of a stored document
type DocumentIndexer interface {
	ReindexDocument(ctx context.Context, documentID string) (int, error)
}

// IngestWorker processes ingest jobs
type IngestWorker struct {
	repo    IngestJobRepository
	indexer DocumentIndexer
}

func NewIngestWorker(repo IngestJobRepository, indexer DocumentIndexer) *IngestWorker {
	return &IngestWorker{
		repo:    repo,
		indexer: indexer,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("processing %d ingest jobs", len(jobs))

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	if job.DocumentID == "" {
		return w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, "job has no document_id")
	}

	ctx, span := telemetry.StartTransaction(ctx, "ingest.job", "queue.process")
	defer span.End()
	span.SetData("job_id", job.ID)
	span.SetData("document_id", job.DocumentID)
	span.SetData("retries", job.Retries)

	log.Printf("processing job %s for document %s", job.ID, job.DocumentID)
	n, err := w.indexer.ReindexDocument(ctx, job.DocumentID)
	if err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	span.SetData("vectors", n)
	span.SetOK()
	log.Printf("job %s completed: %d vectors", job.ID, n)
	return nil
}

// handleJobFailure retries transient failures and fails permanent ones at once.
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("job %s failed: %v", job.ID, jobErr)

	if isPermanent(jobErr) {
		telemetry.CaptureMessage(ctx, fmt.Sprintf("ingest job %s failed permanently: %v", job.ID, jobErr))
		return w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, jobErr.Error())
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureMessage(ctx, fmt.Sprintf("ingest job %s exceeded max retries: %v", job.ID, jobErr))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

// isPermanent reports errors that retrying cannot fix.
func isPermanent(err error) bool {
	switch domain.CodeOf(err) {
	case domain.ErrCodeNotFound, domain.ErrCodeValidation, domain.ErrCodeInvalidOperation:
		return true
	}
	return false
}
