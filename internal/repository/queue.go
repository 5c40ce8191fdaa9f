package repository

import (
	"context"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
)

// Queue is the persistent sync job queue. Executors share it: Dequeue
// claims one due pending job exclusively and flips it to processing.
type Queue interface {
	Enqueue(ctx context.Context, job *domain.SyncJob) error

	// Dequeue claims the highest-priority due pending job, marks it
	// processing and increments its attempt counter. Returns
	// domain.ErrQueueEmpty when nothing is due.
	Dequeue(ctx context.Context) (*domain.SyncJob, error)

	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, lastError string) error

	// Reschedule pushes a processing job back to pending at a later time,
	// used when the remote quota forces a deferral.
	Reschedule(ctx context.Context, jobID string, at time.Time) error

	// Stats returns job counts by status.
	Stats(ctx context.Context) (map[domain.JobStatus]int, error)

	// DeleteFinishedBefore removes completed and failed jobs older than
	// the cutoff; returns how many rows went away.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
