package scheduler

import (
	"context"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/metrics"
	"github.com/stocklink/stocklink/internal/repository"
)

// QueueRetentionTask deletes finished jobs older than the retention window,
// keeping the queue table bounded.
func QueueRetentionTask(queue repository.Queue, window time.Duration) Task {
	return func(ctx context.Context) error {
		deleted, err := queue.DeleteFinishedBefore(ctx, time.Now().Add(-window))
		if err != nil {
			return err
		}
		if deleted > 0 {
			logger.FromContext(ctx).Info("pruned finished sync jobs", "deleted", deleted)
		}
		return nil
	}
}

// QueueDepthTask feeds the queue-depth gauge from queue statistics. Statuses
// absent from the stats are zeroed so a drained status does not keep its
// last value.
func QueueDepthTask(queue repository.Queue) Task {
	statuses := []domain.JobStatus{domain.JobPending, domain.JobProcessing, domain.JobCompleted, domain.JobFailed}
	return func(ctx context.Context) error {
		stats, err := queue.Stats(ctx)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(stats[status]))
		}
		return nil
	}
}
