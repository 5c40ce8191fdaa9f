package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklink/stocklink/internal/domain"
)

// QueueRepository implements the persistent sync queue for PostgreSQL.
type QueueRepository struct {
	db *pgxpool.Pool
}

// NewQueueRepository creates a new QueueRepository
func NewQueueRepository(db *pgxpool.Pool) *QueueRepository {
	return &QueueRepository{db: db}
}

const jobColumns = `id, account_id, link_id, entity_type, entity_id, operation, priority,
	scheduled_at, status, attempts, payload, last_error, created_at, updated_at`

// Enqueue inserts a new pending job
func (r *QueueRepository) Enqueue(ctx context.Context, job *domain.SyncJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now()
	}
	job.Status = domain.JobPending

	query := `
		INSERT INTO sync_queue (id, account_id, link_id, entity_type, entity_id,
			operation, priority, scheduled_at, status, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID, job.AccountID, job.LinkID, job.EntityType, job.EntityID,
		job.Operation, job.Priority, job.ScheduledAt, job.Status, job.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue claims the next due pending job with SKIP LOCKED so concurrent
// executors never double-claim.
func (r *QueueRepository) Dequeue(ctx context.Context) (*domain.SyncJob, error) {
	query := `
		UPDATE sync_queue
		SET status = 'processing', attempts = attempts + 1, updated_at = now()
		WHERE id = (
			SELECT id FROM sync_queue
			WHERE status = 'pending' AND scheduled_at <= now()
			ORDER BY priority, scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return job, nil
}

// MarkCompleted finishes a job successfully
func (r *QueueRepository) MarkCompleted(ctx context.Context, jobID string) error {
	return r.setStatus(ctx, jobID, domain.JobCompleted, "")
}

// MarkFailed finishes a job with an error message
func (r *QueueRepository) MarkFailed(ctx context.Context, jobID string, lastError string) error {
	return r.setStatus(ctx, jobID, domain.JobFailed, lastError)
}

func (r *QueueRepository) setStatus(ctx context.Context, jobID string, status domain.JobStatus, lastError string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sync_queue SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		jobID, status, lastError,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	return nil
}

// Reschedule pushes a processing job back to pending at a later time
func (r *QueueRepository) Reschedule(ctx context.Context, jobID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sync_queue SET status = 'pending', scheduled_at = $2, updated_at = now() WHERE id = $1`,
		jobID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	return nil
}

// Stats returns job counts by status
func (r *QueueRepository) Stats(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status domain.JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

// DeleteFinishedBefore removes completed/failed jobs older than the cutoff
func (r *QueueRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sync_queue WHERE status IN ('completed', 'failed') AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*domain.SyncJob, error) {
	var job domain.SyncJob
	err := row.Scan(
		&job.ID,
		&job.AccountID,
		&job.LinkID,
		&job.EntityType,
		&job.EntityID,
		&job.Operation,
		&job.Priority,
		&job.ScheduledAt,
		&job.Status,
		&job.Attempts,
		&job.Payload,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
