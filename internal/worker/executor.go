package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/metrics"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
	"github.com/stocklink/stocklink/internal/syncer"
)

// Executor runs one dequeued sync job end to end: it rebuilds the job's
// account scope, primes the dependency pre-cache, processes the work through
// the orchestrator and records the terminal state on the queue.
type Executor struct {
	queue    repository.Queue
	accounts repository.Account
	settings repository.Settings
	cache    precache.Service
	orch     *syncer.Orchestrator
	api      remote.API

	retryDelay time.Duration
}

// NewExecutor creates a job executor. retryDelay spaces the individual
// retry jobs spawned by a partially failed chunk; zero falls back to the
// default.
func NewExecutor(
	queue repository.Queue,
	accounts repository.Account,
	settings repository.Settings,
	cache precache.Service,
	orch *syncer.Orchestrator,
	api remote.API,
	retryDelay time.Duration,
) *Executor {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Executor{
		queue:      queue,
		accounts:   accounts,
		settings:   settings,
		cache:      cache,
		orch:       orch,
		api:        api,
		retryDelay: retryDelay,
	}
}

// Execute runs one job. It never returns an error: every outcome ends in
// MarkCompleted, Reschedule or MarkFailed on the queue.
func (e *Executor) Execute(ctx context.Context, job *domain.SyncJob) {
	ctx = logger.WithJobID(ctx, job.ID)
	log := logger.FromContext(ctx)

	report, err := e.run(ctx, job)
	if err == nil {
		metrics.JobsCompleted.WithLabelValues(job.Operation).Inc()
		metrics.RecordReport(string(job.EntityType), report.Succeeded, report.Skipped, report.Failed)
		if err := e.queue.MarkCompleted(ctx, job.ID); err != nil {
			log.Error("failed to mark job completed", "error", err)
			return
		}
		log.Info(LogMsgJobCompleted, "operation", job.Operation, "type", job.EntityType,
			"succeeded", report.Succeeded, "skipped", report.Skipped,
			"failed", report.Failed, "retried", report.Retried)
		return
	}

	if retryAfter, limited := remote.IsRateLimited(err); limited {
		metrics.RateLimitDeferrals.Inc()
		if job.Attempts < maxAttempts {
			metrics.JobsRescheduled.WithLabelValues(job.Operation).Inc()
			if err := e.queue.Reschedule(ctx, job.ID, time.Now().Add(retryAfter)); err != nil {
				log.Error("failed to reschedule job", "error", err)
				return
			}
			log.Warn(LogMsgJobDeferred, "operation", job.Operation,
				"retry_after", retryAfter, "attempts", job.Attempts)
			return
		}
		// Quota never recovered across maxAttempts deferrals.
	}

	metrics.JobsFailed.WithLabelValues(job.Operation).Inc()
	if mErr := e.queue.MarkFailed(ctx, job.ID, err.Error()); mErr != nil {
		log.Error("failed to mark job failed", "error", mErr)
	}
	log.Error(LogMsgJobFailed, "operation", job.Operation, "type", job.EntityType,
		"attempts", job.Attempts, "error", err)
}

// run rebuilds the job's scope and dispatches on the operation.
func (e *Executor) run(ctx context.Context, job *domain.SyncJob) (domain.BatchReport, error) {
	run, err := e.buildRun(ctx, job)
	if err != nil {
		return domain.BatchReport{}, err
	}
	if run == nil {
		// The link was deactivated after the job was enqueued.
		return domain.BatchReport{}, nil
	}

	// Cached metadata must not leak across account pairs. The reset is
	// pair-scoped so concurrent jobs for other pairs keep their state.
	defer e.cache.Reset(run)

	switch job.Operation {
	case domain.OperationBatchSync:
		return e.runBatch(ctx, run, job)
	case domain.OperationEntitySync:
		return e.runEntity(ctx, run, job)
	case domain.OperationFolderSync:
		return e.runFolder(ctx, run, job)
	default:
		return domain.BatchReport{}, fmt.Errorf("%w: unknown job operation %q", domain.ErrInvalidInput, job.Operation)
	}
}

// buildRun loads the link, both accounts and the settings of a job. A nil
// run with nil error means the link is no longer active and the job should
// complete as a no-op.
func (e *Executor) buildRun(ctx context.Context, job *domain.SyncJob) (*precache.Run, error) {
	link, err := e.accounts.GetLink(ctx, job.LinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to load link %q: %w", job.LinkID, err)
	}
	if !link.IsActive() {
		logger.FromContext(ctx).Info("link no longer active, dropping job", "link_id", link.ID)
		return nil, nil
	}

	parent, err := e.accounts.GetAccount(ctx, link.ParentAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent account: %w", err)
	}
	child, err := e.accounts.GetAccount(ctx, link.ChildAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child account: %w", err)
	}
	cfg, err := e.settings.GetByLinkID(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync settings: %w", err)
	}

	return &precache.Run{Parent: parent, Child: child, Link: link, Settings: cfg}, nil
}

// runBatch executes one chunk job: prime the pre-cache, bulk-resolve the
// chunk's folders, process the chunk and spawn individual retry jobs for
// items that failed.
func (e *Executor) runBatch(ctx context.Context, run *precache.Run, job *domain.SyncJob) (domain.BatchReport, error) {
	var payload domain.BatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return domain.BatchReport{}, fmt.Errorf("failed to decode batch payload: %w", err)
	}

	if err := e.cache.CacheAll(ctx, run); err != nil {
		return domain.BatchReport{}, err
	}
	if _, err := e.orch.PreSyncFolders(ctx, run, payload.Entities); err != nil {
		return domain.BatchReport{}, err
	}

	report, retryIDs, err := e.orch.ProcessChunk(ctx, run, job.EntityType, payload.Entities)
	if err != nil {
		return report, err
	}
	e.enqueueRetries(ctx, job, retryIDs)
	return report, nil
}

// runEntity executes one single-entity job: fetch the current parent-side
// state and push it through the same chunk pipeline with a chunk of one.
func (e *Executor) runEntity(ctx context.Context, run *precache.Run, job *domain.SyncJob) (domain.BatchReport, error) {
	log := logger.FromContext(ctx)

	sync, ok := e.orch.Syncer(job.EntityType)
	if !ok {
		return domain.BatchReport{}, fmt.Errorf("%w: no syncer for entity type %q", domain.ErrInvalidInput, job.EntityType)
	}

	entity, err := e.api.FetchEntity(ctx, run.Parent, sync.Endpoint(), job.EntityID)
	if err != nil {
		if remote.IsNotFound(err) {
			// Deleted upstream between enqueue and execution.
			log.Info("entity gone from parent account, dropping job", "entity_id", job.EntityID)
			return domain.BatchReport{Total: 1, Skipped: 1}, nil
		}
		return domain.BatchReport{}, fmt.Errorf("failed to fetch entity %q: %w", job.EntityID, err)
	}
	if !sync.PostFilter(entity) {
		log.Debug("entity dropped by post-filter", "entity_id", job.EntityID)
		return domain.BatchReport{Total: 1, Skipped: 1}, nil
	}

	if err := e.cache.CacheAll(ctx, run); err != nil {
		return domain.BatchReport{}, err
	}
	chunk := []domain.Entity{*entity}
	if _, err := e.orch.PreSyncFolders(ctx, run, chunk); err != nil {
		return domain.BatchReport{}, err
	}

	report, retryIDs, err := e.orch.ProcessChunk(ctx, run, job.EntityType, chunk)
	if err != nil {
		return report, err
	}
	// A single-entity job is its own retry unit: a failed item fails the
	// job instead of spawning another retry job.
	if len(retryIDs) > 0 {
		return report, fmt.Errorf("failed to sync entity %q", job.EntityID)
	}
	return report, nil
}

// runFolder resolves one parent folder on the child side, creating it when
// the link allows folder creation.
func (e *Executor) runFolder(ctx context.Context, run *precache.Run, job *domain.SyncJob) (domain.BatchReport, error) {
	log := logger.FromContext(ctx)

	folder, err := e.api.FetchEntity(ctx, run.Parent, endpointFolder, job.EntityID)
	if err != nil {
		if remote.IsNotFound(err) {
			log.Info("folder gone from parent account, dropping job", "entity_id", job.EntityID)
			return domain.BatchReport{Total: 1, Skipped: 1}, nil
		}
		return domain.BatchReport{}, fmt.Errorf("failed to fetch folder %q: %w", job.EntityID, err)
	}

	carrier := domain.Entity{
		Folder: &domain.Ref{ID: folder.ID, Type: string(domain.EntityFolder), Name: folder.Name},
	}
	if _, err := e.orch.PreSyncFolders(ctx, run, []domain.Entity{carrier}); err != nil {
		return domain.BatchReport{}, err
	}
	return domain.BatchReport{Total: 1, Succeeded: 1}, nil
}

// enqueueRetries turns a chunk's failed items into individual delayed
// single-entity jobs. Retries are best-effort: an enqueue failure is logged,
// never surfaced, so one broken retry cannot fail an otherwise completed
// chunk.
func (e *Executor) enqueueRetries(ctx context.Context, job *domain.SyncJob, retryIDs []string) {
	if len(retryIDs) == 0 {
		return
	}
	log := logger.FromContext(ctx)

	now := time.Now()
	for i, id := range retryIDs {
		retry := &domain.SyncJob{
			AccountID:   job.AccountID,
			LinkID:      job.LinkID,
			EntityType:  job.EntityType,
			EntityID:    id,
			Operation:   domain.OperationEntitySync,
			Priority:    domain.PriorityRetry,
			ScheduledAt: now.Add(time.Duration(i+1) * e.retryDelay),
		}
		if err := e.queue.Enqueue(ctx, retry); err != nil {
			log.Error("failed to enqueue retry job", "entity_id", id, "error", err)
			continue
		}
		metrics.JobsEnqueued.WithLabelValues(domain.OperationEntitySync).Inc()
	}
	log.Warn("chunk items deferred to individual retries", "type", job.EntityType, "count", len(retryIDs))
}
