package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/filter"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/metrics"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/repository"
	"github.com/stocklink/stocklink/internal/syncer"
)

// Service turns catalog collections into bounded queue jobs and fans
// single-entity changes out across child accounts.
type Service interface {
	// LoadAndCreateBatchTasks fetches one catalog kind under the link's
	// filter strategy and enqueues one job per chunk. Returns jobs created.
	LoadAndCreateBatchTasks(ctx context.Context, run *precache.Run, t domain.EntityType) (int, error)

	// LoadAndCreateAssortmentBatchTasks fetches all enabled catalog kinds
	// from the combined assortment endpoint in one pass, pre-syncs the
	// folders of everything kept, then enqueues per-kind chunk jobs.
	LoadAndCreateAssortmentBatchTasks(ctx context.Context, run *precache.Run) (int, error)

	// SyncEntityToChildren enqueues one single-entity job per active,
	// sync-enabled child link, spreading the schedule to avoid bursting.
	SyncEntityToChildren(ctx context.Context, parentAccountID string, t domain.EntityType, entityID string) (int, error)

	// SyncAllDirect synchronizes one kind without the queue, bounding peak
	// memory by working in small sub-groups. Fallback for deployments that
	// run the engine as a one-shot command.
	SyncAllDirect(ctx context.Context, run *precache.Run, t domain.EntityType) (domain.BatchReport, error)
}

type service struct {
	loader   *Loader
	queue    repository.Queue
	accounts repository.Account
	settings repository.Settings
	orch     *syncer.Orchestrator
	cache    precache.Service

	chunkSize   int
	maxBytes    int
	fanoutDelay time.Duration
}

func NewService(
	loader *Loader,
	queue repository.Queue,
	accounts repository.Account,
	settings repository.Settings,
	orch *syncer.Orchestrator,
	cache precache.Service,
	chunkSize, maxBytes int,
	fanoutDelay time.Duration,
) Service {
	return &service{
		loader:      loader,
		queue:       queue,
		accounts:    accounts,
		settings:    settings,
		orch:        orch,
		cache:       cache,
		chunkSize:   chunkSize,
		maxBytes:    maxBytes,
		fanoutDelay: fanoutDelay,
	}
}

// pairLookup binds the pre-cache's attribute metadata to one run, so
// strategy selection only ever sees the right account pair.
type pairLookup struct {
	cache precache.Service
	run   *precache.Run
}

func (p pairLookup) AttributeQueryField(attributeID string) (string, bool) {
	return p.cache.AttributeQueryField(p.run, attributeID)
}

// primeLookup makes sure the attribute metadata behind the run's filter is
// known before strategy selection. Without it a fresh process would lower
// nothing and fall back to client-side fetches.
func (s *service) primeLookup(ctx context.Context, run *precache.Run) (filter.MetadataLookup, error) {
	if !run.Settings.Filter.IsEmpty() {
		if err := s.cache.PrimeAttributeMetadata(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to prime attribute metadata: %w", err)
		}
	}
	return pairLookup{cache: s.cache, run: run}, nil
}

func (s *service) LoadAndCreateBatchTasks(ctx context.Context, run *precache.Run, t domain.EntityType) (int, error) {
	log := logger.FromContext(ctx)

	if !run.Settings.TypeEnabled(t) {
		log.Debug("entity type disabled for link, skipping", "type", t, "link_id", run.Link.ID)
		return 0, nil
	}
	sync, ok := s.orch.Syncer(t)
	if !ok {
		return 0, fmt.Errorf("%w: no syncer for entity type %q", domain.ErrInvalidInput, t)
	}

	lookup, err := s.primeLookup(ctx, run)
	if err != nil {
		return 0, err
	}
	rows, strategy, err := s.loader.Load(ctx, run.Parent, sync.Endpoint(), run.Settings.Filter, lookup)
	if err != nil {
		return 0, err
	}
	kept := postFilter(sync, rows)

	jobs, err := s.createChunkJobs(ctx, run, t, kept, domain.PriorityManual)
	if err != nil {
		return 0, err
	}
	log.Info("batch tasks created",
		"type", t, "strategy", strategy, "fetched", len(rows), "kept", len(kept), "jobs", jobs)
	return jobs, nil
}

func (s *service) LoadAndCreateAssortmentBatchTasks(ctx context.Context, run *precache.Run) (int, error) {
	log := logger.FromContext(ctx)

	lookup, err := s.primeLookup(ctx, run)
	if err != nil {
		return 0, err
	}
	rows, strategy, err := s.loader.Load(ctx, run.Parent, endpointAssortment, run.Settings.Filter, lookup)
	if err != nil {
		return 0, err
	}

	// Split the combined collection back out by kind, applying each kind's
	// post-filter independently.
	byKind := make(map[domain.EntityType][]domain.Entity)
	var union []domain.Entity
	for i := range rows {
		t := rows[i].Type
		if !run.Settings.TypeEnabled(t) {
			continue
		}
		sync, ok := s.orch.Syncer(t)
		if !ok || !sync.PostFilter(&rows[i]) {
			continue
		}
		byKind[t] = append(byKind[t], rows[i])
		union = append(union, rows[i])
	}

	// Folder pre-sync across the union, so per-entity folder lookups during
	// job execution are store hits.
	if _, err := s.orch.PreSyncFolders(ctx, run, union); err != nil {
		return 0, err
	}

	total := 0
	for _, t := range domain.CatalogTypes {
		entities, ok := byKind[t]
		if !ok {
			continue
		}
		jobs, err := s.createChunkJobs(ctx, run, t, entities, domain.PriorityManual)
		if err != nil {
			return total, err
		}
		total += jobs
	}

	log.Info("assortment batch tasks created",
		"strategy", strategy, "fetched", len(rows), "kept", len(union), "jobs", total)
	return total, nil
}

func (s *service) SyncEntityToChildren(ctx context.Context, parentAccountID string, t domain.EntityType, entityID string) (int, error) {
	log := logger.FromContext(ctx)

	links, err := s.accounts.ListActiveLinks(ctx, parentAccountID)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	now := time.Now()
	for _, link := range links {
		cfg, err := s.settings.GetByLinkID(ctx, link.ID)
		if err != nil {
			log.Debug("link has no sync settings, skipping", "link_id", link.ID)
			continue
		}
		if !cfg.TypeEnabled(t) {
			continue
		}

		// Increasing delay per child spreads remote load instead of
		// bursting one request per child at once.
		job := &domain.SyncJob{
			AccountID:   parentAccountID,
			LinkID:      link.ID,
			EntityType:  t,
			EntityID:    entityID,
			Operation:   domain.OperationEntitySync,
			Priority:    domain.PriorityWebhook,
			ScheduledAt: now.Add(time.Duration(enqueued) * s.fanoutDelay),
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return enqueued, fmt.Errorf("failed to enqueue entity sync: %w", err)
		}
		metrics.JobsEnqueued.WithLabelValues(domain.OperationEntitySync).Inc()
		enqueued++
	}

	log.Info("entity fan-out enqueued", "type", t, "entity_id", entityID, "jobs", enqueued)
	return enqueued, nil
}

func (s *service) SyncAllDirect(ctx context.Context, run *precache.Run, t domain.EntityType) (domain.BatchReport, error) {
	log := logger.FromContext(ctx)

	sync, ok := s.orch.Syncer(t)
	if !ok {
		return domain.BatchReport{}, fmt.Errorf("%w: no syncer for entity type %q", domain.ErrInvalidInput, t)
	}

	lookup, err := s.primeLookup(ctx, run)
	if err != nil {
		return domain.BatchReport{}, err
	}
	rows, strategy, err := s.loader.Load(ctx, run.Parent, sync.Endpoint(), run.Settings.Filter, lookup)
	if err != nil {
		return domain.BatchReport{}, err
	}
	kept := postFilter(sync, rows)
	rows = nil

	if err := s.cache.CacheAll(ctx, run); err != nil {
		return domain.BatchReport{}, err
	}
	if _, err := s.orch.PreSyncFolders(ctx, run, kept); err != nil {
		return domain.BatchReport{}, err
	}

	var report domain.BatchReport
	for group := 0; group*directSubGroupSize < len(kept); group++ {
		start := group * directSubGroupSize
		end := min(start+directSubGroupSize, len(kept))

		sub, retryIDs, err := s.orch.ProcessChunk(ctx, run, t, kept[start:end])
		report.Total += sub.Total
		report.Succeeded += sub.Succeeded
		report.Skipped += sub.Skipped
		report.Failed += sub.Failed
		report.Retried += sub.Retried
		if err != nil {
			return report, err
		}
		if len(retryIDs) > 0 {
			log.Warn("items failed in direct sync, no retry queue available", "type", t, "entity_ids", retryIDs)
		}

		// Drop processed references and give the collector a pass at a
		// fixed cadence to bound peak memory on large catalogs.
		for i := start; i < end; i++ {
			kept[i] = domain.Entity{}
		}
		if group%gcCadence == gcCadence-1 {
			runtime.GC()
		}
	}

	log.Info("direct sync complete", "type", t, "strategy", strategy,
		"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func postFilter(s syncer.Syncer, rows []domain.Entity) []domain.Entity {
	kept := make([]domain.Entity, 0, len(rows))
	for i := range rows {
		if s.PostFilter(&rows[i]) {
			kept = append(kept, rows[i])
		}
	}
	return kept
}
