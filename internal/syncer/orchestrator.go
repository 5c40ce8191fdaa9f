package syncer

import (
	"context"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Orchestrator owns one syncer per catalog kind plus the folder pre-sync.
// Product, variant and bundle preparation all read each other's mappings;
// routing everything through one owner keeps those dependencies acyclic.
type Orchestrator struct {
	syncers  map[domain.EntityType]Syncer
	folders  *FolderSync
	resolver mapping.Resolver
	api      remote.API
}

func NewOrchestrator(store repository.Mapping, resolver mapping.Resolver, cache precache.Service, api remote.API) *Orchestrator {
	return &Orchestrator{
		syncers: map[domain.EntityType]Syncer{
			domain.EntityProduct: NewProduct(store, resolver, cache, api),
			domain.EntityService: NewService(store, resolver, cache, api),
			domain.EntityBundle:  NewBundle(store, resolver, cache, api),
			domain.EntityVariant: NewVariant(store, resolver, cache, api),
		},
		folders:  NewFolderSync(resolver, api),
		resolver: resolver,
		api:      api,
	}
}

// Syncer returns the syncer for a catalog kind.
func (o *Orchestrator) Syncer(t domain.EntityType) (Syncer, bool) {
	s, ok := o.syncers[t]
	return s, ok
}

// PreSyncFolders bulk-resolves the folders of a batch. See FolderSync.
func (o *Orchestrator) PreSyncFolders(ctx context.Context, run *precache.Run, entities []domain.Entity) (int, error) {
	return o.folders.PreSync(ctx, run, entities)
}

// ProcessChunk prepares one chunk, submits it as a single bulk call and
// reconciles the response. Per-item failures never fail the chunk: the
// returned parent ids are what the caller should enqueue as individual
// retries. Backpressure is the one error that propagates, so the caller can
// defer the whole job.
func (o *Orchestrator) ProcessChunk(ctx context.Context, run *precache.Run, t domain.EntityType, entities []domain.Entity) (domain.BatchReport, []string, error) {
	s, ok := o.syncers[t]
	if !ok {
		return domain.BatchReport{}, nil, fmt.Errorf("%w: no syncer for entity type %q", domain.ErrInvalidInput, t)
	}

	log := logger.FromContext(ctx)
	report := domain.BatchReport{Total: len(entities)}

	var (
		items    []Prepared
		bodies   []map[string]any
		retryIDs []string
	)
	for i := range entities {
		e := &entities[i]
		p, err := s.Prepare(ctx, run, e)
		if err != nil {
			if _, limited := remote.IsRateLimited(err); limited {
				return report, retryIDs, err
			}
			log.Warn("entity preparation failed", "entity_id", e.ID, "error", err)
			report.Failed++
			retryIDs = append(retryIDs, e.ID)
			continue
		}
		if p.Skip {
			log.Debug("entity skipped", "entity_id", e.ID, "reason", p.SkipReason)
			report.Skipped++
			continue
		}
		if p.ChildID != "" {
			p.Body["id"] = p.ChildID
		}
		items = append(items, p)
		bodies = append(bodies, p.Body)
	}
	if len(bodies) == 0 {
		return report, retryIDs, nil
	}

	results, err := o.api.CreateBulk(ctx, run.Child, s.Endpoint(), bodies)
	if err != nil {
		if _, limited := remote.IsRateLimited(err); limited {
			return report, retryIDs, err
		}
		// Whole-chunk remote failure degrades to per-item retries instead
		// of discarding the chunk.
		log.Error("bulk submission failed, degrading to per-item retries", "type", t, "items", len(items), "error", err)
		for _, p := range items {
			report.Failed++
			retryIDs = append(retryIDs, p.ParentID)
		}
		return report, retryIDs, nil
	}

	for i, p := range items {
		if i >= len(results) {
			report.Failed++
			retryIDs = append(retryIDs, p.ParentID)
			continue
		}
		r := results[i]

		if r.Err != nil {
			if remote.IsConflict(r.Err) {
				res, rerr := o.resolver.ResolveAfterConflict(ctx, p.Request)
				if rerr == nil && res.Status == domain.StatusResolved {
					report.Retried++
					report.Succeeded++
					continue
				}
			}
			log.Warn("item rejected by remote side", "entity_id", p.ParentID, "error", r.Err)
			report.Failed++
			retryIDs = append(retryIDs, p.ParentID)
			continue
		}

		if p.ChildID == "" && r.Entity != nil {
			if _, err := o.resolver.ConfirmCreated(ctx, p.Request, r.Entity.ID); err != nil {
				log.Error("failed to persist mapping for created entity", "entity_id", p.ParentID, "error", err)
				report.Failed++
				retryIDs = append(retryIDs, p.ParentID)
				continue
			}
		}
		report.Succeeded++
	}

	return report, retryIDs, nil
}
