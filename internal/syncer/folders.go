package syncer

import (
	"context"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
)

// FolderSync bulk-resolves the parent folders referenced by a batch before
// per-entity preparation, so folder lookups during preparation are store hits.
type FolderSync struct {
	resolver mapping.Resolver
	api      remote.API
}

func NewFolderSync(resolver mapping.Resolver, api remote.API) *FolderSync {
	return &FolderSync{resolver: resolver, api: api}
}

// PreSync resolves every distinct folder the entities reference, creating
// missing folders on the child side when the link allows it. Returns how
// many folders were created.
func (f *FolderSync) PreSync(ctx context.Context, run *precache.Run, entities []domain.Entity) (int, error) {
	log := logger.FromContext(ctx)

	folders := make(map[string]domain.Ref)
	for i := range entities {
		if ref := entities[i].Folder; ref != nil && ref.ID != "" {
			folders[ref.ID] = *ref
		}
	}
	if len(folders) == 0 {
		return 0, nil
	}

	created := 0
	for _, ref := range folders {
		req := mapping.ResolveRequest{
			Key: domain.MappingKey{
				Kind:            domain.KindEntity,
				ParentAccountID: run.Parent.ID,
				ChildAccountID:  run.Child.ID,
				EntityType:      domain.EntityFolder,
				Direction:       domain.DirectionDown,
				ParentID:        ref.ID,
			},
			Child:      run.Child,
			Endpoint:   endpointFolder,
			MatchField: "name",
			MatchValue: ref.Name,
		}

		res, err := f.resolver.Resolve(ctx, req)
		if err != nil {
			return created, fmt.Errorf("failed to resolve folder %q: %w", ref.Name, err)
		}

		switch res.Status {
		case domain.StatusResolved:
			continue
		case domain.StatusSkip:
			log.Debug("folder skipped", "folder_id", ref.ID, "reason", res.Reason)
			continue
		}

		if !run.Settings.CreateFolders {
			log.Debug("folder missing on child side, creation disabled", "folder_id", ref.ID, "name", ref.Name)
			continue
		}

		remoteFolder, err := f.api.Create(ctx, run.Child, endpointFolder, map[string]any{"name": ref.Name})
		if err != nil {
			if remote.IsConflict(err) {
				if _, rerr := f.resolver.ResolveAfterConflict(ctx, req); rerr == nil {
					continue
				}
			}
			return created, fmt.Errorf("failed to create folder %q: %w", ref.Name, err)
		}
		if _, err := f.resolver.ConfirmCreated(ctx, req, remoteFolder.ID); err != nil {
			return created, err
		}
		created++
	}

	log.Info("folder pre-sync complete", "folders", len(folders), "created", created)
	return created, nil
}
