package syncer

import (
	"context"
	"errors"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Prepared is one entity shaped for submission to the child account.
type Prepared struct {
	ParentID string
	// ChildID is set when the record already exists on the child side and
	// the submission is an update rather than a create.
	ChildID string
	Body    map[string]any
	// Request carries the resolution arguments so the caller can persist
	// the mapping after a create, or re-resolve after a conflict.
	Request mapping.ResolveRequest
	// Skip marks an entity left out of this pass, with the reason for logs.
	Skip       bool
	SkipReason string
}

// Syncer prepares one catalog kind for bulk submission to a child account.
type Syncer interface {
	EntityType() domain.EntityType
	Endpoint() string

	// PostFilter drops entities the remote side would reject outright.
	// Applied right after the collection fetch, before chunking.
	PostFilter(e *domain.Entity) bool

	// Prepare resolves references and shapes the child-side payload. Once
	// the dependency pre-cache has run, every reference lookup here is a
	// store or cache hit; only the entity's own resolution may go remote.
	Prepare(ctx context.Context, run *precache.Run, e *domain.Entity) (Prepared, error)
}

// base carries the collaborators and reference-mapping helpers shared by
// every catalog kind.
type base struct {
	entityType domain.EntityType
	endpoint   string

	store    repository.Mapping
	resolver mapping.Resolver
	cache    precache.Service
	api      remote.API
}

func (b *base) EntityType() domain.EntityType { return b.entityType }
func (b *base) Endpoint() string              { return b.endpoint }

// resolveSelf resolves the entity's own cross-account identity.
func (b *base) resolveSelf(ctx context.Context, run *precache.Run, e *domain.Entity) (domain.Resolution, mapping.ResolveRequest, error) {
	matchField := run.Settings.MatchField(b.entityType)
	matchValue, _ := e.MatchValue(matchField)

	req := mapping.ResolveRequest{
		Key: domain.MappingKey{
			Kind:            domain.KindEntity,
			ParentAccountID: run.Parent.ID,
			ChildAccountID:  run.Child.ID,
			EntityType:      b.entityType,
			Direction:       domain.DirectionDown,
			ParentID:        e.ID,
		},
		Child:      run.Child,
		Endpoint:   b.endpoint,
		MatchField: matchField,
		MatchValue: matchValue,
	}

	res, err := b.resolver.Resolve(ctx, req)
	return res, req, err
}

// baseBody starts the payload with the fields every kind shares.
func (b *base) baseBody(e *domain.Entity, matchField string) map[string]any {
	body := map[string]any{"name": e.Name}
	if v, ok := e.MatchValue(matchField); ok && matchField != "name" {
		body[matchField] = v
	}
	return body
}

// folderRef maps the entity's parent folder to its child-side counterpart.
// Folders are pre-synced per batch, so a miss means the folder was skipped.
func (b *base) folderRef(ctx context.Context, run *precache.Run, e *domain.Entity) map[string]any {
	if e.Folder == nil {
		return nil
	}
	m, err := b.store.Get(ctx, domain.MappingKey{
		Kind:            domain.KindEntity,
		ParentAccountID: run.Parent.ID,
		ChildAccountID:  run.Child.ID,
		EntityType:      domain.EntityFolder,
		Direction:       domain.DirectionDown,
		ParentID:        e.Folder.ID,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrMappingNotFound) {
			logger.FromContext(ctx).Warn("folder mapping lookup failed", "folder_id", e.Folder.ID, "error", err)
		}
		return nil
	}
	return map[string]any{"id": m.ChildID, "type": refTypeFolder}
}

// vocabularyRef maps a unit/country reference through the pre-cache.
func (b *base) vocabularyRef(ctx context.Context, run *precache.Run, t domain.EntityType, field string, e *domain.Entity) map[string]any {
	v, ok := e.Field(field)
	if !ok {
		return nil
	}
	parentID := refID(v)
	if parentID == "" {
		return nil
	}

	childID, ok := b.cache.ChildID(run, domain.KindStandardEntity, t, parentID)
	if !ok {
		m, err := b.store.Get(ctx, domain.MappingKey{
			Kind:            domain.KindStandardEntity,
			ParentAccountID: run.Parent.ID,
			ChildAccountID:  run.Child.ID,
			EntityType:      t,
			Direction:       domain.DirectionDown,
			ParentID:        parentID,
		})
		if err != nil {
			logger.FromContext(ctx).Debug("vocabulary reference unmapped, dropping", "type", t, "parent_id", parentID)
			return nil
		}
		childID = m.ChildID
	}
	return map[string]any{"id": childID, "type": string(t)}
}

// mapAttributes translates attribute values through the pre-cached attribute
// and element mappings. Unmapped attributes are dropped, not fatal.
func (b *base) mapAttributes(ctx context.Context, run *precache.Run, e *domain.Entity) []map[string]any {
	log := logger.FromContext(ctx)

	var out []map[string]any
	for _, a := range e.Attributes {
		childAttrID, ok := b.childIDFor(ctx, run, domain.KindAttribute, b.entityType, a.ID)
		if !ok {
			log.Debug("attribute unmapped, dropping", "attribute_id", a.ID, "name", a.Name)
			continue
		}

		value := a.Value
		if a.Type == attributeTypeCustom {
			elemID := refID(a.Value)
			childElemID, ok := b.childIDFor(ctx, run, domain.KindCustomEntityElement, domain.EntityCustomEntityElement, elemID)
			if !ok {
				log.Debug("custom entity element unmapped, dropping attribute", "attribute_id", a.ID, "element_id", elemID)
				continue
			}
			value = map[string]any{"id": childElemID}
		}

		out = append(out, map[string]any{"id": childAttrID, "value": value})
	}
	return out
}

// mapPrices translates sale prices through the configured price-list mapping.
// Prices whose list has no child-side counterpart configured are dropped.
func (b *base) mapPrices(run *precache.Run, e *domain.Entity) []map[string]any {
	v, ok := e.Field("salePrices")
	if !ok {
		return nil
	}
	rows, ok := v.([]any)
	if !ok {
		return nil
	}

	var out []map[string]any
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		parentList := refID(row["priceType"])
		childList, ok := run.Settings.PriceMappings[parentList]
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"priceType": map[string]any{"id": childList},
			"value":     row["value"],
		})
	}
	return out
}

// childIDFor consults the pre-cache first and falls back to the store.
func (b *base) childIDFor(ctx context.Context, run *precache.Run, kind domain.MappingKind, t domain.EntityType, parentID string) (string, bool) {
	if parentID == "" {
		return "", false
	}
	if id, ok := b.cache.ChildID(run, kind, t, parentID); ok {
		return id, true
	}
	m, err := b.store.Get(ctx, domain.MappingKey{
		Kind:            kind,
		ParentAccountID: run.Parent.ID,
		ChildAccountID:  run.Child.ID,
		EntityType:      t,
		Direction:       domain.DirectionDown,
		ParentID:        parentID,
	})
	if err != nil {
		return "", false
	}
	return m.ChildID, true
}

// refID extracts the id of a reference that may be a bare string or a
// decoded {"id": ...} object.
func refID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if id, ok := t["id"].(string); ok {
			return id
		}
	}
	return ""
}
