package precache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Run scopes one pre-cache pass to an account pair and its settings.
type Run struct {
	Parent   *domain.Account
	Child    *domain.Account
	Link     *domain.AccountLink
	Settings *domain.SyncSettings
}

// Service bulk-resolves the shared references of a batch run once, so
// per-entity preparation afterwards works from the mapping store alone:
//  1. standard vocabularies (units of measure, countries), matched by code
//  2. attribute metadata per enabled entity kind, matched by name
//  3. custom-entity elements of every mapped custom entity, matched by name
//
// Every stage is idempotent: already-mapped items are reused, not rewritten,
// so a second pass creates nothing.
type Service interface {
	CacheAll(ctx context.Context, run *Run) error

	// PrimeAttributeMetadata loads only the parent-side attribute metadata
	// of the run's enabled kinds, so strategy selection can lower attribute
	// conditions before any job has executed a full pass.
	PrimeAttributeMetadata(ctx context.Context, run *Run) error

	// ChildID answers resolved lookups from the finished pass without
	// touching storage or the network. Results are scoped to the run's
	// account pair.
	ChildID(run *Run, kind domain.MappingKind, entityType domain.EntityType, parentID string) (string, bool)

	// AttributeQueryField reports the remote query field for an attribute
	// of the run's parent account, and whether it is filterable remotely.
	AttributeQueryField(run *Run, attributeID string) (string, bool)

	// Reset drops the run's account pair from the cache at a batch
	// boundary. Other pairs sharing the service are untouched.
	Reset(run *Run)
}

// pairKey scopes cached state to one account pair. Concurrent jobs for the
// same parent fanned out to different children must never see each other's
// child-side ids.
type pairKey struct {
	parentAccountID string
	childAccountID  string
}

func runPair(run *Run) pairKey {
	return pairKey{parentAccountID: run.Parent.ID, childAccountID: run.Child.ID}
}

type resolvedKey struct {
	pair       pairKey
	kind       domain.MappingKind
	entityType domain.EntityType
	parentID   string
}

type attrKey struct {
	pair        pairKey
	attributeID string
}

type service struct {
	store    repository.Mapping
	api      remote.API
	meta     *metaCache
	pageSize int

	mu         sync.RWMutex
	resolved   map[resolvedKey]string
	filterable map[attrKey]bool
}

// NewService creates a dependency pre-cache. pageSize bounds metadata
// collection fetches; zero values fall back to defaults.
func NewService(store repository.Mapping, api remote.API, pageSize int, cacheTTL time.Duration) Service {
	if pageSize <= 0 {
		pageSize = 100
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultMetaCacheTTL
	}
	return &service{
		store:      store,
		api:        api,
		meta:       newMetaCache(defaultMetaCacheSize, cacheTTL),
		pageSize:   pageSize,
		resolved:   make(map[resolvedKey]string),
		filterable: make(map[attrKey]bool),
	}
}

func (s *service) CacheAll(ctx context.Context, run *Run) error {
	log := logger.FromContext(ctx)

	if err := s.cacheVocabularies(ctx, run); err != nil {
		return fmt.Errorf("vocabulary stage: %w", err)
	}
	if err := s.cacheAttributes(ctx, run); err != nil {
		return fmt.Errorf("attribute stage: %w", err)
	}
	if err := s.cacheElements(ctx, run); err != nil {
		return fmt.Errorf("custom entity element stage: %w", err)
	}

	s.mu.RLock()
	resolved := len(s.resolved)
	s.mu.RUnlock()
	log.Info("dependency pre-cache complete", "link_id", run.Link.ID, "resolved", resolved)
	return nil
}

// cacheVocabularies links units and countries by their natural code, creating
// missing items on the child side. Stored mappings are verified against the
// fresh child snapshot and dropped when their target is gone.
func (s *service) cacheVocabularies(ctx context.Context, run *Run) error {
	log := logger.FromContext(ctx)

	for _, voc := range vocabularies {
		parentRows, err := s.snapshot(ctx, run.Parent, voc.endpoint)
		if err != nil {
			return err
		}
		childRows, err := s.snapshot(ctx, run.Child, voc.endpoint)
		if err != nil {
			return err
		}
		byCode := indexByField(childRows, vocabularyMatchField)
		childIDs := indexIDs(childRows)

		for i := range parentRows {
			p := &parentRows[i]
			code, ok := p.MatchValue(vocabularyMatchField)
			if !ok {
				log.Warn("vocabulary item without code, skipping", "type", voc.entityType, "id", p.ID)
				continue
			}

			key := s.key(run, domain.KindStandardEntity, voc.entityType, p.ID)
			m, err := s.store.Get(ctx, key)
			switch {
			case err == nil:
				if childIDs[m.ChildID] {
					s.remember(key, m.ChildID)
					continue
				}
				log.Warn("mapped vocabulary item gone on child side, re-resolving",
					"type", voc.entityType, "code", code, "child_id", m.ChildID)
				if derr := s.store.Delete(ctx, key); derr != nil {
					return fmt.Errorf("failed to drop stale vocabulary mapping: %w", derr)
				}
			case !errors.Is(err, domain.ErrMappingNotFound):
				return fmt.Errorf("failed to look up vocabulary mapping: %w", err)
			}

			childID, autoCreated := "", false
			if hit, ok := byCode[code]; ok {
				childID = hit.ID
			} else {
				created, err := s.api.Create(ctx, run.Child, voc.endpoint, map[string]any{
					"name": p.Name,
					"code": code,
				})
				if err != nil {
					return fmt.Errorf("failed to create %s %q on child side: %w", voc.entityType, code, err)
				}
				childID, autoCreated = created.ID, true
			}

			if err := s.persist(ctx, key, childID, vocabularyMatchField, code, autoCreated); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrimeAttributeMetadata fetches the parent-side attribute metadata of the
// run's enabled kinds and records the filterable flags. Unlike the full
// attribute stage it touches nothing on the child side; it exists so task
// creation can select an API filter strategy before any job runs.
func (s *service) PrimeAttributeMetadata(ctx context.Context, run *Run) error {
	for _, t := range run.Settings.EntityTypes {
		if t == domain.EntityVariant {
			continue
		}
		parentAttrs, err := s.snapshot(ctx, run.Parent, attributeEndpoint(t))
		if err != nil {
			return err
		}
		for i := range parentAttrs {
			s.rememberFilterable(run, &parentAttrs[i])
		}
	}
	return nil
}

// cacheAttributes links attribute metadata by name per enabled entity kind,
// honoring the configured allow-list. Attributes backed by a custom-entity
// vocabulary get the vocabulary resolved first.
func (s *service) cacheAttributes(ctx context.Context, run *Run) error {
	for _, t := range run.Settings.EntityTypes {
		if t == domain.EntityVariant {
			// Variants carry characteristics, not attributes; those are
			// resolved lazily by the variant syncer.
			continue
		}

		endpoint := attributeEndpoint(t)
		parentAttrs, err := s.snapshot(ctx, run.Parent, endpoint)
		if err != nil {
			return err
		}
		childAttrs, err := s.snapshot(ctx, run.Child, endpoint)
		if err != nil {
			return err
		}
		allow := toSet(run.Settings.AllowedAttributes(t))
		byName := indexByName(childAttrs)

		for i := range parentAttrs {
			pa := &parentAttrs[i]
			if allow != nil && !allow[pa.Name] {
				continue
			}
			s.rememberFilterable(run, pa)

			key := s.key(run, domain.KindAttribute, t, pa.ID)
			m, err := s.store.Get(ctx, key)
			if err == nil {
				s.remember(key, m.ChildID)
				continue
			}
			if !errors.Is(err, domain.ErrMappingNotFound) {
				return fmt.Errorf("failed to look up attribute mapping: %w", err)
			}

			childID, autoCreated := "", false
			if hit, ok := byName[pa.Name]; ok {
				childID = hit.ID
			} else {
				created, err := s.createChildAttribute(ctx, run, endpoint, pa)
				if err != nil {
					return err
				}
				childID, autoCreated = created, true
			}

			if err := s.persist(ctx, key, childID, "name", pa.Name, autoCreated); err != nil {
				return err
			}
		}
	}
	return nil
}

// createChildAttribute creates the attribute on the child side, first
// ensuring the backing custom-entity vocabulary exists when the type needs one.
func (s *service) createChildAttribute(ctx context.Context, run *Run, endpoint string, pa *domain.Entity) (string, error) {
	attrType, _ := pa.MatchValue("type")
	body := map[string]any{
		"name": pa.Name,
		"type": attrType,
	}

	if attrType == attributeTypeCustom {
		parentCE, ok := pa.MatchValue("customEntityMeta")
		if !ok {
			return "", fmt.Errorf("attribute %q has custom entity type but no vocabulary reference", pa.Name)
		}
		childCE, err := s.ensureCustomEntity(ctx, run, parentCE, pa.Name)
		if err != nil {
			return "", err
		}
		body["customEntityMeta"] = childCE
	}

	created, err := s.api.Create(ctx, run.Child, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create attribute %q on child side: %w", pa.Name, err)
	}
	return created.ID, nil
}

// ensureCustomEntity resolves or creates the child-side custom-entity
// vocabulary backing a custom attribute, and persists its mapping.
func (s *service) ensureCustomEntity(ctx context.Context, run *Run, parentCEID, name string) (string, error) {
	key := s.key(run, domain.KindCustomEntity, domain.EntityCustomEntity, parentCEID)
	if m, err := s.store.Get(ctx, key); err == nil {
		s.remember(key, m.ChildID)
		return m.ChildID, nil
	} else if !errors.Is(err, domain.ErrMappingNotFound) {
		return "", fmt.Errorf("failed to look up custom entity mapping: %w", err)
	}

	childCEs, err := s.snapshot(ctx, run.Child, endpointCustomEntity)
	if err != nil {
		return "", err
	}

	childID, autoCreated := "", false
	if hit, ok := indexByName(childCEs)[name]; ok {
		childID = hit.ID
	} else {
		created, err := s.api.Create(ctx, run.Child, endpointCustomEntity, map[string]any{"name": name})
		if err != nil {
			return "", fmt.Errorf("failed to create custom entity %q on child side: %w", name, err)
		}
		childID, autoCreated = created.ID, true
	}

	if err := s.persist(ctx, key, childID, "name", name, autoCreated); err != nil {
		return "", err
	}
	return childID, nil
}

// cacheElements links the elements of every already-mapped custom entity by
// name, creating missing ones on the child side.
func (s *service) cacheElements(ctx context.Context, run *Run) error {
	mapped, err := s.store.ListByKind(ctx, run.Parent.ID, run.Child.ID, domain.KindCustomEntity)
	if err != nil {
		return fmt.Errorf("failed to list mapped custom entities: %w", err)
	}

	for _, ce := range mapped {
		parentEls, err := s.snapshot(ctx, run.Parent, elementsEndpoint(ce.Key.ParentID))
		if err != nil {
			return err
		}
		childEls, err := s.snapshot(ctx, run.Child, elementsEndpoint(ce.ChildID))
		if err != nil {
			return err
		}
		byName := indexByName(childEls)

		for i := range parentEls {
			pe := &parentEls[i]
			key := s.key(run, domain.KindCustomEntityElement, domain.EntityCustomEntityElement, pe.ID)
			if m, err := s.store.Get(ctx, key); err == nil {
				s.remember(key, m.ChildID)
				continue
			} else if !errors.Is(err, domain.ErrMappingNotFound) {
				return fmt.Errorf("failed to look up element mapping: %w", err)
			}

			childID, autoCreated := "", false
			if hit, ok := byName[pe.Name]; ok {
				childID = hit.ID
			} else {
				created, err := s.api.Create(ctx, run.Child, elementsEndpoint(ce.ChildID), map[string]any{"name": pe.Name})
				if err != nil {
					return fmt.Errorf("failed to create element %q on child side: %w", pe.Name, err)
				}
				childID, autoCreated = created.ID, true
			}

			if err := s.persist(ctx, key, childID, "name", pe.Name, autoCreated); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *service) ChildID(run *Run, kind domain.MappingKind, entityType domain.EntityType, parentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.resolved[resolvedKey{pair: runPair(run), kind: kind, entityType: entityType, parentID: parentID}]
	return id, ok
}

func (s *service) AttributeQueryField(run *Run, attributeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.filterable[attrKey{pair: runPair(run), attributeID: attributeID}] {
		return "", false
	}
	return attributeQueryPrefix + attributeID, true
}

func (s *service) Reset(run *Run) {
	pair := runPair(run)
	s.meta.dropAccount(run.Parent.ID)
	s.meta.dropAccount(run.Child.ID)

	s.mu.Lock()
	for k := range s.resolved {
		if k.pair == pair {
			delete(s.resolved, k)
		}
	}
	for k := range s.filterable {
		if k.pair == pair {
			delete(s.filterable, k)
		}
	}
	s.mu.Unlock()
}

// snapshot pages through a collection once per run; later stages reuse the
// cached list.
func (s *service) snapshot(ctx context.Context, acc *domain.Account, endpoint string) ([]domain.Entity, error) {
	if rows, ok := s.meta.get(acc.ID, endpoint); ok {
		return rows, nil
	}

	var all []domain.Entity
	for offset := 0; ; offset += s.pageSize {
		page, err := s.api.FetchPage(ctx, acc, endpoint, "", s.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			break
		}
	}

	s.meta.set(acc.ID, endpoint, all)
	return all, nil
}

func (s *service) persist(ctx context.Context, key domain.MappingKey, childID, matchField, matchValue string, autoCreated bool) error {
	winner, _, err := s.store.InsertIfAbsent(ctx, &domain.Mapping{
		Key:         key,
		ChildID:     childID,
		MatchField:  matchField,
		MatchValue:  matchValue,
		AutoCreated: autoCreated,
	})
	if err != nil {
		return fmt.Errorf("failed to persist %s mapping: %w", key.Kind, err)
	}
	s.remember(key, winner.ChildID)
	return nil
}

func (s *service) key(run *Run, kind domain.MappingKind, t domain.EntityType, parentID string) domain.MappingKey {
	return domain.MappingKey{
		Kind:            kind,
		ParentAccountID: run.Parent.ID,
		ChildAccountID:  run.Child.ID,
		EntityType:      t,
		Direction:       domain.DirectionDown,
		ParentID:        parentID,
	}
}

func (s *service) remember(key domain.MappingKey, childID string) {
	s.mu.Lock()
	s.resolved[resolvedKey{
		pair:       pairKey{parentAccountID: key.ParentAccountID, childAccountID: key.ChildAccountID},
		kind:       key.Kind,
		entityType: key.EntityType,
		parentID:   key.ParentID,
	}] = childID
	s.mu.Unlock()
}

func (s *service) rememberFilterable(run *Run, attr *domain.Entity) {
	v, _ := attr.Field("filterable")
	filterable, _ := v.(bool)
	s.mu.Lock()
	s.filterable[attrKey{pair: runPair(run), attributeID: attr.ID}] = filterable
	s.mu.Unlock()
}

func indexByField(rows []domain.Entity, field string) map[string]*domain.Entity {
	idx := make(map[string]*domain.Entity, len(rows))
	for i := range rows {
		if v, ok := rows[i].MatchValue(field); ok {
			idx[v] = &rows[i]
		}
	}
	return idx
}

func indexByName(rows []domain.Entity) map[string]*domain.Entity {
	idx := make(map[string]*domain.Entity, len(rows))
	for i := range rows {
		if rows[i].Name != "" {
			idx[rows[i].Name] = &rows[i]
		}
	}
	return idx
}

func indexIDs(rows []domain.Entity) map[string]bool {
	ids := make(map[string]bool, len(rows))
	for i := range rows {
		ids[rows[i].ID] = true
	}
	return ids
}

func toSet(names []string) map[string]bool {
	if names == nil {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
