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

// Variant prepares the variant catalog kind. A variant hangs off a product
// and is distinguished by its characteristics, whose metadata is resolved by
// name and created on the child side when missing.
type Variant struct {
	base
}

func NewVariant(store repository.Mapping, resolver mapping.Resolver, cache precache.Service, api remote.API) *Variant {
	return &Variant{base: base{
		entityType: domain.EntityVariant,
		endpoint:   endpointVariant,
		store:      store,
		resolver:   resolver,
		cache:      cache,
		api:        api,
	}}
}

func (s *Variant) PostFilter(e *domain.Entity) bool {
	_, ok := e.Field("product")
	return ok
}

func (s *Variant) Prepare(ctx context.Context, run *precache.Run, e *domain.Entity) (Prepared, error) {
	res, req, err := s.resolveSelf(ctx, run, e)
	if err != nil {
		return Prepared{}, err
	}
	if res.Status == domain.StatusSkip {
		return Prepared{ParentID: e.ID, Skip: true, SkipReason: res.Reason}, nil
	}

	productRef, _ := e.Field("product")
	childProductID, mapped := s.childIDFor(ctx, run, domain.KindEntity, domain.EntityProduct, refID(productRef))
	if !mapped {
		return Prepared{ParentID: e.ID, Skip: true, SkipReason: "parent product not mapped yet"}, nil
	}

	characteristics, err := s.mapCharacteristics(ctx, run, e)
	if err != nil {
		return Prepared{}, err
	}

	body := s.baseBody(e, req.MatchField)
	body["product"] = map[string]any{"id": childProductID, "type": string(domain.EntityProduct)}
	if len(characteristics) > 0 {
		body["characteristics"] = characteristics
	}
	if prices := s.mapPrices(run, e); len(prices) > 0 {
		body["salePrices"] = prices
	}

	p := Prepared{ParentID: e.ID, Body: body, Request: req}
	if res.Status == domain.StatusResolved {
		p.ChildID = res.Mapping.ChildID
	}
	return p, nil
}

// mapCharacteristics resolves characteristic metadata by name, creating
// missing entries on the child side. Characteristic mappings self-heal, so a
// renamed or deleted child-side entry re-resolves instead of being reused.
func (s *Variant) mapCharacteristics(ctx context.Context, run *precache.Run, e *domain.Entity) ([]map[string]any, error) {
	v, ok := e.Field("characteristics")
	if !ok {
		return nil, nil
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, nil
	}

	log := logger.FromContext(ctx)
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		name, _ := row["name"].(string)
		if name == "" {
			log.Debug("characteristic without name, dropping", "variant_id", e.ID)
			continue
		}

		req := mapping.ResolveRequest{
			Key: domain.MappingKey{
				Kind:            domain.KindCharacteristic,
				ParentAccountID: run.Parent.ID,
				ChildAccountID:  run.Child.ID,
				EntityType:      domain.EntityVariant,
				Direction:       domain.DirectionDown,
				ParentID:        name,
			},
			Child:      run.Child,
			Endpoint:   endpointCharacteristics,
			MatchField: "name",
			MatchValue: name,
		}

		res, err := s.resolver.Resolve(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve characteristic %q: %w", name, err)
		}

		var childID string
		switch res.Status {
		case domain.StatusResolved:
			childID = res.Mapping.ChildID
		case domain.StatusNeedsCreation:
			created, err := s.api.Create(ctx, run.Child, endpointCharacteristics, map[string]any{"name": name})
			if err != nil {
				if remote.IsConflict(err) {
					retried, rerr := s.resolver.ResolveAfterConflict(ctx, req)
					if rerr == nil && retried.Status == domain.StatusResolved {
						childID = retried.Mapping.ChildID
						break
					}
				}
				return nil, fmt.Errorf("failed to create characteristic %q: %w", name, err)
			}
			m, err := s.resolver.ConfirmCreated(ctx, req, created.ID)
			if err != nil {
				return nil, err
			}
			childID = m.ChildID
		default:
			continue
		}

		out = append(out, map[string]any{"id": childID, "value": row["value"]})
	}
	return out, nil
}
