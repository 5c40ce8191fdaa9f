package syncer

import (
	"context"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Bundle prepares the bundle catalog kind. A bundle references the products
// and services it is composed of, so it can only sync once every component
// is mapped; otherwise the bundle is skipped for this pass and picked up by
// a later run.
type Bundle struct {
	base
}

func NewBundle(store repository.Mapping, resolver mapping.Resolver, cache precache.Service, api remote.API) *Bundle {
	return &Bundle{base: base{
		entityType: domain.EntityBundle,
		endpoint:   endpointBundle,
		store:      store,
		resolver:   resolver,
		cache:      cache,
		api:        api,
	}}
}

func (s *Bundle) PostFilter(e *domain.Entity) bool {
	if e.Name == "" {
		return false
	}
	v, ok := e.Field("components")
	if !ok {
		return false
	}
	rows, ok := v.([]any)
	return ok && len(rows) > 0
}

func (s *Bundle) Prepare(ctx context.Context, run *precache.Run, e *domain.Entity) (Prepared, error) {
	res, req, err := s.resolveSelf(ctx, run, e)
	if err != nil {
		return Prepared{}, err
	}
	if res.Status == domain.StatusSkip {
		return Prepared{ParentID: e.ID, Skip: true, SkipReason: res.Reason}, nil
	}

	components, allMapped := s.mapComponents(ctx, run, e)
	if !allMapped {
		return Prepared{ParentID: e.ID, Skip: true, SkipReason: "bundle component not mapped yet"}, nil
	}

	body := s.baseBody(e, req.MatchField)
	body["components"] = components
	if f := s.folderRef(ctx, run, e); f != nil {
		body["productFolder"] = f
	}
	if attrs := s.mapAttributes(ctx, run, e); len(attrs) > 0 {
		body["attributes"] = attrs
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

// mapComponents translates every component reference to its child-side id.
// The second return is false when any component is still unmapped.
func (s *Bundle) mapComponents(ctx context.Context, run *precache.Run, e *domain.Entity) ([]map[string]any, bool) {
	v, ok := e.Field("components")
	if !ok {
		return nil, false
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, false
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			return nil, false
		}

		ref, _ := row["assortment"].(map[string]any)
		parentID := refID(ref)
		refType, _ := ref["type"].(string)
		if refType == "" {
			refType = string(domain.EntityProduct)
		}

		childID, mapped := s.childIDFor(ctx, run, domain.KindEntity, domain.EntityType(refType), parentID)
		if !mapped {
			return nil, false
		}

		out = append(out, map[string]any{
			"assortment": map[string]any{"id": childID, "type": refType},
			"quantity":   row["quantity"],
		})
	}
	return out, true
}
