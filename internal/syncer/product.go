package syncer

import (
	"context"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Product prepares the product catalog kind.
type Product struct {
	base
}

func NewProduct(store repository.Mapping, resolver mapping.Resolver, cache precache.Service, api remote.API) *Product {
	return &Product{base: base{
		entityType: domain.EntityProduct,
		endpoint:   endpointProduct,
		store:      store,
		resolver:   resolver,
		cache:      cache,
		api:        api,
	}}
}

func (s *Product) PostFilter(e *domain.Entity) bool {
	return e.Name != ""
}

func (s *Product) Prepare(ctx context.Context, run *precache.Run, e *domain.Entity) (Prepared, error) {
	res, req, err := s.resolveSelf(ctx, run, e)
	if err != nil {
		return Prepared{}, err
	}
	if res.Status == domain.StatusSkip {
		return Prepared{ParentID: e.ID, Skip: true, SkipReason: res.Reason}, nil
	}

	body := s.baseBody(e, req.MatchField)
	if f := s.folderRef(ctx, run, e); f != nil {
		body["productFolder"] = f
	}
	if u := s.vocabularyRef(ctx, run, domain.EntityUnit, "uom", e); u != nil {
		body["uom"] = u
	}
	if c := s.vocabularyRef(ctx, run, domain.EntityCountry, "country", e); c != nil {
		body["country"] = c
	}
	if attrs := s.mapAttributes(ctx, run, e); len(attrs) > 0 {
		body["attributes"] = attrs
	}
	if prices := s.mapPrices(run, e); len(prices) > 0 {
		body["salePrices"] = prices
	}
	if v, ok := e.Field("description"); ok {
		body["description"] = v
	}
	if v, ok := e.Field("article"); ok && req.MatchField != "article" {
		body["article"] = v
	}

	p := Prepared{ParentID: e.ID, Body: body, Request: req}
	if res.Status == domain.StatusResolved {
		p.ChildID = res.Mapping.ChildID
	}
	return p, nil
}
