package syncer

import (
	"context"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/mapping"
	"github.com/stocklink/stocklink/internal/precache"
	"github.com/stocklink/stocklink/internal/remote"
	"github.com/stocklink/stocklink/internal/repository"
)

// Service prepares the service catalog kind. Services carry no stock-related
// references, so the payload stays at name, match field, attributes and prices.
type Service struct {
	base
}

func NewService(store repository.Mapping, resolver mapping.Resolver, cache precache.Service, api remote.API) *Service {
	return &Service{base: base{
		entityType: domain.EntityService,
		endpoint:   endpointService,
		store:      store,
		resolver:   resolver,
		cache:      cache,
		api:        api,
	}}
}

func (s *Service) PostFilter(e *domain.Entity) bool {
	return e.Name != ""
}

func (s *Service) Prepare(ctx context.Context, run *precache.Run, e *domain.Entity) (Prepared, error) {
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
	if attrs := s.mapAttributes(ctx, run, e); len(attrs) > 0 {
		body["attributes"] = attrs
	}
	if prices := s.mapPrices(run, e); len(prices) > 0 {
		body["salePrices"] = prices
	}
	if v, ok := e.Field("description"); ok {
		body["description"] = v
	}

	p := Prepared{ParentID: e.ID, Body: body, Request: req}
	if res.Status == domain.StatusResolved {
		p.ChildID = res.Mapping.ChildID
	}
	return p, nil
}
