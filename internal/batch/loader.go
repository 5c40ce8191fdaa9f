package batch

import (
	"context"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/filter"
	"github.com/stocklink/stocklink/internal/logger"
	"github.com/stocklink/stocklink/internal/remote"
)

// Loader executes collection fetches under the strategy selected for the
// link's filter, including the runtime downgrade to client-side evaluation
// when the remote side rejects a lowered filter.
type Loader struct {
	api      remote.API
	pageSize int
}

func NewLoader(api remote.API, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Loader{api: api, pageSize: pageSize}
}

// Load fetches one collection per the filter plan and reports the strategy
// that actually produced the result. The lookup must already know the
// attribute metadata of acc, or every attribute condition degrades the plan
// to client-side evaluation.
func (l *Loader) Load(ctx context.Context, acc *domain.Account, endpoint string, spec *domain.FilterSpec, lookup filter.MetadataLookup) ([]domain.Entity, filter.Strategy, error) {
	plan := filter.SelectStrategy(spec, lookup)
	log := logger.FromContext(ctx)

	switch plan.Strategy {
	case filter.StrategyNoFilter:
		rows, err := l.fetchAll(ctx, acc, endpoint, "")
		return rows, plan.Strategy, err

	case filter.StrategySingleAPIFilter:
		rows, err := l.fetchAll(ctx, acc, endpoint, plan.Queries[0])
		if err != nil {
			if remote.IsFilterRejected(err) {
				log.Warn("remote side rejected lowered filter, restarting client-side",
					"endpoint", endpoint, "query", plan.Queries[0])
				return l.loadClientSide(ctx, acc, endpoint, spec)
			}
			return nil, plan.Strategy, err
		}
		return rows, plan.Strategy, nil

	case filter.StrategyMultipleAPIFilters:
		seen := make(map[string]bool)
		var union []domain.Entity
		for _, q := range plan.Queries {
			rows, err := l.fetchAll(ctx, acc, endpoint, q)
			if err != nil {
				if remote.IsFilterRejected(err) {
					// One invalid group poisons the whole OR: partial
					// API-filtered results are abandoned, not merged.
					log.Warn("remote side rejected one OR group, restarting the whole fetch client-side",
						"endpoint", endpoint, "query", q)
					return l.loadClientSide(ctx, acc, endpoint, spec)
				}
				return nil, plan.Strategy, err
			}
			for i := range rows {
				if !seen[rows[i].ID] {
					seen[rows[i].ID] = true
					union = append(union, rows[i])
				}
			}
		}
		return union, plan.Strategy, nil

	default:
		return l.loadClientSide(ctx, acc, endpoint, spec)
	}
}

// loadClientSide fetches the unfiltered collection and applies the evaluator
// per entity.
func (l *Loader) loadClientSide(ctx context.Context, acc *domain.Account, endpoint string, spec *domain.FilterSpec) ([]domain.Entity, filter.Strategy, error) {
	rows, err := l.fetchAll(ctx, acc, endpoint, "")
	if err != nil {
		return nil, filter.StrategyClientSide, err
	}

	kept := make([]domain.Entity, 0, len(rows))
	for i := range rows {
		if filter.Passes(&rows[i], spec) {
			kept = append(kept, rows[i])
		}
	}
	return kept, filter.StrategyClientSide, nil
}

// fetchAll pages through a collection. A page shorter than the page size is
// the end of the collection; there is no separate total count to trust.
func (l *Loader) fetchAll(ctx context.Context, acc *domain.Account, endpoint, query string) ([]domain.Entity, error) {
	var all []domain.Entity
	for offset := 0; ; offset += l.pageSize {
		page, err := l.api.FetchPage(ctx, acc, endpoint, query, l.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s at offset %d: %w", endpoint, offset, err)
		}
		all = append(all, page...)
		if len(page) < l.pageSize {
			return all, nil
		}
	}
}
