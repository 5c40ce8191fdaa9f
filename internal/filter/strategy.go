package filter

import (
	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/remote"
)

// Strategy is the chosen way to execute a filter against a collection
// fetch. The remote query language only supports flat AND predicates over
// known fields, so anything richer either fans out into several requests
// or falls back to fetching everything and evaluating locally.
type Strategy string

const (
	// StrategyNoFilter fetches the collection unfiltered.
	StrategyNoFilter Strategy = "no_filter"
	// StrategySingleAPIFilter lowers the whole spec into one query string.
	StrategySingleAPIFilter Strategy = "single_api_filter"
	// StrategyMultipleAPIFilters issues one query per OR group and unions
	// the results by entity id.
	StrategyMultipleAPIFilters Strategy = "multiple_api_filters"
	// StrategyClientSide fetches unfiltered pages and applies the
	// evaluator per entity.
	StrategyClientSide Strategy = "client_side"
)

// MetadataLookup resolves filter operands into remote query fields. An
// attribute is only lowerable when its remote metadata is known.
type MetadataLookup interface {
	// AttributeQueryField returns the query predicate field for an
	// attribute id, and whether the attribute is filterable remotely.
	AttributeQueryField(attributeID string) (string, bool)
}

// FolderQueryField is the query predicate field for folder membership.
const FolderQueryField = "productFolder"

// Plan is the outcome of strategy selection: the strategy plus the lowered
// query strings it needs (one for single, one per group for multiple).
type Plan struct {
	Strategy Strategy
	Queries  []string
}

// SelectStrategy decides how a collection fetch should execute the spec.
func SelectStrategy(spec *domain.FilterSpec, lookup MetadataLookup) Plan {
	if spec.IsEmpty() {
		return Plan{Strategy: StrategyNoFilter}
	}

	if spec.Logic != domain.LogicOr {
		// AND (or unset): lowerable only if every top-level condition is a
		// lowerable leaf.
		if preds, ok := lowerAll(spec.Conditions, lookup); ok {
			return Plan{Strategy: StrategySingleAPIFilter, Queries: []string{remote.BuildFilter(preds)}}
		}
		return Plan{Strategy: StrategyClientSide}
	}

	// OR: lowerable only as request fan-out, one query per AND-only group.
	queries := make([]string, 0, len(spec.Conditions))
	for _, c := range spec.Conditions {
		if c.Type != domain.ConditionGroup || c.Logic == domain.LogicOr {
			return Plan{Strategy: StrategyClientSide}
		}
		preds, ok := lowerAll(c.Conditions, lookup)
		if !ok {
			return Plan{Strategy: StrategyClientSide}
		}
		queries = append(queries, remote.BuildFilter(preds))
	}
	return Plan{Strategy: StrategyMultipleAPIFilters, Queries: queries}
}

// lowerAll lowers a flat condition list into AND predicates. Any group or
// unlowerable leaf aborts.
func lowerAll(conds []domain.FilterCondition, lookup MetadataLookup) ([]remote.Predicate, bool) {
	var preds []remote.Predicate
	for _, c := range conds {
		lowered, ok := lowerLeaf(c, lookup)
		if !ok {
			return nil, false
		}
		preds = append(preds, lowered...)
	}
	return preds, true
}

func lowerLeaf(c domain.FilterCondition, lookup MetadataLookup) ([]remote.Predicate, bool) {
	switch c.Type {
	case domain.ConditionFolder:
		// Repeated predicates on one field are OR within the field, which
		// is exactly the "in" membership semantic. not_in has no remote form.
		if c.Operator != domain.OpIn || len(c.FolderIDs) == 0 {
			return nil, false
		}
		preds := make([]remote.Predicate, 0, len(c.FolderIDs))
		for _, id := range c.FolderIDs {
			preds = append(preds, remote.Predicate{Field: FolderQueryField, Value: id})
		}
		return preds, true
	case domain.ConditionAttribute:
		if c.Operator != domain.OpEquals || c.Value == nil {
			return nil, false
		}
		field, ok := lookup.AttributeQueryField(c.AttributeID)
		if !ok {
			return nil, false
		}
		return []remote.Predicate{{Field: field, Value: asString(c.Value)}}, true
	default:
		return nil, false
	}
}
