package filter

import (
	"strconv"
	"strings"

	"github.com/stocklink/stocklink/internal/domain"
)

// Passes evaluates one entity against a filter definition. An absent or
// disabled spec passes everything. Groups short-circuit: under AND the first
// failing condition decides, under OR the first passing one does. Blacklist
// mode inverts the final result.
func Passes(e *domain.Entity, spec *domain.FilterSpec) bool {
	var ev evaluator
	return ev.passes(e, spec)
}

// evaluator exists so tests can observe leaf evaluation order; the public
// entry point is the stateless Passes.
type evaluator struct {
	leafHook func(domain.FilterCondition)
}

func (ev *evaluator) passes(e *domain.Entity, spec *domain.FilterSpec) bool {
	if spec.IsEmpty() {
		return true
	}
	result := ev.evalGroup(e, spec.Logic, spec.Conditions)
	if spec.Mode == domain.ModeBlacklist {
		return !result
	}
	return result
}

func (ev *evaluator) evalGroup(e *domain.Entity, logic domain.FilterLogic, conds []domain.FilterCondition) bool {
	if len(conds) == 0 {
		return true
	}
	if logic == domain.LogicOr {
		for _, c := range conds {
			if ev.evalCondition(e, c) {
				return true
			}
		}
		return false
	}
	// AND is the default for an unset logic token.
	for _, c := range conds {
		if !ev.evalCondition(e, c) {
			return false
		}
	}
	return true
}

func (ev *evaluator) evalCondition(e *domain.Entity, c domain.FilterCondition) bool {
	switch c.Type {
	case domain.ConditionGroup:
		return ev.evalGroup(e, c.Logic, c.Conditions)
	case domain.ConditionFolder:
		if ev.leafHook != nil {
			ev.leafHook(c)
		}
		return evalFolder(e, c)
	case domain.ConditionAttribute:
		if ev.leafHook != nil {
			ev.leafHook(c)
		}
		return evalAttribute(e, c)
	default:
		return false
	}
}

func evalFolder(e *domain.Entity, c domain.FilterCondition) bool {
	inSet := false
	if e.Folder != nil {
		for _, id := range c.FolderIDs {
			if id == e.Folder.ID {
				inSet = true
				break
			}
		}
	}
	// An entity without a folder fails "in" and passes "not_in".
	if c.Operator == domain.OpNotIn {
		return !inSet
	}
	return inSet
}

func evalAttribute(e *domain.Entity, c domain.FilterCondition) bool {
	attr, ok := e.Attribute(c.AttributeID)
	if !ok {
		return c.Operator == domain.OpIsNull
	}

	switch c.Operator {
	case domain.OpEquals:
		return looseEqual(attr.Value, c.Value)
	case domain.OpNotEquals:
		return !looseEqual(attr.Value, c.Value)
	case domain.OpContains:
		return strings.Contains(asString(attr.Value), asString(c.Value))
	case domain.OpNotContains:
		return !strings.Contains(asString(attr.Value), asString(c.Value))
	case domain.OpStartsWith:
		return strings.HasPrefix(asString(attr.Value), asString(c.Value))
	case domain.OpEndsWith:
		return strings.HasSuffix(asString(attr.Value), asString(c.Value))
	case domain.OpGreater, domain.OpGreaterOrEqual, domain.OpLess, domain.OpLessOrEqual:
		return numericCompare(attr.Value, c.Value, c.Operator)
	case domain.OpIsNull:
		return isNull(attr.Value)
	case domain.OpIsNotNull:
		return !isNull(attr.Value)
	case domain.OpIn:
		return inValues(attr.Value, c.Values)
	case domain.OpNotIn:
		return !inValues(attr.Value, c.Values)
	default:
		return false
	}
}

func isNull(v any) bool {
	return v == nil || v == ""
}

func inValues(v any, set []any) bool {
	for _, candidate := range set {
		if looseEqual(v, candidate) {
			return true
		}
	}
	return false
}

// looseEqual compares numerically when both sides parse as numbers,
// otherwise by string form.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, oka := asFloat(a)
	fb, okb := asFloat(b)
	if oka && okb {
		return fa == fb
	}
	return asString(a) == asString(b)
}

func numericCompare(a, b any, op domain.FilterOperator) bool {
	fa, oka := asFloat(a)
	fb, okb := asFloat(b)
	if !oka || !okb {
		return false
	}
	switch op {
	case domain.OpGreater:
		return fa > fb
	case domain.OpGreaterOrEqual:
		return fa >= fb
	case domain.OpLess:
		return fa < fb
	case domain.OpLessOrEqual:
		return fa <= fb
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
