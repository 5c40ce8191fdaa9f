package filter

import (
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
)

// Problem describes one structural issue in a filter definition.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// Validate reports the structural problems of a filter definition without
// evaluating it. Configuration surfaces call this before persisting a spec;
// the evaluator itself tolerates malformed nodes by failing them.
func Validate(spec *domain.FilterSpec) []Problem {
	if spec == nil {
		return nil
	}
	var problems []Problem
	if spec.Logic != "" && spec.Logic != domain.LogicAnd && spec.Logic != domain.LogicOr {
		problems = append(problems, Problem{Path: "logic", Message: fmt.Sprintf("unknown logic %q", spec.Logic)})
	}
	if spec.Mode != "" && spec.Mode != domain.ModeWhitelist && spec.Mode != domain.ModeBlacklist {
		problems = append(problems, Problem{Path: "mode", Message: fmt.Sprintf("unknown mode %q", spec.Mode)})
	}
	for i, c := range spec.Conditions {
		problems = append(problems, validateCondition(fmt.Sprintf("conditions[%d]", i), c)...)
	}
	return problems
}

func validateCondition(path string, c domain.FilterCondition) []Problem {
	var problems []Problem
	switch c.Type {
	case domain.ConditionFolder:
		if len(c.FolderIDs) == 0 {
			problems = append(problems, Problem{Path: path, Message: "folder condition requires folder_ids"})
		}
		if c.Operator != domain.OpIn && c.Operator != domain.OpNotIn {
			problems = append(problems, Problem{Path: path, Message: fmt.Sprintf("folder condition supports in/not_in, got %q", c.Operator)})
		}
	case domain.ConditionAttribute:
		if c.AttributeID == "" {
			problems = append(problems, Problem{Path: path, Message: "attribute condition requires attribute_id"})
		}
		if !validOperator(c.Operator) {
			problems = append(problems, Problem{Path: path, Message: fmt.Sprintf("unknown operator %q", c.Operator)})
		}
		switch c.Operator {
		case domain.OpIn, domain.OpNotIn:
			if len(c.Values) == 0 {
				problems = append(problems, Problem{Path: path, Message: "in/not_in requires values"})
			}
		case domain.OpIsNull, domain.OpIsNotNull:
			// No operand required.
		default:
			if c.Value == nil {
				problems = append(problems, Problem{Path: path, Message: "operator requires a value"})
			}
		}
	case domain.ConditionGroup:
		if len(c.Conditions) == 0 {
			problems = append(problems, Problem{Path: path, Message: "group requires conditions"})
		}
		if c.Logic != "" && c.Logic != domain.LogicAnd && c.Logic != domain.LogicOr {
			problems = append(problems, Problem{Path: path, Message: fmt.Sprintf("unknown logic %q", c.Logic)})
		}
		for i, sub := range c.Conditions {
			problems = append(problems, validateCondition(fmt.Sprintf("%s.conditions[%d]", path, i), sub)...)
		}
	default:
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf("unknown condition type %q", c.Type)})
	}
	return problems
}

func validOperator(op domain.FilterOperator) bool {
	switch op {
	case domain.OpEquals, domain.OpNotEquals,
		domain.OpContains, domain.OpNotContains,
		domain.OpStartsWith, domain.OpEndsWith,
		domain.OpGreater, domain.OpGreaterOrEqual,
		domain.OpLess, domain.OpLessOrEqual,
		domain.OpIsNull, domain.OpIsNotNull,
		domain.OpIn, domain.OpNotIn:
		return true
	}
	return false
}
