package domain

import "encoding/json"

// FilterLogic combines sibling conditions.
type FilterLogic string

const (
	LogicAnd FilterLogic = "and"
	LogicOr  FilterLogic = "or"
)

// FilterMode decides whether a passing condition keeps or drops the entity.
type FilterMode string

const (
	ModeWhitelist FilterMode = "whitelist"
	ModeBlacklist FilterMode = "blacklist"
)

// ConditionType tags the variant of a FilterCondition.
type ConditionType string

const (
	ConditionFolder    ConditionType = "folder"
	ConditionAttribute ConditionType = "attribute"
	ConditionGroup     ConditionType = "group"
)

// FilterOperator is the comparison applied by a leaf condition.
type FilterOperator string

const (
	OpEquals         FilterOperator = "equals"
	OpNotEquals      FilterOperator = "not_equals"
	OpContains       FilterOperator = "contains"
	OpNotContains    FilterOperator = "not_contains"
	OpStartsWith     FilterOperator = "starts_with"
	OpEndsWith       FilterOperator = "ends_with"
	OpGreater        FilterOperator = "greater"
	OpGreaterOrEqual FilterOperator = "greater_or_equal"
	OpLess           FilterOperator = "less"
	OpLessOrEqual    FilterOperator = "less_or_equal"
	OpIsNull         FilterOperator = "is_null"
	OpIsNotNull      FilterOperator = "is_not_null"
	OpIn             FilterOperator = "in"
	OpNotIn          FilterOperator = "not_in"
)

// FilterCondition is one node of the condition tree. Type selects the
// variant: folder and attribute are leaves, group recurses with its own
// logic. Fields not belonging to the tagged variant are ignored.
type FilterCondition struct {
	Type ConditionType `json:"type"`

	// Folder leaf: membership test of the entity's folder against FolderIDs.
	FolderIDs []string `json:"folder_ids,omitempty"`

	// Attribute leaf: Operator applied to the attribute with AttributeID.
	AttributeID string `json:"attribute_id,omitempty"`
	Operator    FilterOperator `json:"operator,omitempty"`
	Value       any            `json:"value,omitempty"`
	Values      []any          `json:"values,omitempty"`

	// Group: nested conditions combined with Logic.
	Logic      FilterLogic       `json:"logic,omitempty"`
	Conditions []FilterCondition `json:"conditions,omitempty"`
}

// FilterSpec is the full filter definition carried by SyncSettings.
type FilterSpec struct {
	Enabled    bool              `json:"enabled"`
	Logic      FilterLogic       `json:"logic"`
	Mode       FilterMode        `json:"mode"`
	Conditions []FilterCondition `json:"conditions"`
}

// IsEmpty reports whether the spec filters nothing: disabled, nil, or no
// conditions at all.
func (s *FilterSpec) IsEmpty() bool {
	return s == nil || !s.Enabled || len(s.Conditions) == 0
}

// ParseFilterSpec decodes a stored JSON filter definition.
func ParseFilterSpec(raw []byte) (*FilterSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var spec FilterSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
