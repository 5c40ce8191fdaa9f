package remote

import "strings"

// The remote query language expresses AND as semicolon-joined predicates:
// field=value;field2=value2. OR is not expressible in one request; callers
// fan out one request per predicate group instead.

// Predicate is one field=value comparison in a collection query.
type Predicate struct {
	Field string
	Value string
}

// EscapeFilterValue escapes the query language's reserved separators inside
// a literal value.
func EscapeFilterValue(v string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`=`, `\=`,
	)
	return r.Replace(v)
}

// BuildFilter joins predicates into one AND filter string.
func BuildFilter(preds []Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, p.Field+"="+EscapeFilterValue(p.Value))
	}
	return strings.Join(parts, ";")
}

// MatchFilter builds the exact-match filter used by mapping resolution.
func MatchFilter(field, value string) string {
	return BuildFilter([]Predicate{{Field: field, Value: value}})
}
