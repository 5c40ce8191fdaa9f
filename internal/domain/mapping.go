package domain

import "time"

// MappingKind is the resource family a cross-account identity link belongs to.
type MappingKind string

const (
	KindEntity              MappingKind = "entity"
	KindAttribute           MappingKind = "attribute"
	KindCharacteristic      MappingKind = "characteristic"
	KindStandardEntity      MappingKind = "standard_entity"
	KindCustomEntity        MappingKind = "custom_entity"
	KindCustomEntityElement MappingKind = "custom_entity_element"
)

// SyncDirection distinguishes catalog fan-out (down) from sales-document
// mirroring (up).
type SyncDirection string

const (
	DirectionDown SyncDirection = "down"
	DirectionUp   SyncDirection = "up"
)

// MappingKey is the uniqueness tuple of a mapping row. For a given key at
// most one row may exist; the store enforces this and resolvers rely on it
// to stay correct under concurrent writers.
type MappingKey struct {
	Kind            MappingKind
	ParentAccountID string
	ChildAccountID  string
	EntityType      EntityType
	Direction       SyncDirection
	// ParentID is the parent-side identity within the scope: an entity id,
	// attribute id, characteristic name, vocabulary code or element id
	// depending on Kind.
	ParentID string
}

// Mapping is a persisted cross-account identity link.
type Mapping struct {
	ID          int64      `json:"id" db:"id"`
	Key         MappingKey `json:"key"`
	ChildID     string     `json:"child_id" db:"child_entity_id"`
	MatchField  string     `json:"match_field,omitempty" db:"match_field"`
	MatchValue  string     `json:"match_value,omitempty" db:"match_value"`
	AutoCreated bool       `json:"auto_created" db:"auto_created"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ResolutionStatus classifies the outcome of a mapping resolution attempt.
// The three cases are deliberately distinct: a skip is not a failure, and
// needs-creation is not "not found" in the error sense.
type ResolutionStatus int

const (
	// StatusResolved means a mapping exists (either pre-existing or just
	// established against a matching remote record).
	StatusResolved ResolutionStatus = iota
	// StatusSkip means the entity cannot be synchronized this pass, e.g.
	// its match-field value is empty.
	StatusSkip
	// StatusNeedsCreation means no remote counterpart exists; the caller
	// must create one and persist the mapping afterwards.
	StatusNeedsCreation
)

// Resolution is the explicit result of Resolver.Resolve.
type Resolution struct {
	Status  ResolutionStatus
	Mapping *Mapping // set only when Status == StatusResolved
	Reason  string   // human-readable skip reason, for logs
}

// Resolved builds a successful resolution.
func Resolved(m *Mapping) Resolution {
	return Resolution{Status: StatusResolved, Mapping: m}
}

// SkipResolution builds a skip outcome with a reason.
func SkipResolution(reason string) Resolution {
	return Resolution{Status: StatusSkip, Reason: reason}
}

// NeedsCreation builds a needs-creation outcome.
func NeedsCreation() Resolution {
	return Resolution{Status: StatusNeedsCreation}
}
