package domain

import "time"

// AccountRole distinguishes the source-of-truth tenant from its dependents.
type AccountRole string

const (
	RoleMain  AccountRole = "main"
	RoleChild AccountRole = "child"
)

// LinkStatus is the lifecycle state of a parent→child relationship.
type LinkStatus string

const (
	LinkActive    LinkStatus = "active"
	LinkSuspended LinkStatus = "suspended"
)

// Account represents one tenant of the remote inventory API.
type Account struct {
	ID          string      `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	AccessToken string      `json:"-" db:"access_token"`
	Role        AccountRole `json:"role" db:"role"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// AccountLink is a directed parent→child relationship. Fan-out from a main
// account only touches links whose status is active.
type AccountLink struct {
	ID              string     `json:"id" db:"id"`
	ParentAccountID string     `json:"parent_account_id" db:"parent_account_id"`
	ChildAccountID  string     `json:"child_account_id" db:"child_account_id"`
	Status          LinkStatus `json:"status" db:"status"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// IsActive reports whether the link participates in synchronization.
func (l *AccountLink) IsActive() bool {
	return l.Status == LinkActive
}

// SyncSettings is the per-link configuration controlling what syncs and how
// records are matched across the two accounts.
type SyncSettings struct {
	ID            string `json:"id" db:"id"`
	AccountLinkID string `json:"account_link_id" db:"account_link_id"`

	// EntityTypes lists the catalog kinds enabled for this link.
	EntityTypes []EntityType `json:"entity_types" db:"entity_types"`

	// MatchFields maps an entity type to the remote-unique field used to
	// detect that a record already exists on the other side
	// (code, article, externalCode or name).
	MatchFields map[EntityType]string `json:"match_fields" db:"match_fields"`

	Filter *FilterSpec `json:"filter,omitempty" db:"filter"`

	// PriceMappings maps parent price-list ids to child price-list ids.
	PriceMappings map[string]string `json:"price_mappings,omitempty" db:"price_mappings"`

	// AttributeAllowlist restricts which attributes sync per entity type.
	// An absent entry means all attributes sync.
	AttributeAllowlist map[EntityType][]string `json:"attribute_allowlist,omitempty" db:"attribute_allowlist"`

	CreateFolders    bool      `json:"create_folders" db:"create_folders"`
	SyncImages       bool      `json:"sync_images" db:"sync_images"`
	ImageFanoutLimit int       `json:"image_fanout_limit" db:"image_fanout_limit"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// MatchField returns the configured match field for an entity type,
// falling back to the default when unset.
func (s *SyncSettings) MatchField(t EntityType) string {
	if s.MatchFields != nil {
		if f, ok := s.MatchFields[t]; ok && f != "" {
			return f
		}
	}
	return DefaultMatchField
}

// TypeEnabled reports whether an entity type is configured to sync.
func (s *SyncSettings) TypeEnabled(t EntityType) bool {
	for _, et := range s.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// AllowedAttributes returns the attribute allow-list for an entity type.
// A nil result means every attribute is allowed.
func (s *SyncSettings) AllowedAttributes(t EntityType) []string {
	if s.AttributeAllowlist == nil {
		return nil
	}
	return s.AttributeAllowlist[t]
}

// DefaultMatchField is used when a link has no explicit match field configured.
const DefaultMatchField = "externalCode"
