package repository

import (
	"context"

	"github.com/stocklink/stocklink/internal/domain"
)

// Mapping is the data access interface for cross-account identity links.
// It is the only mutable shared state the sync core touches directly, so
// all writes go through InsertIfAbsent: first writer wins, a concurrent
// writer detects the existing row and re-reads.
type Mapping interface {
	// Get returns the mapping for a uniqueness key, or domain.ErrMappingNotFound.
	Get(ctx context.Context, key domain.MappingKey) (*domain.Mapping, error)

	// InsertIfAbsent persists m unless a row with the same key already
	// exists. It returns the winning row either way, with Created=false
	// when a concurrent writer got there first.
	InsertIfAbsent(ctx context.Context, m *domain.Mapping) (*domain.Mapping, bool, error)

	// Delete removes a stale mapping row (self-healing path).
	Delete(ctx context.Context, key domain.MappingKey) error

	// ListByKind returns all mappings of one kind for an account pair,
	// e.g. every mapped custom entity before the element pre-cache stage.
	ListByKind(ctx context.Context, parentAccountID, childAccountID string, kind domain.MappingKind) ([]domain.Mapping, error)
}
