package repository

import (
	"context"

	"github.com/stocklink/stocklink/internal/domain"
)

// Account is the data access interface for tenants and their links.
type Account interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetLink(ctx context.Context, linkID string) (*domain.AccountLink, error)

	// ListActiveLinks returns the active parent→child links of a main
	// account; fan-out paths iterate this.
	ListActiveLinks(ctx context.Context, parentAccountID string) ([]domain.AccountLink, error)
}

// Settings is the data access interface for per-link sync configuration.
type Settings interface {
	GetByLinkID(ctx context.Context, linkID string) (*domain.SyncSettings, error)
	Upsert(ctx context.Context, settings *domain.SyncSettings) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.SyncSettings, error)
}
