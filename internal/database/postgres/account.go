package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklink/stocklink/internal/domain"
)

// AccountRepository implements account and link lookups for PostgreSQL.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetAccount retrieves one account by id
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT id, name, access_token, role, created_at FROM accounts WHERE id = $1`

	var acc domain.Account
	err := r.db.QueryRow(ctx, query, id).Scan(
		&acc.ID, &acc.Name, &acc.AccessToken, &acc.Role, &acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

// GetLink retrieves one account link by id
func (r *AccountRepository) GetLink(ctx context.Context, linkID string) (*domain.AccountLink, error) {
	query := `
		SELECT id, parent_account_id, child_account_id, status, created_at
		FROM account_links WHERE id = $1
	`

	var link domain.AccountLink
	err := r.db.QueryRow(ctx, query, linkID).Scan(
		&link.ID, &link.ParentAccountID, &link.ChildAccountID, &link.Status, &link.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, linkID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account link: %w", err)
	}
	return &link, nil
}

// ListActiveLinks returns the active links of a parent account
func (r *AccountRepository) ListActiveLinks(ctx context.Context, parentAccountID string) ([]domain.AccountLink, error) {
	query := `
		SELECT id, parent_account_id, child_account_id, status, created_at
		FROM account_links
		WHERE parent_account_id = $1 AND status = 'active'
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, parentAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account links: %w", err)
	}
	defer rows.Close()

	var links []domain.AccountLink
	for rows.Next() {
		var link domain.AccountLink
		if err := rows.Scan(&link.ID, &link.ParentAccountID, &link.ChildAccountID, &link.Status, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return links, nil
}
