package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklink/stocklink/internal/domain"
)

// SettingsRepository implements sync settings storage for PostgreSQL.
// Structured fields (match fields, filter, allow-lists) are stored as JSONB.
type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `id, account_link_id, entity_types, match_fields, filter,
	price_mappings, attribute_allowlist, create_folders, sync_images, image_fanout_limit, updated_at`

// GetByLinkID retrieves the settings of one account link
func (r *SettingsRepository) GetByLinkID(ctx context.Context, linkID string) (*domain.SyncSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM sync_settings WHERE account_link_id = $1`

	s, err := scanSettings(r.db.QueryRow(ctx, query, linkID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: link %s", domain.ErrSettingsNotFound, linkID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync settings: %w", err)
	}
	return s, nil
}

// Upsert creates or replaces the settings of an account link
func (r *SettingsRepository) Upsert(ctx context.Context, s *domain.SyncSettings) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	matchFields, err := json.Marshal(s.MatchFields)
	if err != nil {
		return fmt.Errorf("failed to encode match fields: %w", err)
	}
	var filter []byte
	if s.Filter != nil {
		if filter, err = json.Marshal(s.Filter); err != nil {
			return fmt.Errorf("failed to encode filter: %w", err)
		}
	}
	priceMappings, err := json.Marshal(s.PriceMappings)
	if err != nil {
		return fmt.Errorf("failed to encode price mappings: %w", err)
	}
	allowlist, err := json.Marshal(s.AttributeAllowlist)
	if err != nil {
		return fmt.Errorf("failed to encode attribute allowlist: %w", err)
	}

	types := make([]string, 0, len(s.EntityTypes))
	for _, t := range s.EntityTypes {
		types = append(types, string(t))
	}

	query := `
		INSERT INTO sync_settings (id, account_link_id, entity_types, match_fields, filter,
			price_mappings, attribute_allowlist, create_folders, sync_images, image_fanout_limit, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (account_link_id) DO UPDATE SET
			entity_types = EXCLUDED.entity_types,
			match_fields = EXCLUDED.match_fields,
			filter = EXCLUDED.filter,
			price_mappings = EXCLUDED.price_mappings,
			attribute_allowlist = EXCLUDED.attribute_allowlist,
			create_folders = EXCLUDED.create_folders,
			sync_images = EXCLUDED.sync_images,
			image_fanout_limit = EXCLUDED.image_fanout_limit,
			updated_at = now()
	`
	_, err = r.db.Exec(ctx, query,
		s.ID, s.AccountLinkID, types, matchFields, filter,
		priceMappings, allowlist, s.CreateFolders, s.SyncImages, s.ImageFanoutLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync settings: %w", err)
	}
	return nil
}

// Delete removes the settings row
func (r *SettingsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_settings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSettingsNotFound, id)
	}
	return nil
}

// List returns all configured settings
func (r *SettingsRepository) List(ctx context.Context) ([]domain.SyncSettings, error) {
	rows, err := r.db.Query(ctx, `SELECT `+settingsColumns+` FROM sync_settings ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync settings: %w", err)
	}
	defer rows.Close()

	var all []domain.SyncSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync settings: %w", err)
		}
		all = append(all, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return all, nil
}

func scanSettings(row pgx.Row) (*domain.SyncSettings, error) {
	var s domain.SyncSettings
	var types []string
	var matchFields, filter, priceMappings, allowlist []byte

	err := row.Scan(
		&s.ID, &s.AccountLinkID, &types, &matchFields, &filter,
		&priceMappings, &allowlist, &s.CreateFolders, &s.SyncImages, &s.ImageFanoutLimit, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, t := range types {
		s.EntityTypes = append(s.EntityTypes, domain.EntityType(t))
	}
	if len(matchFields) > 0 {
		if err := json.Unmarshal(matchFields, &s.MatchFields); err != nil {
			return nil, fmt.Errorf("malformed match fields: %w", err)
		}
	}
	if len(filter) > 0 {
		spec, err := domain.ParseFilterSpec(filter)
		if err != nil {
			return nil, fmt.Errorf("malformed filter: %w", err)
		}
		s.Filter = spec
	}
	if len(priceMappings) > 0 {
		if err := json.Unmarshal(priceMappings, &s.PriceMappings); err != nil {
			return nil, fmt.Errorf("malformed price mappings: %w", err)
		}
	}
	if len(allowlist) > 0 {
		if err := json.Unmarshal(allowlist, &s.AttributeAllowlist); err != nil {
			return nil, fmt.Errorf("malformed attribute allowlist: %w", err)
		}
	}
	return &s, nil
}
