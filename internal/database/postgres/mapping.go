package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklink/stocklink/internal/domain"
)

// MappingRepository implements the mapping store for PostgreSQL. The
// insert-if-absent contract maps onto ON CONFLICT DO NOTHING against the
// mappings_identity_key unique index.
type MappingRepository struct {
	db *pgxpool.Pool
}

// NewMappingRepository creates a new MappingRepository
func NewMappingRepository(db *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{db: db}
}

const mappingColumns = `id, kind, parent_account_id, child_account_id, entity_type,
	sync_direction, parent_entity_id, child_entity_id, match_field, match_value,
	auto_created, created_at`

// Get returns the mapping for a uniqueness key
func (r *MappingRepository) Get(ctx context.Context, key domain.MappingKey) (*domain.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM mappings
		WHERE kind = $1 AND parent_account_id = $2 AND child_account_id = $3
		  AND entity_type = $4 AND sync_direction = $5 AND parent_entity_id = $6
	`

	row := r.db.QueryRow(ctx, query,
		key.Kind, key.ParentAccountID, key.ChildAccountID,
		key.EntityType, key.Direction, key.ParentID,
	)

	m, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return m, nil
}

// InsertIfAbsent persists the mapping unless its key is already taken.
// The second return is false when a concurrent writer won the race; the
// returned row is then the existing one.
func (r *MappingRepository) InsertIfAbsent(ctx context.Context, m *domain.Mapping) (*domain.Mapping, bool, error) {
	query := `
		INSERT INTO mappings (kind, parent_account_id, child_account_id, entity_type,
			sync_direction, parent_entity_id, child_entity_id, match_field, match_value, auto_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (kind, parent_account_id, child_account_id, entity_type, sync_direction, parent_entity_id)
		DO NOTHING
		RETURNING ` + mappingColumns

	row := r.db.QueryRow(ctx, query,
		m.Key.Kind, m.Key.ParentAccountID, m.Key.ChildAccountID, m.Key.EntityType,
		m.Key.Direction, m.Key.ParentID, m.ChildID, m.MatchField, m.MatchValue, m.AutoCreated,
	)

	inserted, err := scanMapping(row)
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert mapping: %w", err)
	}

	// Lost the race; the winning row is authoritative.
	existing, err := r.Get(ctx, m.Key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read mapping after conflict: %w", err)
	}
	return existing, false, nil
}

// Delete removes a stale mapping row
func (r *MappingRepository) Delete(ctx context.Context, key domain.MappingKey) error {
	query := `
		DELETE FROM mappings
		WHERE kind = $1 AND parent_account_id = $2 AND child_account_id = $3
		  AND entity_type = $4 AND sync_direction = $5 AND parent_entity_id = $6
	`
	_, err := r.db.Exec(ctx, query,
		key.Kind, key.ParentAccountID, key.ChildAccountID,
		key.EntityType, key.Direction, key.ParentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

// ListByKind returns all mappings of one kind for an account pair
func (r *MappingRepository) ListByKind(ctx context.Context, parentAccountID, childAccountID string, kind domain.MappingKind) ([]domain.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM mappings
		WHERE parent_account_id = $1 AND child_account_id = $2 AND kind = $3
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, parentAccountID, childAccountID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return mappings, nil
}

func scanMapping(row pgx.Row) (*domain.Mapping, error) {
	var m domain.Mapping
	err := row.Scan(
		&m.ID,
		&m.Key.Kind,
		&m.Key.ParentAccountID,
		&m.Key.ChildAccountID,
		&m.Key.EntityType,
		&m.Key.Direction,
		&m.Key.ParentID,
		&m.ChildID,
		&m.MatchField,
		&m.MatchValue,
		&m.AutoCreated,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
