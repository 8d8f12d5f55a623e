package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/database"
	"github.com/statline-io/statline-engine/pkg/models"
)

// LookupRepository provides access to the lookup registries: component
// categories and the closed enumeration tables. Reference data, rarely
// mutated; seeding goes through the administrative boundary.
type LookupRepository interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpsertCategory(ctx context.Context, c *models.Category) error
	ListRegistry(ctx context.Context, registry string) ([]*models.LookupValue, error)
	UpsertRegistryValue(ctx context.Context, v *models.LookupValue) error
}

type lookupRepository struct {
	db *database.DB
}

// NewLookupRepository creates a new LookupRepository.
func NewLookupRepository(db *database.DB) LookupRepository {
	return &lookupRepository{db: db}
}

var _ LookupRepository = (*lookupRepository)(nil)

const categoryColumns = `id, name, description, max_age_days, is_active, created_at`

func (r *lookupRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	c, err := scanCategory(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *lookupRepository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = $1`
	c, err := scanCategory(q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

func (r *lookupRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	rows, err := q.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *lookupRepository) UpsertCategory(ctx context.Context, c *models.Category) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO categories (name, description, max_age_days)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, max_age_days = EXCLUDED.max_age_days
		RETURNING id, is_active, created_at`

	err := q.QueryRow(ctx, query, c.Name, c.Description, c.MaxAgeDays).
		Scan(&c.ID, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (r *lookupRepository) ListRegistry(ctx context.Context, registry string) ([]*models.LookupValue, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		SELECT registry, value, description, sort_order
		FROM lookup_values
		WHERE registry = $1
		ORDER BY sort_order`

	rows, err := q.Query(ctx, query, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to query registry %s: %w", registry, err)
	}
	defer rows.Close()

	var values []*models.LookupValue
	for rows.Next() {
		var v models.LookupValue
		if err := rows.Scan(&v.Registry, &v.Value, &v.Description, &v.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan lookup value: %w", err)
		}
		values = append(values, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lookup values: %w", err)
	}

	return values, nil
}

func (r *lookupRepository) UpsertRegistryValue(ctx context.Context, v *models.LookupValue) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO lookup_values (registry, value, description, sort_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (registry, value) DO UPDATE
		SET description = EXCLUDED.description, sort_order = EXCLUDED.sort_order`

	if _, err := q.Exec(ctx, query, v.Registry, v.Value, v.Description, v.SortOrder); err != nil {
		return fmt.Errorf("failed to upsert lookup value: %w", err)
	}
	return nil
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.MaxAgeDays, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
