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

// ComponentRepository provides data access for components.
type ComponentRepository interface {
	Create(ctx context.Context, c *models.Component) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Component, error)
	GetByName(ctx context.Context, name string) (*models.Component, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Component, error)
	// Update writes the full row guarded by the expected version. It returns
	// apperrors.VersionConflict when the stored version moved on.
	Update(ctx context.Context, c *models.Component, expectedVersion int) error
}

type componentRepository struct {
	db *database.DB
}

// NewComponentRepository creates a new ComponentRepository.
func NewComponentRepository(db *database.DB) ComponentRepository {
	return &componentRepository{db: db}
}

var _ ComponentRepository = (*componentRepository)(nil)

const componentColumns = `id, name, category_id, status, priority, effort_hours,
	notes, activity_count, version, created_at, updated_at, created_by, is_active`

func (r *componentRepository) Create(ctx context.Context, c *models.Component) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO components (
			name, category_id, status, priority, effort_hours,
			notes, activity_count, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at, is_active`

	err := q.QueryRow(ctx, query,
		c.Name,
		c.CategoryID,
		string(c.Status),
		string(c.Priority),
		c.EffortHours,
		c.Notes,
		c.ActivityCount,
		c.CreatedBy,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt, &c.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create component: %w", err)
	}

	return nil
}

func (r *componentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + componentColumns + ` FROM components WHERE id = $1`
	c, err := scanComponent(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get component: %w", err)
	}
	return c, nil
}

func (r *componentRepository) GetByName(ctx context.Context, name string) (*models.Component, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + componentColumns + ` FROM components WHERE name = $1`
	c, err := scanComponent(q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get component by name: %w", err)
	}
	return c, nil
}

func (r *componentRepository) List(ctx context.Context, activeOnly bool) ([]*models.Component, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + componentColumns + ` FROM components`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var components []*models.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}

	return components, nil
}

func (r *componentRepository) Update(ctx context.Context, c *models.Component, expectedVersion int) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		UPDATE components
		SET name = $3, category_id = $4, status = $5, priority = $6,
		    effort_hours = $7, notes = $8, activity_count = $9,
		    is_active = $10, version = $2 + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := q.QueryRow(ctx, query,
		c.ID,
		expectedVersion,
		c.Name,
		c.CategoryID,
		string(c.Status),
		string(c.Priority),
		c.EffortHours,
		c.Notes,
		c.ActivityCount,
		c.IsActive,
	).Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return versionConflictOrNotFound(ctx, q, "components", string(models.EntityComponent), c.ID, expectedVersion)
		}
		return fmt.Errorf("failed to update component: %w", err)
	}

	return nil
}

func scanComponent(row pgx.Row) (*models.Component, error) {
	var c models.Component
	var status, priority string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.CategoryID,
		&status,
		&priority,
		&c.EffortHours,
		&c.Notes,
		&c.ActivityCount,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.CreatedBy,
		&c.IsActive,
	)
	if err != nil {
		return nil, err
	}

	c.Status = models.ComponentStatus(status)
	c.Priority = models.Priority(priority)
	return &c, nil
}

// versionConflictOrNotFound distinguishes a lost optimistic lock from a
// missing row after a guarded UPDATE matched nothing.
func versionConflictOrNotFound(ctx context.Context, q database.Querier, table, entityType string, id uuid.UUID, expected int) error {
	var actual int
	err := q.QueryRow(ctx, `SELECT version FROM `+table+` WHERE id = $1`, id).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check stored version: %w", err)
	}
	return &apperrors.VersionConflict{
		EntityType: entityType,
		EntityID:   id.String(),
		Expected:   expected,
		Actual:     actual,
	}
}
