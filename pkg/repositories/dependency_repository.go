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

// DependencyRepository provides data access for dependency edges.
type DependencyRepository interface {
	Create(ctx context.Context, d *models.Dependency) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dependency, error)
	ListByComponent(ctx context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error)
	ListByTarget(ctx context.Context, targetComponentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Dependency, error)
	Update(ctx context.Context, d *models.Dependency, expectedVersion int) error
}

type dependencyRepository struct {
	db *database.DB
}

// NewDependencyRepository creates a new DependencyRepository.
func NewDependencyRepository(db *database.DB) DependencyRepository {
	return &dependencyRepository{db: db}
}

var _ DependencyRepository = (*dependencyRepository)(nil)

const dependencyColumns = `id, component_id, target_component_id, target_name,
	dependency_type, version, created_at, updated_at, created_by, is_active`

func (r *dependencyRepository) Create(ctx context.Context, d *models.Dependency) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO dependencies (
			component_id, target_component_id, target_name, dependency_type, created_by
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at, is_active`

	err := q.QueryRow(ctx, query,
		d.ComponentID,
		d.TargetComponentID,
		d.TargetName,
		string(d.DependencyType),
		d.CreatedBy,
	).Scan(&d.ID, &d.Version, &d.CreatedAt, &d.UpdatedAt, &d.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create dependency: %w", err)
	}

	return nil
}

func (r *dependencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dependency, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + dependencyColumns + ` FROM dependencies WHERE id = $1`
	d, err := scanDependency(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dependency: %w", err)
	}
	return d, nil
}

func (r *dependencyRepository) ListByComponent(ctx context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error) {
	return r.list(ctx, `component_id = $1`, componentID, activeOnly)
}

func (r *dependencyRepository) ListByTarget(ctx context.Context, targetComponentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error) {
	return r.list(ctx, `target_component_id = $1`, targetComponentID, activeOnly)
}

func (r *dependencyRepository) list(ctx context.Context, where string, arg any, activeOnly bool) ([]*models.Dependency, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + dependencyColumns + ` FROM dependencies WHERE ` + where
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	return collectDependencies(rows)
}

func (r *dependencyRepository) List(ctx context.Context, activeOnly bool) ([]*models.Dependency, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + dependencyColumns + ` FROM dependencies`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	return collectDependencies(rows)
}

func (r *dependencyRepository) Update(ctx context.Context, d *models.Dependency, expectedVersion int) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		UPDATE dependencies
		SET dependency_type = $3, is_active = $4, version = $2 + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := q.QueryRow(ctx, query,
		d.ID,
		expectedVersion,
		string(d.DependencyType),
		d.IsActive,
	).Scan(&d.Version, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return versionConflictOrNotFound(ctx, q, "dependencies", string(models.EntityDependency), d.ID, expectedVersion)
		}
		return fmt.Errorf("failed to update dependency: %w", err)
	}

	return nil
}

func collectDependencies(rows pgx.Rows) ([]*models.Dependency, error) {
	var deps []*models.Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

func scanDependency(row pgx.Row) (*models.Dependency, error) {
	var d models.Dependency
	var depType string

	err := row.Scan(
		&d.ID,
		&d.ComponentID,
		&d.TargetComponentID,
		&d.TargetName,
		&depType,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CreatedBy,
		&d.IsActive,
	)
	if err != nil {
		return nil, err
	}

	d.DependencyType = models.DependencyType(depType)
	return &d, nil
}
