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

// UsageAnalysisRepository provides data access for usage analyses.
type UsageAnalysisRepository interface {
	Create(ctx context.Context, a *models.UsageAnalysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UsageAnalysis, error)
	// GetActiveByComponent returns nil, nil when no active analysis exists.
	GetActiveByComponent(ctx context.Context, componentID uuid.UUID) (*models.UsageAnalysis, error)
	List(ctx context.Context, activeOnly bool) ([]*models.UsageAnalysis, error)
	Update(ctx context.Context, a *models.UsageAnalysis, expectedVersion int) error
}

type usageAnalysisRepository struct {
	db *database.DB
}

// NewUsageAnalysisRepository creates a new UsageAnalysisRepository.
func NewUsageAnalysisRepository(db *database.DB) UsageAnalysisRepository {
	return &usageAnalysisRepository{db: db}
}

var _ UsageAnalysisRepository = (*usageAnalysisRepository)(nil)

const usageAnalysisColumns = `id, component_id, working_status, priority_to_fix,
	complexity_to_fix, documentation_status, testing_status, production_ready,
	notes, version, created_at, updated_at, created_by, is_active`

func (r *usageAnalysisRepository) Create(ctx context.Context, a *models.UsageAnalysis) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO usage_analyses (
			component_id, working_status, priority_to_fix, complexity_to_fix,
			documentation_status, testing_status, production_ready, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at, is_active`

	err := q.QueryRow(ctx, query,
		a.ComponentID,
		string(a.WorkingStatus),
		string(a.PriorityToFix),
		string(a.ComplexityToFix),
		string(a.DocumentationStatus),
		string(a.TestingStatus),
		a.ProductionReady,
		a.Notes,
		a.CreatedBy,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt, &a.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create usage analysis: %w", err)
	}

	return nil
}

func (r *usageAnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UsageAnalysis, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + usageAnalysisColumns + ` FROM usage_analyses WHERE id = $1`
	a, err := scanUsageAnalysis(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get usage analysis: %w", err)
	}
	return a, nil
}

func (r *usageAnalysisRepository) GetActiveByComponent(ctx context.Context, componentID uuid.UUID) (*models.UsageAnalysis, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + usageAnalysisColumns + ` FROM usage_analyses
		WHERE component_id = $1 AND is_active`
	a, err := scanUsageAnalysis(q.QueryRow(ctx, query, componentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get usage analysis for component: %w", err)
	}
	return a, nil
}

func (r *usageAnalysisRepository) List(ctx context.Context, activeOnly bool) ([]*models.UsageAnalysis, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + usageAnalysisColumns + ` FROM usage_analyses`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.UsageAnalysis
	for rows.Next() {
		a, err := scanUsageAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage analyses: %w", err)
	}

	return analyses, nil
}

func (r *usageAnalysisRepository) Update(ctx context.Context, a *models.UsageAnalysis, expectedVersion int) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		UPDATE usage_analyses
		SET working_status = $3, priority_to_fix = $4, complexity_to_fix = $5,
		    documentation_status = $6, testing_status = $7, production_ready = $8,
		    notes = $9, is_active = $10, version = $2 + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := q.QueryRow(ctx, query,
		a.ID,
		expectedVersion,
		string(a.WorkingStatus),
		string(a.PriorityToFix),
		string(a.ComplexityToFix),
		string(a.DocumentationStatus),
		string(a.TestingStatus),
		a.ProductionReady,
		a.Notes,
		a.IsActive,
	).Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return versionConflictOrNotFound(ctx, q, "usage_analyses", string(models.EntityUsageAnalysis), a.ID, expectedVersion)
		}
		return fmt.Errorf("failed to update usage analysis: %w", err)
	}

	return nil
}

func scanUsageAnalysis(row pgx.Row) (*models.UsageAnalysis, error) {
	var a models.UsageAnalysis
	var working, priority, complexity, doc, testing string

	err := row.Scan(
		&a.ID,
		&a.ComponentID,
		&working,
		&priority,
		&complexity,
		&doc,
		&testing,
		&a.ProductionReady,
		&a.Notes,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.CreatedBy,
		&a.IsActive,
	)
	if err != nil {
		return nil, err
	}

	a.WorkingStatus = models.WorkingStatus(working)
	a.PriorityToFix = models.Priority(priority)
	a.ComplexityToFix = models.Complexity(complexity)
	a.DocumentationStatus = models.DocumentationStatus(doc)
	a.TestingStatus = models.TestingStatus(testing)
	return &a, nil
}
