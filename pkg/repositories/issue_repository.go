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

// IssueRepository provides data access for issues.
type IssueRepository interface {
	Create(ctx context.Context, i *models.Issue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Issue, error)
	ListByComponent(ctx context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Issue, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Issue, error)
	// FindActiveDuplicate returns nil, nil when no active unresolved issue
	// with the same title exists for the component.
	FindActiveDuplicate(ctx context.Context, componentID uuid.UUID, title string) (*models.Issue, error)
	Update(ctx context.Context, i *models.Issue, expectedVersion int) error
}

type issueRepository struct {
	db *database.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *database.DB) IssueRepository {
	return &issueRepository{db: db}
}

var _ IssueRepository = (*issueRepository)(nil)

const issueColumns = `id, component_id, title, description, severity, issue_type,
	resolved, resolved_at, resolved_by, version, created_at, updated_at, created_by, is_active`

func (r *issueRepository) Create(ctx context.Context, i *models.Issue) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO issues (
			component_id, title, description, severity, issue_type, created_by
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at, is_active`

	err := q.QueryRow(ctx, query,
		i.ComponentID,
		i.Title,
		i.Description,
		string(i.Severity),
		string(i.IssueType),
		i.CreatedBy,
	).Scan(&i.ID, &i.Version, &i.CreatedAt, &i.UpdatedAt, &i.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`
	i, err := scanIssue(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return i, nil
}

func (r *issueRepository) ListByComponent(ctx context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Issue, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + issueColumns + ` FROM issues WHERE component_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query, componentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues for component: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

func (r *issueRepository) List(ctx context.Context, activeOnly bool) ([]*models.Issue, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + issueColumns + ` FROM issues`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	return collectIssues(rows)
}

func (r *issueRepository) FindActiveDuplicate(ctx context.Context, componentID uuid.UUID, title string) (*models.Issue, error) {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `SELECT ` + issueColumns + ` FROM issues
		WHERE component_id = $1 AND title = $2 AND is_active AND NOT resolved
		LIMIT 1`
	i, err := scanIssue(q.QueryRow(ctx, query, componentID, title))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check for duplicate issue: %w", err)
	}
	return i, nil
}

func (r *issueRepository) Update(ctx context.Context, i *models.Issue, expectedVersion int) error {
	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		UPDATE issues
		SET title = $3, description = $4, severity = $5, issue_type = $6,
		    resolved = $7, resolved_at = $8, resolved_by = $9,
		    is_active = $10, version = $2 + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err := q.QueryRow(ctx, query,
		i.ID,
		expectedVersion,
		i.Title,
		i.Description,
		string(i.Severity),
		string(i.IssueType),
		i.Resolved,
		i.ResolvedAt,
		i.ResolvedBy,
		i.IsActive,
	).Scan(&i.Version, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return versionConflictOrNotFound(ctx, q, "issues", string(models.EntityIssue), i.ID, expectedVersion)
		}
		return fmt.Errorf("failed to update issue: %w", err)
	}

	return nil
}

func collectIssues(rows pgx.Rows) ([]*models.Issue, error) {
	var issues []*models.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return issues, nil
}

func scanIssue(row pgx.Row) (*models.Issue, error) {
	var i models.Issue
	var severity, issueType string

	err := row.Scan(
		&i.ID,
		&i.ComponentID,
		&i.Title,
		&i.Description,
		&severity,
		&issueType,
		&i.Resolved,
		&i.ResolvedAt,
		&i.ResolvedBy,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CreatedBy,
		&i.IsActive,
	)
	if err != nil {
		return nil, err
	}

	i.Severity = models.Severity(severity)
	i.IssueType = models.IssueType(issueType)
	return &i, nil
}
