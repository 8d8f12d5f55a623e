package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/statline-io/statline-engine/pkg/database"
	"github.com/statline-io/statline-engine/pkg/models"
)

// HistoryRepository provides append-only access to the per-entity-type
// history tables. Rows are never updated in place.
type HistoryRepository interface {
	Append(ctx context.Context, rec *models.HistoryRecord) error
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]*models.HistoryRecord, error)
	CountByEntity(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (int, error)
	// PruneKeepNewest deletes all but the newest keep rows per entity and
	// returns the number of rows removed across the whole table.
	PruneKeepNewest(ctx context.Context, entityType models.EntityType, keep int) (int64, error)
}

type historyRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) HistoryRepository {
	return &historyRepository{db: db}
}

var _ HistoryRepository = (*historyRepository)(nil)

// historyTable maps an entity type onto its append-only table.
func historyTable(entityType models.EntityType) (string, error) {
	switch entityType {
	case models.EntityComponent:
		return "component_history", nil
	case models.EntityUsageAnalysis:
		return "usage_analysis_history", nil
	case models.EntityIssue:
		return "issue_history", nil
	case models.EntityDependency:
		return "dependency_history", nil
	default:
		return "", fmt.Errorf("no history table for entity type %q", entityType)
	}
}

func (r *historyRepository) Append(ctx context.Context, rec *models.HistoryRecord) error {
	table, err := historyTable(rec.EntityType)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal history snapshot: %w", err)
	}

	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		INSERT INTO ` + table + ` (entity_id, version, operation, snapshot, changed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, changed_at`

	err = q.QueryRow(ctx, query,
		rec.EntityID,
		rec.Version,
		string(rec.Operation),
		snapshot,
		rec.ChangedBy,
	).Scan(&rec.ID, &rec.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}

	return nil
}

func (r *historyRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) ([]*models.HistoryRecord, error) {
	table, err := historyTable(entityType)
	if err != nil {
		return nil, err
	}

	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		SELECT id, entity_id, version, operation, snapshot, changed_at, changed_by
		FROM ` + table + `
		WHERE entity_id = $1
		ORDER BY version`

	rows, err := q.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []*models.HistoryRecord
	for rows.Next() {
		rec := &models.HistoryRecord{EntityType: entityType}
		var operation string
		var snapshot []byte
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.Version, &operation, &snapshot, &rec.ChangedAt, &rec.ChangedBy); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.Operation = models.Operation(operation)
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history snapshot: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history records: %w", err)
	}

	return records, nil
}

func (r *historyRepository) CountByEntity(ctx context.Context, entityType models.EntityType, entityID uuid.UUID) (int, error) {
	table, err := historyTable(entityType)
	if err != nil {
		return 0, err
	}

	q := database.QuerierFrom(ctx, r.db.Pool)

	var count int
	err = q.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE entity_id = $1`, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return count, nil
}

func (r *historyRepository) PruneKeepNewest(ctx context.Context, entityType models.EntityType, keep int) (int64, error) {
	table, err := historyTable(entityType)
	if err != nil {
		return 0, err
	}

	q := database.QuerierFrom(ctx, r.db.Pool)

	query := `
		DELETE FROM ` + table + `
		WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (
					PARTITION BY entity_id ORDER BY version DESC
				) AS rn
				FROM ` + table + `
			) ranked
			WHERE ranked.rn > $1
		)`

	tag, err := q.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}
