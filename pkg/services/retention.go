package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/repositories"
)

// RetentionCompactor prunes each entity's history down to its newest N
// records. History is append-only everywhere else; this is the single
// sanctioned deletion path.
type RetentionCompactor interface {
	Compact(ctx context.Context) (int64, error)
}

type retentionCompactor struct {
	history repositories.HistoryRepository
	keep    int
	logger  *zap.Logger
}

// NewRetentionCompactor creates a compactor keeping the newest keep records
// per entity.
func NewRetentionCompactor(history repositories.HistoryRepository, keep int, logger *zap.Logger) RetentionCompactor {
	return &retentionCompactor{
		history: history,
		keep:    keep,
		logger:  logger.Named("retention-compactor"),
	}
}

var _ RetentionCompactor = (*retentionCompactor)(nil)

func (c *retentionCompactor) Compact(ctx context.Context) (int64, error) {
	if c.keep <= 0 {
		return 0, nil
	}
	entityTypes := []models.EntityType{
		models.EntityComponent,
		models.EntityUsageAnalysis,
		models.EntityIssue,
		models.EntityDependency,
	}
	var total int64
	for _, et := range entityTypes {
		pruned, err := c.history.PruneKeepNewest(ctx, et, c.keep)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s history: %w", et, err)
		}
		total += pruned
	}
	if total > 0 {
		c.logger.Info("Compacted history", zap.Int64("pruned", total), zap.Int("keep", c.keep))
	}
	return total, nil
}
