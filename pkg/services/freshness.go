package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/metrics"
	"github.com/statline-io/statline-engine/pkg/models"
)

// FreshnessMonitor reports components whose last update is older than their
// category's maximum age. Read-only; it never mutates entities.
type FreshnessMonitor interface {
	Scan(ctx context.Context) ([]models.StalenessWarning, error)
}

type freshnessMonitor struct {
	loader         SnapshotLoader
	defaultMaxDays int
	logger         *zap.Logger
}

// NewFreshnessMonitor creates a FreshnessMonitor. defaultMaxDays applies to
// categories without their own max_age_days override.
func NewFreshnessMonitor(loader SnapshotLoader, defaultMaxDays int, logger *zap.Logger) FreshnessMonitor {
	return &freshnessMonitor{
		loader:         loader,
		defaultMaxDays: defaultMaxDays,
		logger:         logger.Named("freshness-monitor"),
	}
}

var _ FreshnessMonitor = (*freshnessMonitor)(nil)

func (m *freshnessMonitor) Scan(ctx context.Context) ([]models.StalenessWarning, error) {
	snap, err := m.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var warnings []models.StalenessWarning
	for _, c := range snap.Components {
		threshold := m.defaultMaxDays
		categoryName := ""
		if cat := snap.Category(c); cat != nil {
			categoryName = cat.Name
			if cat.MaxAgeDays != nil {
				threshold = *cat.MaxAgeDays
			}
		}
		if threshold <= 0 {
			continue
		}
		days := int(snap.TakenAt.Sub(c.UpdatedAt).Hours() / 24)
		if days <= threshold {
			continue
		}
		warnings = append(warnings, models.StalenessWarning{
			EntityID:        c.ID,
			EntityType:      models.EntityComponent,
			Name:            c.Name,
			Category:        categoryName,
			DaysSinceUpdate: days,
			ThresholdDays:   threshold,
		})
	}

	metrics.StalenessWarnings.Set(float64(len(warnings)))
	if len(warnings) > 0 {
		m.logger.Info("Freshness scan found stale components", zap.Int("count", len(warnings)))
	}
	return warnings, nil
}
