package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives the periodic read-side and maintenance work: freshness
// scans and history compaction. It owns no state of its own and stops when
// its context is cancelled.
type Scheduler struct {
	freshness       FreshnessMonitor
	retention       RetentionCompactor
	scanInterval    time.Duration
	compactInterval time.Duration
	logger          *zap.Logger
}

// NewScheduler creates a Scheduler. Non-positive intervals disable the
// corresponding job.
func NewScheduler(freshness FreshnessMonitor, retention RetentionCompactor, scanInterval, compactInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		freshness:       freshness,
		retention:       retention,
		scanInterval:    scanInterval,
		compactInterval: compactInterval,
		logger:          logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled. Each job failure is logged and the
// ticker keeps going; a broken scan must not take the scheduler down.
func (s *Scheduler) Run(ctx context.Context) {
	var scanC <-chan time.Time
	if s.scanInterval > 0 {
		scanTicker := time.NewTicker(s.scanInterval)
		defer scanTicker.Stop()
		scanC = scanTicker.C
	}

	var compactC <-chan time.Time
	if s.compactInterval > 0 {
		compactTicker := time.NewTicker(s.compactInterval)
		defer compactTicker.Stop()
		compactC = compactTicker.C
	}

	s.logger.Info("Scheduler started",
		zap.Duration("scan_interval", s.scanInterval),
		zap.Duration("compact_interval", s.compactInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-scanC:
			if _, err := s.freshness.Scan(ctx); err != nil {
				s.logger.Error("Freshness scan failed", zap.Error(err))
			}
		case <-compactC:
			if _, err := s.retention.Compact(ctx); err != nil {
				s.logger.Error("History compaction failed", zap.Error(err))
			}
		}
	}
}
