package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert type constants. Each names one anomaly rule in the evaluator
// catalogue.
const (
	AlertBrokenComponent        = "BROKEN_COMPONENT"
	AlertStatusMismatch         = "STATUS_MISMATCH"
	AlertEffortHours            = "EFFORT_HOURS_INCONSISTENCY"
	AlertPriorityStatusConflict = "PRIORITY_STATUS_CONFLICT"
	AlertMissingDependency      = "MISSING_DEPENDENCY"
	AlertEffortComplexity       = "EFFORT_COMPLEXITY_MISMATCH"
	AlertStaleEntity            = "STALE_ENTITY"
	AlertProductionReady        = "PRODUCTION_READY_CONTRADICTION"
	AlertDocumentationGap       = "DOCUMENTATION_GAP"
	AlertUnresolvedIssue        = "UNRESOLVED_ISSUE"
)

// Alert is a derived anomaly record. Alerts are recomputed from current
// entity state on every evaluation and are never persisted or historized.
type Alert struct {
	AlertType       string    `json:"alert_type"`
	Severity        Severity  `json:"severity"`
	SubjectEntityID uuid.UUID `json:"subject_entity_id"`
	SubjectName     string    `json:"subject_name,omitempty"`
	Description     string    `json:"description"`
	DetectedAt      time.Time `json:"detected_at"`
}

// StalenessWarning reports an entity whose updated_at exceeds its category's
// configured maximum age.
type StalenessWarning struct {
	EntityID        uuid.UUID  `json:"entity_id"`
	EntityType      EntityType `json:"entity_type"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	DaysSinceUpdate int        `json:"days_since_update"`
	ThresholdDays   int        `json:"threshold_days"`
}
