package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageAnalysis carries the legacy, richer view of a component's state.
// At most one active analysis exists per component; historical rows survive
// as deactivated records.
type UsageAnalysis struct {
	ID                  uuid.UUID           `json:"id"`
	ComponentID         uuid.UUID           `json:"component_id"`
	WorkingStatus       WorkingStatus       `json:"working_status"`
	PriorityToFix       Priority            `json:"priority_to_fix"`
	ComplexityToFix     Complexity          `json:"complexity_to_fix"`
	DocumentationStatus DocumentationStatus `json:"documentation_status"`
	TestingStatus       TestingStatus       `json:"testing_status"`
	ProductionReady     bool                `json:"production_ready"`
	Notes               string              `json:"notes,omitempty"`
	Version             int                 `json:"version"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	CreatedBy           string              `json:"created_by"`
	IsActive            bool                `json:"is_active"`
}
