package models

import (
	"time"

	"github.com/google/uuid"
)

// Component is a tracked unit of the monitored project. Its Status field is
// the single source of truth for the component's working state; the richer
// UsageAnalysis.working_status is maintained as a projection by the
// synchronization engine.
type Component struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"` // natural key, unique among components
	CategoryID    uuid.UUID       `json:"category_id"`
	Status        ComponentStatus `json:"status"`
	Priority      Priority        `json:"priority"`
	EffortHours   float64         `json:"effort_hours"`
	Notes         string          `json:"notes,omitempty"`
	ActivityCount int             `json:"activity_count"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CreatedBy     string          `json:"created_by"`
	IsActive      bool            `json:"is_active"`
}

// Category is a lookup registry row that groups components.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	MaxAgeDays  *int      `json:"max_age_days,omitempty"` // freshness threshold override
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// LookupValue is a row of one of the closed enumeration registries
// (statuses, priority levels, complexity levels, readiness levels).
type LookupValue struct {
	Registry    string `json:"registry"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
}

// Registry names for the seeded lookup tables.
const (
	RegistryStatuses     = "statuses"
	RegistryPriorities   = "priority_levels"
	RegistryComplexities = "complexity_levels"
	RegistryReadiness    = "readiness_levels"
)
