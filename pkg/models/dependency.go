package models

import (
	"time"

	"github.com/google/uuid"
)

// Dependency is a directed edge from a component to either another component
// (TargetComponentID set) or an external named dependency (TargetName set).
type Dependency struct {
	ID                uuid.UUID      `json:"id"`
	ComponentID       uuid.UUID      `json:"component_id"`
	TargetComponentID *uuid.UUID     `json:"target_component_id,omitempty"`
	TargetName        string         `json:"target_name,omitempty"`
	DependencyType    DependencyType `json:"dependency_type"`
	Version           int            `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CreatedBy         string         `json:"created_by"`
	IsActive          bool           `json:"is_active"`
}

// IsInternal returns true when the edge targets another tracked component.
func (d *Dependency) IsInternal() bool {
	return d.TargetComponentID != nil
}
