package models

import (
	"time"

	"github.com/google/uuid"
)

// Issue is a problem reported against a component. Once Resolved flips to
// true, ResolvedAt and ResolvedBy are frozen; the transition cannot be
// reversed.
type Issue struct {
	ID          uuid.UUID  `json:"id"`
	ComponentID uuid.UUID  `json:"component_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Severity    Severity   `json:"severity"`
	IssueType   IssueType  `json:"issue_type"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *string    `json:"resolved_by,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedBy   string     `json:"created_by"`
	IsActive    bool       `json:"is_active"`
}

// IsOpen returns true for active, unresolved issues.
func (i *Issue) IsOpen() bool {
	return i.IsActive && !i.Resolved
}

// IsBlockingOpen returns true for open issues severe enough to block a
// terminal status transition on the owning component.
func (i *Issue) IsBlockingOpen() bool {
	return i.IsOpen() && i.Severity.IsBlocking()
}
