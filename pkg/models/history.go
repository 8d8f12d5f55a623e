package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is an immutable, append-only snapshot of an entity at a given
// version. Exactly one record exists per version transition. History rows are
// never updated in place; the retention compactor may prune the oldest rows
// beyond the configured cap.
type HistoryRecord struct {
	ID         uuid.UUID      `json:"id"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Version    int            `json:"version"`
	Operation  Operation      `json:"operation"`
	Snapshot   map[string]any `json:"snapshot"`
	ChangedAt  time.Time      `json:"changed_at"`
	ChangedBy  string         `json:"changed_by"`
}

// ComponentSnapshot flattens a component into a history snapshot document.
func ComponentSnapshot(c *Component) map[string]any {
	return map[string]any{
		"name":           c.Name,
		"category_id":    c.CategoryID.String(),
		"status":         string(c.Status),
		"priority":       string(c.Priority),
		"effort_hours":   c.EffortHours,
		"notes":          c.Notes,
		"activity_count": c.ActivityCount,
		"is_active":      c.IsActive,
	}
}

// UsageAnalysisSnapshot flattens a usage analysis into a history snapshot.
func UsageAnalysisSnapshot(a *UsageAnalysis) map[string]any {
	return map[string]any{
		"component_id":         a.ComponentID.String(),
		"working_status":       string(a.WorkingStatus),
		"priority_to_fix":      string(a.PriorityToFix),
		"complexity_to_fix":    string(a.ComplexityToFix),
		"documentation_status": string(a.DocumentationStatus),
		"testing_status":       string(a.TestingStatus),
		"production_ready":     a.ProductionReady,
		"notes":                a.Notes,
		"is_active":            a.IsActive,
	}
}

// IssueSnapshot flattens an issue into a history snapshot.
func IssueSnapshot(i *Issue) map[string]any {
	snap := map[string]any{
		"component_id": i.ComponentID.String(),
		"title":        i.Title,
		"description":  i.Description,
		"severity":     string(i.Severity),
		"issue_type":   string(i.IssueType),
		"resolved":     i.Resolved,
		"is_active":    i.IsActive,
	}
	if i.ResolvedAt != nil {
		snap["resolved_at"] = i.ResolvedAt.UTC().Format(time.RFC3339)
	}
	if i.ResolvedBy != nil {
		snap["resolved_by"] = *i.ResolvedBy
	}
	return snap
}

// DependencySnapshot flattens a dependency into a history snapshot.
func DependencySnapshot(d *Dependency) map[string]any {
	snap := map[string]any{
		"component_id":    d.ComponentID.String(),
		"dependency_type": string(d.DependencyType),
		"target_name":     d.TargetName,
		"is_active":       d.IsActive,
	}
	if d.TargetComponentID != nil {
		snap["target_component_id"] = d.TargetComponentID.String()
	}
	return snap
}
