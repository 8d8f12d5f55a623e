package models

import "github.com/google/uuid"

// Field name constants used to key synchronization rules and to report
// changed fields on history-producing mutations.
const (
	FieldStatus              = "status"
	FieldPriority            = "priority"
	FieldEffortHours         = "effort_hours"
	FieldNotes               = "notes"
	FieldCategory            = "category_id"
	FieldActivity            = "activity_count"
	FieldWorkingStatus       = "working_status"
	FieldPriorityToFix       = "priority_to_fix"
	FieldComplexityToFix     = "complexity_to_fix"
	FieldDocumentationStatus = "documentation_status"
	FieldTestingStatus       = "testing_status"
	FieldProductionReady     = "production_ready"
	FieldSeverity            = "severity"
	FieldIssueType           = "issue_type"
	FieldResolved            = "resolved"
	FieldTitle               = "title"
	FieldDescription         = "description"
	FieldDependencyType      = "dependency_type"
)

// ComponentPatch is a partial update of a Component. Nil fields are left
// untouched. Touch refreshes updated_at and bumps the activity counter
// without changing any attribute; the ingestion adapter uses it for raw
// change events.
type ComponentPatch struct {
	Status      *ComponentStatus
	Priority    *Priority
	EffortHours *float64
	Notes       *string
	CategoryID  *uuid.UUID
	Touch       bool
}

// Fields lists the field names this patch would modify.
func (p ComponentPatch) Fields() []string {
	var fields []string
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if p.EffortHours != nil {
		fields = append(fields, FieldEffortHours)
	}
	if p.Notes != nil {
		fields = append(fields, FieldNotes)
	}
	if p.CategoryID != nil {
		fields = append(fields, FieldCategory)
	}
	if p.Touch {
		fields = append(fields, FieldActivity)
	}
	return fields
}

// IsEmpty returns true when the patch would not modify anything.
func (p ComponentPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// UsageAnalysisPatch is a partial update of a UsageAnalysis.
type UsageAnalysisPatch struct {
	WorkingStatus       *WorkingStatus
	PriorityToFix       *Priority
	ComplexityToFix     *Complexity
	DocumentationStatus *DocumentationStatus
	TestingStatus       *TestingStatus
	ProductionReady     *bool
	Notes               *string
}

// Fields lists the field names this patch would modify.
func (p UsageAnalysisPatch) Fields() []string {
	var fields []string
	if p.WorkingStatus != nil {
		fields = append(fields, FieldWorkingStatus)
	}
	if p.PriorityToFix != nil {
		fields = append(fields, FieldPriorityToFix)
	}
	if p.ComplexityToFix != nil {
		fields = append(fields, FieldComplexityToFix)
	}
	if p.DocumentationStatus != nil {
		fields = append(fields, FieldDocumentationStatus)
	}
	if p.TestingStatus != nil {
		fields = append(fields, FieldTestingStatus)
	}
	if p.ProductionReady != nil {
		fields = append(fields, FieldProductionReady)
	}
	if p.Notes != nil {
		fields = append(fields, FieldNotes)
	}
	return fields
}

// IsEmpty returns true when the patch would not modify anything.
func (p UsageAnalysisPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// IssuePatch is a partial update of an Issue. Resolving an issue sets
// Resolved together with ResolvedBy; the store fills ResolvedAt.
type IssuePatch struct {
	Title       *string
	Description *string
	Severity    *Severity
	IssueType   *IssueType
	Resolved    *bool
	ResolvedBy  *string
}

// Fields lists the field names this patch would modify.
func (p IssuePatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.Severity != nil {
		fields = append(fields, FieldSeverity)
	}
	if p.IssueType != nil {
		fields = append(fields, FieldIssueType)
	}
	if p.Resolved != nil {
		fields = append(fields, FieldResolved)
	}
	return fields
}

// IsEmpty returns true when the patch would not modify anything.
func (p IssuePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// DependencyPatch is a partial update of a Dependency.
type DependencyPatch struct {
	DependencyType *DependencyType
}

// Fields lists the field names this patch would modify.
func (p DependencyPatch) Fields() []string {
	if p.DependencyType != nil {
		return []string{FieldDependencyType}
	}
	return nil
}

// IsEmpty returns true when the patch would not modify anything.
func (p DependencyPatch) IsEmpty() bool {
	return p.DependencyType == nil
}
