// Package models contains domain types for statline-engine.
package models

import "fmt"

// EntityType discriminates the versioned entity kinds.
type EntityType string

const (
	EntityComponent     EntityType = "component"
	EntityUsageAnalysis EntityType = "usage_analysis"
	EntityIssue         EntityType = "issue"
	EntityDependency    EntityType = "dependency"
)

// String returns the string representation of an EntityType.
func (t EntityType) String() string {
	return string(t)
}

// IsValid returns true if the entity type is one of the known kinds.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityComponent, EntityUsageAnalysis, EntityIssue, EntityDependency:
		return true
	default:
		return false
	}
}

// ParseEntityType validates and converts a string to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// Operation tags a history record with the kind of change that produced it.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// ComponentStatus is the authoritative status of a Component.
// UsageAnalysis.working_status is a projection of this field.
type ComponentStatus string

const (
	StatusFullyWorking     ComponentStatus = "fully_working"
	StatusPartiallyWorking ComponentStatus = "partially_working"
	StatusBroken           ComponentStatus = "broken"
	StatusMissing          ComponentStatus = "missing"
	StatusUntested         ComponentStatus = "untested"
)

// ParseComponentStatus rejects unknown status values at construction time
// rather than at commit time.
func ParseComponentStatus(s string) (ComponentStatus, error) {
	cs := ComponentStatus(s)
	if !cs.IsValid() {
		return "", fmt.Errorf("unknown component status %q", s)
	}
	return cs, nil
}

// IsValid returns true if the status is a member of the closed vocabulary.
func (s ComponentStatus) IsValid() bool {
	switch s {
	case StatusFullyWorking, StatusPartiallyWorking, StatusBroken, StatusMissing, StatusUntested:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for the fully-resolved status. Several guards and
// anomaly rules key off this value.
func (s ComponentStatus) IsTerminal() bool {
	return s == StatusFullyWorking
}

// IsBrokenCategory returns true for statuses that describe a non-functional
// component. A transition into this category synthesizes a High issue.
func (s ComponentStatus) IsBrokenCategory() bool {
	return s == StatusBroken || s == StatusMissing
}

// WorkingStatus is the legacy, richer status vocabulary carried on
// UsageAnalysis records. Input outside this vocabulary is rejected, never
// silently coerced.
type WorkingStatus string

const (
	WorkingFully     WorkingStatus = "fully_working"
	WorkingMostly    WorkingStatus = "mostly_working"
	WorkingPartially WorkingStatus = "partially_working"
	WorkingBarely    WorkingStatus = "barely_working"
	WorkingBroken    WorkingStatus = "broken"
	WorkingMissing   WorkingStatus = "missing"
	WorkingUntested  WorkingStatus = "untested"
	WorkingUnknown   WorkingStatus = "unknown"
)

// ParseWorkingStatus rejects values outside the legacy vocabulary.
func ParseWorkingStatus(s string) (WorkingStatus, error) {
	ws := WorkingStatus(s)
	if !ws.IsValid() {
		return "", fmt.Errorf("unknown working status %q", s)
	}
	return ws, nil
}

// IsValid returns true if the value is a member of the legacy vocabulary.
func (s WorkingStatus) IsValid() bool {
	switch s {
	case WorkingFully, WorkingMostly, WorkingPartially, WorkingBarely,
		WorkingBroken, WorkingMissing, WorkingUntested, WorkingUnknown:
		return true
	default:
		return false
	}
}

// WorkingStatusFor projects a component status onto the legacy vocabulary.
func WorkingStatusFor(s ComponentStatus) WorkingStatus {
	switch s {
	case StatusFullyWorking:
		return WorkingFully
	case StatusPartiallyWorking:
		return WorkingPartially
	case StatusBroken:
		return WorkingBroken
	case StatusMissing:
		return WorkingMissing
	default:
		return WorkingUntested
	}
}

// ComponentStatusFor maps a legacy working status back onto the authoritative
// vocabulary. The intermediate "mostly"/"barely" grades collapse onto
// partially_working.
func ComponentStatusFor(s WorkingStatus) ComponentStatus {
	switch s {
	case WorkingFully:
		return StatusFullyWorking
	case WorkingMostly, WorkingPartially, WorkingBarely:
		return StatusPartiallyWorking
	case WorkingBroken:
		return StatusBroken
	case WorkingMissing:
		return StatusMissing
	default:
		return StatusUntested
	}
}

// Priority levels, highest first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority rejects unknown priority levels.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// IsValid returns true if the priority is a known level.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns a sortable rank, 0 being the most urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Complexity levels for the estimated fix effort.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexityEasy     Complexity = "easy"
	ComplexityModerate Complexity = "moderate"
	ComplexityHard     Complexity = "hard"
	ComplexitySevere   Complexity = "severe"
)

// ParseComplexity rejects unknown complexity levels.
func ParseComplexity(s string) (Complexity, error) {
	c := Complexity(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown complexity %q", s)
	}
	return c, nil
}

// IsValid returns true if the complexity is a known level.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityTrivial, ComplexityEasy, ComplexityModerate, ComplexityHard, ComplexitySevere:
		return true
	default:
		return false
	}
}

// IsDemanding returns true for levels that imply non-trivial remaining work.
func (c Complexity) IsDemanding() bool {
	return c == ComplexityHard || c == ComplexitySevere
}

// DocumentationStatus tracks how documented a component is.
type DocumentationStatus string

const (
	DocumentationNone     DocumentationStatus = "none"
	DocumentationPartial  DocumentationStatus = "partial"
	DocumentationComplete DocumentationStatus = "complete"
)

// IsValid returns true if the value is a known documentation status.
func (d DocumentationStatus) IsValid() bool {
	switch d {
	case DocumentationNone, DocumentationPartial, DocumentationComplete:
		return true
	default:
		return false
	}
}

// TestingStatus tracks how tested a component is.
type TestingStatus string

const (
	TestingNone    TestingStatus = "untested"
	TestingPartial TestingStatus = "partially_tested"
	TestingFull    TestingStatus = "fully_tested"
)

// IsValid returns true if the value is a known testing status.
func (t TestingStatus) IsValid() bool {
	switch t {
	case TestingNone, TestingPartial, TestingFull:
		return true
	default:
		return false
	}
}

// Severity for issues and alerts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity rejects unknown severities.
func ParseSeverity(s string) (Severity, error) {
	sv := Severity(s)
	if !sv.IsValid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sv, nil
}

// IsValid returns true if the severity is a known level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Rank returns a sortable rank, 0 being the most severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// IsBlocking returns true for severities that block a terminal status
// transition while unresolved.
func (s Severity) IsBlocking() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// IssueType categorizes issues.
type IssueType string

const (
	IssueBug            IssueType = "bug"
	IssueRegression     IssueType = "regression"
	IssueMissingFeature IssueType = "missing_feature"
	IssuePerformance    IssueType = "performance"
	IssueDocumentation  IssueType = "documentation"
	IssueOther          IssueType = "other"
)

// IsValid returns true if the issue type is known.
func (t IssueType) IsValid() bool {
	switch t {
	case IssueBug, IssueRegression, IssueMissingFeature, IssuePerformance, IssueDocumentation, IssueOther:
		return true
	default:
		return false
	}
}

// DependencyType categorizes dependency edges.
type DependencyType string

const (
	DependencyRequires  DependencyType = "requires"
	DependencyOptional  DependencyType = "optional"
	DependencySuggests  DependencyType = "suggests"
	DependencyConflicts DependencyType = "conflicts"
)

// IsValid returns true if the dependency type is known.
func (t DependencyType) IsValid() bool {
	switch t {
	case DependencyRequires, DependencyOptional, DependencySuggests, DependencyConflicts:
		return true
	default:
		return false
	}
}
