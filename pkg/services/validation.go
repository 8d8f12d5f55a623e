package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/models"
)

// MinMeaningfulLength is the minimum length for free-text fields that must
// carry meaningful content (names, issue titles, external dependency names).
const MinMeaningfulLength = 3

// Validation rule names. Every ValidationError carries one of these.
const (
	RuleStatusEnum            = "status_enum"
	RuleWorkingStatusEnum     = "working_status_enum"
	RulePriorityEnum          = "priority_enum"
	RuleComplexityEnum        = "complexity_enum"
	RuleDocumentationEnum     = "documentation_status_enum"
	RuleTestingEnum           = "testing_status_enum"
	RuleSeverityEnum          = "severity_enum"
	RuleIssueTypeEnum         = "issue_type_enum"
	RuleDependencyTypeEnum    = "dependency_type_enum"
	RuleMeaningfulText        = "meaningful_text"
	RuleEffortNonNegative     = "effort_non_negative"
	RuleCategoryExists        = "category_exists"
	RuleComponentExists       = "component_exists"
	RuleEntityActive          = "entity_active"
	RuleTerminalStatusBlocked = "terminal_status_blocked_by_open_issue"
	RuleDuplicateActiveIssue  = "duplicate_active_issue"
	RuleResolutionImmutable   = "issue_resolution_immutable"
	RuleSingleActiveAnalysis  = "single_active_analysis"
	RuleDependencyTarget      = "dependency_target"
	RuleNoSelfDependency      = "no_self_dependency"
)

// Validator runs structural checks and business guards against every proposed
// mutation, strictly before the store commits. Guards read the current
// committed state through the chain's transaction, never the in-flight patch
// of sibling entities.
type Validator struct {
	repos  Repos
	logger *zap.Logger
}

// NewValidator creates a Validator over the given repositories.
func NewValidator(repos Repos, logger *zap.Logger) *Validator {
	return &Validator{repos: repos, logger: logger.Named("validator")}
}

// ValidateNewComponent checks a component about to be inserted.
func (v *Validator) ValidateNewComponent(ctx context.Context, c *models.Component) error {
	if err := meaningfulText("name", c.Name); err != nil {
		return err
	}
	if err := v.checkComponentAttrs(c); err != nil {
		return err
	}
	return v.categoryExists(ctx, c.CategoryID)
}

// ValidateComponentChange checks a proposed component update. next is the
// merged result of applying the patch to current.
func (v *Validator) ValidateComponentChange(ctx context.Context, current, next *models.Component, changed []string) error {
	if !current.IsActive {
		return apperrors.NewValidationError(RuleEntityActive,
			"component %q is deactivated and cannot be mutated", current.Name)
	}
	if err := v.checkComponentAttrs(next); err != nil {
		return err
	}
	if contains(changed, models.FieldCategory) {
		if err := v.categoryExists(ctx, next.CategoryID); err != nil {
			return err
		}
	}
	if contains(changed, models.FieldStatus) && next.Status.IsTerminal() {
		if err := v.terminalStatusUnblocked(ctx, current); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkComponentAttrs(c *models.Component) error {
	if !c.Status.IsValid() {
		return apperrors.NewValidationError(RuleStatusEnum,
			"status %q is not in the status vocabulary", c.Status)
	}
	if !c.Priority.IsValid() {
		return apperrors.NewValidationError(RulePriorityEnum,
			"priority %q is not a known priority level", c.Priority)
	}
	if c.EffortHours < 0 {
		return apperrors.NewValidationError(RuleEffortNonNegative,
			"effort_hours must be non-negative, got %v", c.EffortHours)
	}
	return nil
}

// terminalStatusUnblocked is the cross-entity guard: a component cannot reach
// the terminal status while an active unresolved High or Critical issue
// exists for it.
func (v *Validator) terminalStatusUnblocked(ctx context.Context, c *models.Component) error {
	issues, err := v.repos.Issues.ListByComponent(ctx, c.ID, true)
	if err != nil {
		return fmt.Errorf("failed to read issues for terminal-status guard: %w", err)
	}
	for _, issue := range issues {
		if issue.IsBlockingOpen() {
			return apperrors.NewValidationError(RuleTerminalStatusBlocked,
				"component %q has open %s issue %q; resolve it before marking the component %s",
				c.Name, issue.Severity, issue.Title, models.StatusFullyWorking)
		}
	}
	return nil
}

// ValidateNewUsageAnalysis checks a usage analysis about to be inserted.
func (v *Validator) ValidateNewUsageAnalysis(ctx context.Context, a *models.UsageAnalysis) error {
	if err := v.checkAnalysisAttrs(a); err != nil {
		return err
	}
	if err := v.componentExists(ctx, a.ComponentID); err != nil {
		return err
	}
	existing, err := v.repos.Analyses.GetActiveByComponent(ctx, a.ComponentID)
	if err != nil {
		return fmt.Errorf("failed to check existing analysis: %w", err)
	}
	if existing != nil {
		return apperrors.NewValidationError(RuleSingleActiveAnalysis,
			"component %s already has an active usage analysis", a.ComponentID)
	}
	return nil
}

// ValidateUsageAnalysisChange checks a proposed usage analysis update.
func (v *Validator) ValidateUsageAnalysisChange(_ context.Context, current, next *models.UsageAnalysis) error {
	if !current.IsActive {
		return apperrors.NewValidationError(RuleEntityActive,
			"usage analysis %s is deactivated and cannot be mutated", current.ID)
	}
	return v.checkAnalysisAttrs(next)
}

func (v *Validator) checkAnalysisAttrs(a *models.UsageAnalysis) error {
	// Unmapped working-status input is rejected outright, never coerced to a
	// default that would lose information.
	if !a.WorkingStatus.IsValid() {
		return apperrors.NewValidationError(RuleWorkingStatusEnum,
			"working_status %q is not in the legacy vocabulary", a.WorkingStatus)
	}
	if !a.PriorityToFix.IsValid() {
		return apperrors.NewValidationError(RulePriorityEnum,
			"priority_to_fix %q is not a known priority level", a.PriorityToFix)
	}
	if !a.ComplexityToFix.IsValid() {
		return apperrors.NewValidationError(RuleComplexityEnum,
			"complexity_to_fix %q is not a known complexity level", a.ComplexityToFix)
	}
	if !a.DocumentationStatus.IsValid() {
		return apperrors.NewValidationError(RuleDocumentationEnum,
			"documentation_status %q is not a known value", a.DocumentationStatus)
	}
	if !a.TestingStatus.IsValid() {
		return apperrors.NewValidationError(RuleTestingEnum,
			"testing_status %q is not a known value", a.TestingStatus)
	}
	return nil
}

// ValidateNewIssue checks an issue about to be inserted.
func (v *Validator) ValidateNewIssue(ctx context.Context, i *models.Issue) error {
	if err := meaningfulText("title", i.Title); err != nil {
		return err
	}
	if err := v.checkIssueAttrs(i); err != nil {
		return err
	}
	if err := v.componentExists(ctx, i.ComponentID); err != nil {
		return err
	}
	dup, err := v.repos.Issues.FindActiveDuplicate(ctx, i.ComponentID, i.Title)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate issue: %w", err)
	}
	if dup != nil {
		return apperrors.NewValidationError(RuleDuplicateActiveIssue,
			"an identical active issue %q already exists for this component", i.Title)
	}
	return nil
}

// ValidateIssueChange checks a proposed issue update. Once an issue is
// resolved, the resolution fields are frozen and the transition cannot be
// reversed.
func (v *Validator) ValidateIssueChange(_ context.Context, current, next *models.Issue, changed []string) error {
	if !current.IsActive {
		return apperrors.NewValidationError(RuleEntityActive,
			"issue %s is deactivated and cannot be mutated", current.ID)
	}
	if err := meaningfulText("title", next.Title); err != nil {
		return err
	}
	if err := v.checkIssueAttrs(next); err != nil {
		return err
	}
	if current.Resolved && contains(changed, models.FieldResolved) {
		return apperrors.NewValidationError(RuleResolutionImmutable,
			"issue %s is resolved; resolution fields are immutable", current.ID)
	}
	return nil
}

func (v *Validator) checkIssueAttrs(i *models.Issue) error {
	if !i.Severity.IsValid() {
		return apperrors.NewValidationError(RuleSeverityEnum,
			"severity %q is not a known level", i.Severity)
	}
	if !i.IssueType.IsValid() {
		return apperrors.NewValidationError(RuleIssueTypeEnum,
			"issue_type %q is not a known type", i.IssueType)
	}
	return nil
}

// ValidateNewDependency checks a dependency edge about to be inserted.
func (v *Validator) ValidateNewDependency(ctx context.Context, d *models.Dependency) error {
	if !d.DependencyType.IsValid() {
		return apperrors.NewValidationError(RuleDependencyTypeEnum,
			"dependency_type %q is not a known type", d.DependencyType)
	}
	if err := v.componentExists(ctx, d.ComponentID); err != nil {
		return err
	}
	if d.TargetComponentID != nil {
		if *d.TargetComponentID == d.ComponentID {
			return apperrors.NewValidationError(RuleNoSelfDependency,
				"a component cannot depend on itself")
		}
		target, err := v.repos.Components.GetByID(ctx, *d.TargetComponentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return &apperrors.ReferentialIntegrityError{
					Relation: "dependency target", TargetID: d.TargetComponentID.String(),
				}
			}
			return fmt.Errorf("failed to read dependency target: %w", err)
		}
		if !target.IsActive {
			return &apperrors.ReferentialIntegrityError{
				Relation: "dependency target", TargetID: d.TargetComponentID.String(),
			}
		}
		return nil
	}
	return meaningfulText("target_name", d.TargetName)
}

// ValidateDependencyChange checks a proposed dependency update.
func (v *Validator) ValidateDependencyChange(_ context.Context, current, next *models.Dependency) error {
	if !current.IsActive {
		return apperrors.NewValidationError(RuleEntityActive,
			"dependency %s is deactivated and cannot be mutated", current.ID)
	}
	if !next.DependencyType.IsValid() {
		return apperrors.NewValidationError(RuleDependencyTypeEnum,
			"dependency_type %q is not a known type", next.DependencyType)
	}
	return nil
}

func (v *Validator) componentExists(ctx context.Context, id uuid.UUID) error {
	c, err := v.repos.Components.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &apperrors.ReferentialIntegrityError{Relation: "component", TargetID: id.String()}
		}
		return fmt.Errorf("failed to read component: %w", err)
	}
	if !c.IsActive {
		return &apperrors.ReferentialIntegrityError{Relation: "component", TargetID: id.String()}
	}
	return nil
}

func (v *Validator) categoryExists(ctx context.Context, id uuid.UUID) error {
	cat, err := v.repos.Lookups.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &apperrors.ReferentialIntegrityError{Relation: "category", TargetID: id.String()}
		}
		return fmt.Errorf("failed to read category: %w", err)
	}
	if !cat.IsActive {
		return &apperrors.ReferentialIntegrityError{Relation: "category", TargetID: id.String()}
	}
	return nil
}

func meaningfulText(field, value string) error {
	if len(strings.TrimSpace(value)) < MinMeaningfulLength {
		return apperrors.NewValidationError(RuleMeaningfulText,
			"%s must contain at least %d meaningful characters", field, MinMeaningfulLength)
	}
	return nil
}

func contains(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
