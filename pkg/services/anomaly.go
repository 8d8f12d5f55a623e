package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/metrics"
	"github.com/statline-io/statline-engine/pkg/models"
)

// AnomalyRule is one read-only predicate over a snapshot. Rules are
// independent; each yields zero or more alerts and never mutates state.
type AnomalyRule struct {
	Name  string
	Check func(snap *Snapshot) []models.Alert
}

// AnomalyEvaluator runs the rule catalogue over a consistent snapshot.
type AnomalyEvaluator interface {
	Evaluate(ctx context.Context) ([]models.Alert, error)
}

type anomalyEvaluator struct {
	loader  SnapshotLoader
	rules   []AnomalyRule
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnomalyEvaluator creates an evaluator. A non-positive timeout disables
// the deadline.
func NewAnomalyEvaluator(loader SnapshotLoader, rules []AnomalyRule, timeout time.Duration, logger *zap.Logger) AnomalyEvaluator {
	return &anomalyEvaluator{
		loader:  loader,
		rules:   rules,
		timeout: timeout,
		logger:  logger.Named("anomaly-evaluator"),
	}
}

var _ AnomalyEvaluator = (*anomalyEvaluator)(nil)

// Evaluate loads one snapshot and runs every rule against it. On timeout it
// returns an EvaluationError instead of a silently truncated alert list.
func (e *anomalyEvaluator) Evaluate(ctx context.Context) ([]models.Alert, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	snap, err := e.loader.Load(ctx)
	if err != nil {
		return nil, apperrors.NewEvaluationError("snapshot", err)
	}

	var alerts []models.Alert
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewEvaluationError("rule:"+rule.Name, err)
		}
		found := rule.Check(snap)
		for i := range found {
			if found[i].DetectedAt.IsZero() {
				found[i].DetectedAt = snap.TakenAt
			}
			metrics.AlertsEmittedTotal.WithLabelValues(found[i].AlertType).Inc()
		}
		alerts = append(alerts, found...)
	}

	e.logger.Debug("Evaluation complete",
		zap.Int("components", len(snap.Components)),
		zap.Int("alerts", len(alerts)))
	return alerts, nil
}

// DefaultAnomalyRules is the production rule catalogue. staleAfterDays bounds
// the staleness rule; rules run in declaration order.
func DefaultAnomalyRules(staleAfterDays int) []AnomalyRule {
	return []AnomalyRule{
		{
			Name: "broken_component",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					if !c.Status.IsBrokenCategory() {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertBrokenComponent,
						Severity:        models.SeverityCritical,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description:     fmt.Sprintf("component %s has status %s", c.Name, c.Status),
					})
				}
				return alerts
			},
		},
		{
			Name: "status_mismatch",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					analysis := snap.Analysis(c.ID)
					if analysis == nil {
						continue
					}
					if models.ComponentStatusFor(analysis.WorkingStatus) == c.Status {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertStatusMismatch,
						Severity:        models.SeverityMedium,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description: fmt.Sprintf("component status %s disagrees with analysis working status %s",
							c.Status, analysis.WorkingStatus),
					})
				}
				return alerts
			},
		},
		{
			Name: "effort_hours_inconsistency",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					if !c.Status.IsTerminal() || c.EffortHours == 0 {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertEffortHours,
						Severity:        models.SeverityMedium,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description: fmt.Sprintf("component %s is %s but still carries %.1f estimated hours",
							c.Name, c.Status, c.EffortHours),
					})
				}
				return alerts
			},
		},
		{
			Name: "priority_status_conflict",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					switch {
					case c.Status.IsTerminal() && c.Priority == models.PriorityCritical:
						alerts = append(alerts, models.Alert{
							AlertType:       models.AlertPriorityStatusConflict,
							Severity:        models.SeverityLow,
							SubjectEntityID: c.ID,
							SubjectName:     c.Name,
							Description:     fmt.Sprintf("component %s is %s yet still marked critical priority", c.Name, c.Status),
						})
					case c.Status.IsBrokenCategory() && c.Priority == models.PriorityLow:
						alerts = append(alerts, models.Alert{
							AlertType:       models.AlertPriorityStatusConflict,
							Severity:        models.SeverityMedium,
							SubjectEntityID: c.ID,
							SubjectName:     c.Name,
							Description:     fmt.Sprintf("component %s is %s but carries low priority", c.Name, c.Status),
						})
					}
				}
				return alerts
			},
		},
		{
			Name: "missing_dependency",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					if c.Priority != models.PriorityCritical && c.Priority != models.PriorityHigh {
						continue
					}
					for _, dep := range snap.DependenciesByComponent[c.ID] {
						if dep.DependencyType != models.DependencyRequires || !dep.IsInternal() {
							continue
						}
						target, ok := snap.ComponentsByID[*dep.TargetComponentID]
						if ok && target.Status != models.StatusMissing {
							continue
						}
						name := dep.TargetComponentID.String()
						if ok {
							name = target.Name
						}
						alerts = append(alerts, models.Alert{
							AlertType:       models.AlertMissingDependency,
							Severity:        models.SeverityHigh,
							SubjectEntityID: c.ID,
							SubjectName:     c.Name,
							Description:     fmt.Sprintf("high-priority component %s requires unavailable dependency %s", c.Name, name),
						})
					}
				}
				return alerts
			},
		},
		{
			// Terminal-status components are exempt from this rule: completed
			// work legitimately carries zero remaining effort.
			Name: "effort_complexity_mismatch",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					if c.Status.IsTerminal() {
						continue
					}
					analysis := snap.Analysis(c.ID)
					if analysis == nil || !analysis.ComplexityToFix.IsDemanding() {
						continue
					}
					if c.EffortHours > 0 {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertEffortComplexity,
						Severity:        models.SeverityMedium,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description: fmt.Sprintf("component %s is rated %s to fix but has no estimated hours",
							c.Name, analysis.ComplexityToFix),
					})
				}
				return alerts
			},
		},
		{
			Name: "stale_entity",
			Check: func(snap *Snapshot) []models.Alert {
				if staleAfterDays <= 0 {
					return nil
				}
				var alerts []models.Alert
				for _, c := range snap.Components {
					age := snap.TakenAt.Sub(c.UpdatedAt)
					days := int(age.Hours() / 24)
					if days <= staleAfterDays {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertStaleEntity,
						Severity:        models.SeverityLow,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description:     fmt.Sprintf("component %s has not been updated in %d days", c.Name, days),
					})
				}
				return alerts
			},
		},
		{
			Name: "production_ready_contradiction",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					analysis := snap.Analysis(c.ID)
					if analysis == nil || !analysis.ProductionReady {
						continue
					}
					if c.Status.IsTerminal() {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertProductionReady,
						Severity:        models.SeverityHigh,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description:     fmt.Sprintf("component %s is marked production ready while status is %s", c.Name, c.Status),
					})
				}
				return alerts
			},
		},
		{
			Name: "documentation_gap",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					if !c.Status.IsTerminal() {
						continue
					}
					if c.Priority != models.PriorityCritical && c.Priority != models.PriorityHigh {
						continue
					}
					analysis := snap.Analysis(c.ID)
					if analysis == nil || analysis.DocumentationStatus != models.DocumentationNone {
						continue
					}
					alerts = append(alerts, models.Alert{
						AlertType:       models.AlertDocumentationGap,
						Severity:        models.SeverityLow,
						SubjectEntityID: c.ID,
						SubjectName:     c.Name,
						Description:     fmt.Sprintf("completed high-priority component %s has no documentation", c.Name),
					})
				}
				return alerts
			},
		},
		{
			Name: "unresolved_issue",
			Check: func(snap *Snapshot) []models.Alert {
				var alerts []models.Alert
				for _, c := range snap.Components {
					for _, issue := range snap.OpenIssues(c.ID) {
						if !issue.Severity.IsBlocking() {
							continue
						}
						alerts = append(alerts, models.Alert{
							AlertType:       models.AlertUnresolvedIssue,
							Severity:        issue.Severity,
							SubjectEntityID: c.ID,
							SubjectName:     c.Name,
							Description:     fmt.Sprintf("component %s has unresolved %s issue: %s", c.Name, issue.Severity, issue.Title),
						})
					}
				}
				return alerts
			},
		},
	}
}
