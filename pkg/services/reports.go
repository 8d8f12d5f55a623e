package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
)

// CriticalBlocker is one row of the critical blockers report: a component
// that is broken outright or carries unresolved blocking issues.
type CriticalBlocker struct {
	Component   *models.Component `json:"component"`
	Severity    models.Severity   `json:"severity"`
	OpenIssues  []*models.Issue   `json:"open_issues,omitempty"`
	EffortHours float64           `json:"effort_hours"`
}

// DashboardRow is one row of the priority dashboard. Completion is a
// weighted score in [0, 1] over status, documentation, testing, open issues,
// and production readiness.
type DashboardRow struct {
	Component  *models.Component `json:"component"`
	Completion float64           `json:"completion"`
	Status     float64           `json:"status_score"`
	Docs       float64           `json:"docs_score"`
	Testing    float64           `json:"testing_score"`
	Issues     float64           `json:"issues_score"`
	Readiness  float64           `json:"readiness_score"`
}

// ReportService serves the read-only named reports.
type ReportService interface {
	CriticalBlockers(ctx context.Context) ([]CriticalBlocker, error)
	PriorityDashboard(ctx context.Context) ([]DashboardRow, error)
	BugDetection(ctx context.Context) ([]models.Alert, error)
}

type reportService struct {
	loader    SnapshotLoader
	evaluator AnomalyEvaluator
	logger    *zap.Logger
}

// NewReportService creates the ReportService.
func NewReportService(loader SnapshotLoader, evaluator AnomalyEvaluator, logger *zap.Logger) ReportService {
	return &reportService{
		loader:    loader,
		evaluator: evaluator,
		logger:    logger.Named("reports"),
	}
}

var _ ReportService = (*reportService)(nil)

// Completion score weights.
const (
	weightStatus    = 0.40
	weightDocs      = 0.15
	weightTesting   = 0.15
	weightIssues    = 0.15
	weightReadiness = 0.15
)

// CriticalBlockers lists components that are broken or blocked, ordered by
// severity then by lowest remaining effort, so the cheapest severe fixes
// surface first.
func (s *reportService) CriticalBlockers(ctx context.Context) ([]CriticalBlocker, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var blockers []CriticalBlocker
	for _, c := range snap.Components {
		var blocking []*models.Issue
		for _, issue := range snap.OpenIssues(c.ID) {
			if issue.Severity.IsBlocking() {
				blocking = append(blocking, issue)
			}
		}
		if !c.Status.IsBrokenCategory() && len(blocking) == 0 {
			continue
		}

		severity := models.SeverityHigh
		if c.Status.IsBrokenCategory() {
			severity = models.SeverityCritical
		}
		for _, issue := range blocking {
			if issue.Severity.Rank() < severity.Rank() {
				severity = issue.Severity
			}
		}
		blockers = append(blockers, CriticalBlocker{
			Component:   c,
			Severity:    severity,
			OpenIssues:  blocking,
			EffortHours: c.EffortHours,
		})
	}

	sort.SliceStable(blockers, func(i, j int) bool {
		if blockers[i].Severity.Rank() != blockers[j].Severity.Rank() {
			return blockers[i].Severity.Rank() < blockers[j].Severity.Rank()
		}
		return blockers[i].EffortHours < blockers[j].EffortHours
	})
	return blockers, nil
}

// PriorityDashboard scores every component's completion and orders by
// priority then ascending completion, so the least finished work within each
// priority band comes first.
func (s *reportService) PriorityDashboard(ctx context.Context) ([]DashboardRow, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]DashboardRow, 0, len(snap.Components))
	for _, c := range snap.Components {
		row := scoreComponent(c, snap.Analysis(c.ID), snap.OpenIssues(c.ID))
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		pi, pj := rows[i].Component.Priority.Rank(), rows[j].Component.Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return rows[i].Completion < rows[j].Completion
	})
	return rows, nil
}

// BugDetection returns the full current alert list.
func (s *reportService) BugDetection(ctx context.Context) ([]models.Alert, error) {
	return s.evaluator.Evaluate(ctx)
}

func scoreComponent(c *models.Component, analysis *models.UsageAnalysis, open []*models.Issue) DashboardRow {
	row := DashboardRow{Component: c}

	switch c.Status {
	case models.StatusFullyWorking:
		row.Status = 1.0
	case models.StatusPartiallyWorking:
		row.Status = 0.5
	case models.StatusUntested:
		row.Status = 0.25
	default:
		row.Status = 0
	}

	if analysis != nil {
		switch analysis.DocumentationStatus {
		case models.DocumentationComplete:
			row.Docs = 1.0
		case models.DocumentationPartial:
			row.Docs = 0.5
		}
		switch analysis.TestingStatus {
		case models.TestingFull:
			row.Testing = 1.0
		case models.TestingPartial:
			row.Testing = 0.5
		}
		if analysis.ProductionReady {
			row.Readiness = 1.0
		}
	}

	switch {
	case len(open) == 0:
		row.Issues = 1.0
	case hasBlocking(open):
		row.Issues = 0
	default:
		row.Issues = 0.5
	}

	row.Completion = weightStatus*row.Status +
		weightDocs*row.Docs +
		weightTesting*row.Testing +
		weightIssues*row.Issues +
		weightReadiness*row.Readiness
	return row
}

func hasBlocking(issues []*models.Issue) bool {
	for _, i := range issues {
		if i.Severity.IsBlocking() {
			return true
		}
	}
	return false
}
