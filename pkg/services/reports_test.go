package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
)

func newTestReports(fx *fixture) ReportService {
	loader := NewSnapshotLoader(fakeTx{}, fx.repos)
	evaluator := NewAnomalyEvaluator(loader, DefaultAnomalyRules(0), 0, zap.NewNop())
	return NewReportService(loader, evaluator, zap.NewNop())
}

func TestCriticalBlockersOrderedBySeverityThenEffort(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	// Healthy component stays off the report.
	seedRaw(t, fx, "billing-worker", models.StatusFullyWorking, 0)

	cheapBroken := seedRaw(t, fx, "auth-service", models.StatusBroken, 2)
	dearBroken := seedRaw(t, fx, "api-gateway", models.StatusMissing, 16)

	blocked := seedRaw(t, fx, "search-index", models.StatusPartiallyWorking, 8)
	issue := &models.Issue{
		ComponentID: blocked.ID,
		Title:       "index rebuild crashes",
		Severity:    models.SeverityHigh,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, fx.issues.Create(ctx, issue))

	blockers, err := newTestReports(fx).CriticalBlockers(ctx)
	require.NoError(t, err)

	require.Len(t, blockers, 3)
	// Critical rows first, lowest effort within the band.
	assert.Equal(t, cheapBroken.ID, blockers[0].Component.ID)
	assert.Equal(t, models.SeverityCritical, blockers[0].Severity)
	assert.Equal(t, dearBroken.ID, blockers[1].Component.ID)
	assert.Equal(t, blocked.ID, blockers[2].Component.ID)
	assert.Equal(t, models.SeverityHigh, blockers[2].Severity)
	require.Len(t, blockers[2].OpenIssues, 1)
}

func TestCriticalBlockerSeverityRaisedByCriticalIssue(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	c := seedRaw(t, fx, "auth-service", models.StatusPartiallyWorking, 4)
	issue := &models.Issue{
		ComponentID: c.ID,
		Title:       "credential leak on error path",
		Severity:    models.SeverityCritical,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, fx.issues.Create(ctx, issue))

	blockers, err := newTestReports(fx).CriticalBlockers(ctx)
	require.NoError(t, err)
	require.Len(t, blockers, 1)
	assert.Equal(t, models.SeverityCritical, blockers[0].Severity)
}

func TestPriorityDashboardScoring(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	c := seedRaw(t, fx, "auth-service", models.StatusFullyWorking, 0)
	a := &models.UsageAnalysis{
		ComponentID:         c.ID,
		WorkingStatus:       models.WorkingFully,
		PriorityToFix:       models.PriorityMedium,
		ComplexityToFix:     models.ComplexityModerate,
		DocumentationStatus: models.DocumentationComplete,
		TestingStatus:       models.TestingPartial,
		ProductionReady:     true,
	}
	require.NoError(t, fx.analyses.Create(ctx, a))

	rows, err := newTestReports(fx).PriorityDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 1.0, row.Status)
	assert.Equal(t, 1.0, row.Docs)
	assert.Equal(t, 0.5, row.Testing)
	assert.Equal(t, 1.0, row.Issues)
	assert.Equal(t, 1.0, row.Readiness)
	// 0.40*1 + 0.15*1 + 0.15*0.5 + 0.15*1 + 0.15*1
	assert.InDelta(t, 0.925, row.Completion, 1e-9)
}

func TestPriorityDashboardOrdering(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	lowDone := seedRaw(t, fx, "billing-worker", models.StatusFullyWorking, 0)
	fx.components.rows[lowDone.ID].Priority = models.PriorityLow

	criticalDone := seedRaw(t, fx, "auth-service", models.StatusFullyWorking, 0)
	fx.components.rows[criticalDone.ID].Priority = models.PriorityCritical

	criticalStuck := seedRaw(t, fx, "api-gateway", models.StatusBroken, 0)
	fx.components.rows[criticalStuck.ID].Priority = models.PriorityCritical

	rows, err := newTestReports(fx).PriorityDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Critical band first, least finished work leading it.
	assert.Equal(t, criticalStuck.ID, rows[0].Component.ID)
	assert.Equal(t, criticalDone.ID, rows[1].Component.ID)
	assert.Equal(t, lowDone.ID, rows[2].Component.ID)
}

func TestBugDetectionReturnsFullAlertList(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	seedRaw(t, fx, "auth-service", models.StatusBroken, 5)

	alerts, err := newTestReports(fx).BugDetection(ctx)
	require.NoError(t, err)

	types := make(map[string]bool)
	for _, a := range alerts {
		types[a.AlertType] = true
	}
	assert.True(t, types[models.AlertBrokenComponent])
	assert.False(t, types[models.AlertEffortHours], "broken is not terminal; no effort inconsistency")
}
