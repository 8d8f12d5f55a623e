package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/models"
)

func newTestStore(fx *fixture) EntityStore {
	logger := zap.NewNop()
	validator := NewValidator(fx.repos, logger)
	sync := NewSyncEngine(DefaultRules(), 8, logger)
	return NewEntityStore(fakeTx{}, fx.repos, validator, sync, logger)
}

func seedComponent(t *testing.T, fx *fixture, store EntityStore, name string, status models.ComponentStatus) *models.Component {
	t.Helper()
	c := &models.Component{
		Name:       name,
		CategoryID: fx.categoryID,
		Status:     status,
		Priority:   models.PriorityMedium,
		CreatedBy:  "tester",
	}
	require.NoError(t, store.CreateComponent(context.Background(), c))
	return c
}

func TestCreateComponentWritesFirstHistoryRecord(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)

	assert.Equal(t, 1, c.Version)
	count, err := fx.history.CountByEntity(context.Background(), models.EntityComponent, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := fx.history.ListByEntity(context.Background(), models.EntityComponent, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.OpInsert, records[0].Operation)
	assert.Equal(t, 1, records[0].Version)
}

func TestUpdateComponentVersionAndHistoryStayInLockstep(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)

	notes := "needs retry handling"
	v2, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	hours := 4.5
	v3, err := store.UpdateComponent(ctx, c.ID, 2, models.ComponentPatch{EffortHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, 3, v3)

	stored, err := store.GetComponent(ctx, c.ID)
	require.NoError(t, err)
	count, err := fx.history.CountByEntity(ctx, models.EntityComponent, c.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, count, "history record count must equal current version")
}

func TestUpdateComponentStaleVersionConflicts(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)

	notes := "first writer wins"
	_, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Notes: &notes})
	require.NoError(t, err)

	// Same patch re-issued with the stale version loses the race.
	_, err = store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Notes: &notes})
	require.Error(t, err)
	assert.True(t, apperrors.IsVersionConflict(err))

	// Re-issued with the fresh version it commits, and the entity state is
	// identical to the first application.
	before, err := store.GetComponent(ctx, c.ID)
	require.NoError(t, err)
	_, err = store.UpdateComponent(ctx, c.ID, 2, models.ComponentPatch{Notes: &notes})
	require.NoError(t, err)
	after, err := store.GetComponent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Notes, after.Notes)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Version, after.Version, "equal-value patch is a no-op commit")
}

func TestComponentStatusProjectsToWorkingStatus(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	analysis := &models.UsageAnalysis{
		ComponentID:         c.ID,
		WorkingStatus:       models.WorkingPartially,
		PriorityToFix:       models.PriorityMedium,
		ComplexityToFix:     models.ComplexityModerate,
		DocumentationStatus: models.DocumentationPartial,
		TestingStatus:       models.TestingPartial,
		CreatedBy:           "tester",
	}
	require.NoError(t, store.CreateUsageAnalysis(ctx, analysis))

	status := models.StatusFullyWorking
	_, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Status: &status})
	require.NoError(t, err)

	projected, err := fx.analyses.GetActiveByComponent(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, projected)
	assert.Equal(t, models.WorkingFully, projected.WorkingStatus)
	assert.Equal(t, 2, projected.Version, "propagated write commits its own version")

	count, err := fx.history.CountByEntity(ctx, models.EntityUsageAnalysis, analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWorkingStatusProjectsBackToComponent(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	analysis := &models.UsageAnalysis{
		ComponentID:         c.ID,
		WorkingStatus:       models.WorkingPartially,
		PriorityToFix:       models.PriorityMedium,
		ComplexityToFix:     models.ComplexityModerate,
		DocumentationStatus: models.DocumentationPartial,
		TestingStatus:       models.TestingPartial,
		CreatedBy:           "tester",
	}
	require.NoError(t, store.CreateUsageAnalysis(ctx, analysis))

	working := models.WorkingFully
	_, err := store.UpdateUsageAnalysis(ctx, analysis.ID, 1, models.UsageAnalysisPatch{WorkingStatus: &working})
	require.NoError(t, err)

	stored, err := store.GetComponent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFullyWorking, stored.Status)

	// The bidirectional pair converges by value: the chain ended without a
	// depth error and both sides agree.
	projected, err := fx.analyses.GetActiveByComponent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkingFully, projected.WorkingStatus)
}

func TestFinerWorkingStatusGradesSurviveProjection(t *testing.T) {
	// mostly_working and barely_working collapse onto partially_working on
	// the component side. The back-projection must not overwrite them with
	// the collapsed value, and the pair must still terminate.
	for _, grade := range []models.WorkingStatus{models.WorkingMostly, models.WorkingBarely} {
		fx := newFixture()
		store := newTestStore(fx)
		ctx := context.Background()

		c := seedComponent(t, fx, store, "auth-service", models.StatusBroken)
		analysis := &models.UsageAnalysis{
			ComponentID:         c.ID,
			WorkingStatus:       models.WorkingBroken,
			PriorityToFix:       models.PriorityMedium,
			ComplexityToFix:     models.ComplexityModerate,
			DocumentationStatus: models.DocumentationPartial,
			TestingStatus:       models.TestingPartial,
			CreatedBy:           "tester",
		}
		require.NoError(t, store.CreateUsageAnalysis(ctx, analysis))

		working := grade
		_, err := store.UpdateUsageAnalysis(ctx, analysis.ID, 1, models.UsageAnalysisPatch{WorkingStatus: &working})
		require.NoError(t, err, "update to %s must converge", grade)

		stored, err := fx.analyses.GetByID(ctx, analysis.ID)
		require.NoError(t, err)
		assert.Equal(t, grade, stored.WorkingStatus, "finer grade must survive the round trip")

		comp, err := store.GetComponent(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPartiallyWorking, comp.Status)
	}
}

func TestBrokenStatusSynthesizesHighIssue(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)

	status := models.StatusBroken
	_, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Status: &status})
	require.NoError(t, err)

	issues, err := fx.issues.ListByComponent(ctx, c.ID, true)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "Component auth-service reported as broken", issues[0].Title)
	assert.Equal(t, models.ActorSystem, issues[0].CreatedBy)

	// Re-firing the rules must not raise a second identical issue.
	require.NoError(t, store.Resync(ctx, models.EntityComponent, c.ID))
	issues, err = fx.issues.ListByComponent(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestResolveIssueStampsResolutionFields(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := models.WithActor(context.Background(), "reviewer")

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	issue := &models.Issue{
		ComponentID: c.ID,
		Title:       "login times out",
		Severity:    models.SeverityHigh,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, store.CreateIssue(ctx, issue))

	resolved := true
	_, err := store.UpdateIssue(ctx, issue.ID, 1, models.IssuePatch{Resolved: &resolved})
	require.NoError(t, err)

	stored, err := fx.issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)
	require.NotNil(t, stored.ResolvedAt)
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, "reviewer", *stored.ResolvedBy)

	// Resolution is immutable: the transition cannot be reversed.
	unresolved := false
	_, err = store.UpdateIssue(ctx, issue.ID, 2, models.IssuePatch{Resolved: &unresolved})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTerminalStatusGuardedByOpenBlockingIssue(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	issue := &models.Issue{
		ComponentID: c.ID,
		Title:       "login times out",
		Severity:    models.SeverityHigh,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, store.CreateIssue(ctx, issue))

	status := models.StatusFullyWorking
	_, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Status: &status})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// The rejected mutation left no trace.
	stored, err := store.GetComponent(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyWorking, stored.Status)
	assert.Equal(t, 1, stored.Version)

	// Resolve the blocker, then the same transition succeeds.
	resolved := true
	_, err = store.UpdateIssue(ctx, issue.ID, 1, models.IssuePatch{Resolved: &resolved})
	require.NoError(t, err)

	v, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestDeactivateComponentCascades(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	other := seedComponent(t, fx, store, "api-gateway", models.StatusPartiallyWorking)

	analysis := &models.UsageAnalysis{
		ComponentID:         c.ID,
		WorkingStatus:       models.WorkingPartially,
		PriorityToFix:       models.PriorityMedium,
		ComplexityToFix:     models.ComplexityModerate,
		DocumentationStatus: models.DocumentationNone,
		TestingStatus:       models.TestingNone,
		CreatedBy:           "tester",
	}
	require.NoError(t, store.CreateUsageAnalysis(ctx, analysis))

	issue := &models.Issue{
		ComponentID: c.ID,
		Title:       "login times out",
		Severity:    models.SeverityMedium,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, store.CreateIssue(ctx, issue))

	outgoing := &models.Dependency{
		ComponentID:       c.ID,
		TargetComponentID: &other.ID,
		DependencyType:    models.DependencyRequires,
	}
	require.NoError(t, store.CreateDependency(ctx, outgoing))
	incoming := &models.Dependency{
		ComponentID:       other.ID,
		TargetComponentID: &c.ID,
		DependencyType:    models.DependencyRequires,
	}
	require.NoError(t, store.CreateDependency(ctx, incoming))

	require.NoError(t, store.Deactivate(ctx, models.EntityComponent, c.ID))

	stored, err := fx.components.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	active, err := fx.analyses.GetActiveByComponent(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	openIssues, err := fx.issues.ListByComponent(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Empty(t, openIssues)

	for _, dep := range []*models.Dependency{outgoing, incoming} {
		d, err := fx.deps.GetByID(ctx, dep.ID)
		require.NoError(t, err)
		assert.False(t, d.IsActive, "dependency edges in both directions deactivate")
	}

	// Untouched neighbor stays active.
	neighbor, err := fx.components.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, neighbor.IsActive)

	// Every cascade step captured a DELETE history record.
	records, err := fx.history.ListByEntity(ctx, models.EntityComponent, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpDelete, records[len(records)-1].Operation)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	require.NoError(t, store.Deactivate(ctx, models.EntityComponent, c.ID))
	require.NoError(t, store.Deactivate(ctx, models.EntityComponent, c.ID))

	count, err := fx.history.CountByEntity(ctx, models.EntityComponent, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "second deactivation writes nothing")
}

func TestUpdateDeactivatedComponentRejected(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	require.NoError(t, store.Deactivate(ctx, models.EntityComponent, c.ID))

	notes := "too late"
	_, err := store.UpdateComponent(ctx, c.ID, 2, models.ComponentPatch{Notes: &notes})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestResyncWithoutRulesIsNoOp(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)
	issue := &models.Issue{
		ComponentID: c.ID,
		Title:       "login times out",
		Severity:    models.SeverityLow,
		IssueType:   models.IssueBug,
	}
	require.NoError(t, store.CreateIssue(ctx, issue))

	// No rule is keyed on issue fields.
	require.NoError(t, store.Resync(ctx, models.EntityIssue, issue.ID))
}

func TestCreateDependencyValidatesTarget(t *testing.T) {
	fx := newFixture()
	store := newTestStore(fx)
	ctx := context.Background()

	c := seedComponent(t, fx, store, "auth-service", models.StatusPartiallyWorking)

	missing := uuid.New()
	dep := &models.Dependency{
		ComponentID:       c.ID,
		TargetComponentID: &missing,
		DependencyType:    models.DependencyRequires,
	}
	err := store.CreateDependency(ctx, dep)
	require.Error(t, err)
	var refErr *apperrors.ReferentialIntegrityError
	assert.ErrorAs(t, err, &refErr)

	self := &models.Dependency{
		ComponentID:       c.ID,
		TargetComponentID: &c.ID,
		DependencyType:    models.DependencyRequires,
	}
	err = store.CreateDependency(ctx, self)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
