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

// nopMutator satisfies Mutator for rules whose Apply bodies do their own
// bookkeeping and never touch the store.
type nopMutator struct{}

func (nopMutator) Component(context.Context, uuid.UUID) (*models.Component, error) {
	return nil, nil
}
func (nopMutator) AnalysisByID(context.Context, uuid.UUID) (*models.UsageAnalysis, error) {
	return nil, nil
}
func (nopMutator) SetComponentStatus(context.Context, uuid.UUID, models.ComponentStatus) error {
	return nil
}
func (nopMutator) SetWorkingStatus(context.Context, uuid.UUID, models.WorkingStatus) error {
	return nil
}
func (nopMutator) RaiseIssue(context.Context, uuid.UUID, string, string, models.Severity) error {
	return nil
}

func recordingRule(name string, source models.EntityType, field string, fired *[]string) PropagationRule {
	return PropagationRule{
		Name:   name,
		Source: source,
		Field:  field,
		Apply: func(context.Context, Mutator, uuid.UUID) error {
			*fired = append(*fired, name)
			return nil
		},
	}
}

func TestPropagateFiresRulesInDeclarationOrder(t *testing.T) {
	var fired []string
	engine := NewSyncEngine([]PropagationRule{
		recordingRule("second_alphabetically", models.EntityComponent, models.FieldStatus, &fired),
		recordingRule("first_alphabetically", models.EntityComponent, models.FieldStatus, &fired),
		recordingRule("unrelated_field", models.EntityComponent, models.FieldPriority, &fired),
	}, 8, zap.NewNop())

	err := engine.Propagate(context.Background(), nopMutator{}, NewChain(), MutationEvent{
		EntityType: models.EntityComponent,
		EntityID:   uuid.New(),
		Fields:     []string{models.FieldStatus},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"second_alphabetically", "first_alphabetically"}, fired)
}

func TestPropagateSkipsNonMatchingRules(t *testing.T) {
	var fired []string
	engine := NewSyncEngine([]PropagationRule{
		recordingRule("analysis_rule", models.EntityUsageAnalysis, models.FieldWorkingStatus, &fired),
	}, 8, zap.NewNop())

	err := engine.Propagate(context.Background(), nopMutator{}, NewChain(), MutationEvent{
		EntityType: models.EntityComponent,
		EntityID:   uuid.New(),
		Fields:     []string{models.FieldStatus},
	})
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestPropagateRejectsRevisit(t *testing.T) {
	var fired []string
	engine := NewSyncEngine([]PropagationRule{
		recordingRule("status_rule", models.EntityComponent, models.FieldStatus, &fired),
	}, 8, zap.NewNop())

	chain := NewChain()
	ev := MutationEvent{
		EntityType: models.EntityComponent,
		EntityID:   uuid.New(),
		Fields:     []string{models.FieldStatus},
	}
	require.NoError(t, engine.Propagate(context.Background(), nopMutator{}, chain, ev))

	// The same rule re-firing for the same entity in the same chain is a
	// cycle, not a retry.
	err := engine.Propagate(context.Background(), nopMutator{}, chain, ev)
	require.Error(t, err)
	assert.True(t, apperrors.IsPropagationDepthExceeded(err))
	assert.Len(t, fired, 1)
}

func TestPropagateEnforcesDepthBound(t *testing.T) {
	var fired []string
	engine := NewSyncEngine([]PropagationRule{
		recordingRule("status_rule", models.EntityComponent, models.FieldStatus, &fired),
	}, 0, zap.NewNop())

	err := engine.Propagate(context.Background(), nopMutator{}, NewChain(), MutationEvent{
		EntityType: models.EntityComponent,
		EntityID:   uuid.New(),
		Fields:     []string{models.FieldStatus},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsPropagationDepthExceeded(err))
	assert.Empty(t, fired)
}

// A deliberately divergent rule pair: every application flips the component
// status, so the cascade never converges by value and must be cut by the
// visited set.
func flipRules() []PropagationRule {
	return []PropagationRule{
		{
			Name:   "flip_status",
			Source: models.EntityComponent,
			Field:  models.FieldStatus,
			Apply: func(ctx context.Context, m Mutator, sourceID uuid.UUID) error {
				c, err := m.Component(ctx, sourceID)
				if err != nil {
					return err
				}
				next := models.StatusBroken
				if c.Status == models.StatusBroken {
					next = models.StatusPartiallyWorking
				}
				return m.SetComponentStatus(ctx, c.ID, next)
			},
		},
	}
}

func TestNonConvergingCascadeAbortsWholeMutation(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	// Seed through the production rule set; creation propagates the status
	// field too, and the flip rule must only see the update under test.
	c := seedComponent(t, fx, newTestStore(fx), "auth-service", models.StatusPartiallyWorking)

	logger := zap.NewNop()
	validator := NewValidator(fx.repos, logger)
	engine := NewSyncEngine(flipRules(), 8, logger)
	store := NewEntityStore(fakeTx{}, fx.repos, validator, engine, logger)

	status := models.StatusBroken
	_, err := store.UpdateComponent(ctx, c.ID, 1, models.ComponentPatch{Status: &status})
	require.Error(t, err)
	assert.True(t, apperrors.IsPropagationDepthExceeded(err))
}

func TestSourceFields(t *testing.T) {
	engine := NewSyncEngine(DefaultRules(), 8, zap.NewNop())

	assert.Equal(t, []string{models.FieldStatus}, engine.SourceFields(models.EntityComponent))
	assert.Equal(t, []string{models.FieldWorkingStatus}, engine.SourceFields(models.EntityUsageAnalysis))
	assert.Empty(t, engine.SourceFields(models.EntityIssue))
}
