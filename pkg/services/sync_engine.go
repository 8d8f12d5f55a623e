package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/metrics"
	"github.com/statline-io/statline-engine/pkg/models"
)

// MutationEvent describes a committed mutation inside a propagation chain.
type MutationEvent struct {
	EntityType models.EntityType
	EntityID   uuid.UUID
	Fields     []string
}

// Mutator is the transaction-scoped surface propagation rules write through.
// Every write re-enters the normal validate-commit pipeline, so guards and
// enum checks apply to propagated writes too. Writes are value-sets: setting
// a field to its current value is a no-op that ends the chain quietly.
type Mutator interface {
	Component(ctx context.Context, id uuid.UUID) (*models.Component, error)
	AnalysisByID(ctx context.Context, id uuid.UUID) (*models.UsageAnalysis, error)
	SetComponentStatus(ctx context.Context, componentID uuid.UUID, status models.ComponentStatus) error
	SetWorkingStatus(ctx context.Context, componentID uuid.UUID, status models.WorkingStatus) error
	RaiseIssue(ctx context.Context, componentID uuid.UUID, title, description string, severity models.Severity) error
}

// PropagationRule maps a committed change of (Source, Field) onto a derived
// write against a related entity. Rules fire in declaration order.
type PropagationRule struct {
	Name   string
	Source models.EntityType
	Field  string
	Apply  func(ctx context.Context, m Mutator, sourceID uuid.UUID) error
}

// Chain tracks one causal propagation chain: which (rule, source) pairs have
// fired and how deep the cascade has run.
type Chain struct {
	visited map[string]struct{}
	depth   int
}

// NewChain creates an empty propagation chain.
func NewChain() *Chain {
	return &Chain{visited: make(map[string]struct{})}
}

func (c *Chain) key(rule string, id uuid.UUID) string {
	return rule + "|" + id.String()
}

// SyncEngine applies the declarative propagation rule set after every
// committed mutation. It runs inside the originating mutation's transaction;
// any failure rolls back the whole chain.
type SyncEngine struct {
	rules    []PropagationRule
	maxDepth int
	logger   *zap.Logger
}

// NewSyncEngine creates a SyncEngine with the given rule set and depth bound.
func NewSyncEngine(rules []PropagationRule, maxDepth int, logger *zap.Logger) *SyncEngine {
	return &SyncEngine{
		rules:    rules,
		maxDepth: maxDepth,
		logger:   logger.Named("sync-engine"),
	}
}

// Propagate fires every rule matching the mutated fields, in declaration
// order. A rule that would re-fire for the same source entity in the same
// chain, or a cascade running past the depth bound, aborts with
// PropagationDepthExceeded rather than looping or silently truncating.
func (e *SyncEngine) Propagate(ctx context.Context, m Mutator, chain *Chain, ev MutationEvent) error {
	for _, field := range ev.Fields {
		for i := range e.rules {
			rule := &e.rules[i]
			if rule.Source != ev.EntityType || rule.Field != field {
				continue
			}

			key := chain.key(rule.Name, ev.EntityID)
			if _, seen := chain.visited[key]; seen {
				metrics.PropagationFailuresTotal.Inc()
				return &apperrors.PropagationDepthExceeded{
					Rule:     rule.Name,
					EntityID: ev.EntityID.String(),
					Depth:    chain.depth,
					MaxDepth: e.maxDepth,
				}
			}
			if chain.depth+1 > e.maxDepth {
				metrics.PropagationFailuresTotal.Inc()
				return &apperrors.PropagationDepthExceeded{
					Rule:     rule.Name,
					EntityID: ev.EntityID.String(),
					Depth:    chain.depth + 1,
					MaxDepth: e.maxDepth,
				}
			}

			chain.visited[key] = struct{}{}
			chain.depth++

			e.logger.Debug("Firing propagation rule",
				zap.String("rule", rule.Name),
				zap.String("source_id", ev.EntityID.String()),
				zap.Int("depth", chain.depth))
			metrics.PropagationsTotal.WithLabelValues(rule.Name).Inc()

			if err := rule.Apply(ctx, m, ev.EntityID); err != nil {
				return fmt.Errorf("propagation rule %s failed: %w", rule.Name, err)
			}

			chain.depth--
		}
	}
	return nil
}

// SourceFields returns the fields of the given entity type that any rule is
// keyed on. Resync uses it to re-fire rules from current committed values.
func (e *SyncEngine) SourceFields(entityType models.EntityType) []string {
	var fields []string
	for _, rule := range e.rules {
		if rule.Source != entityType {
			continue
		}
		if !contains(fields, rule.Field) {
			fields = append(fields, rule.Field)
		}
	}
	return fields
}

// DefaultRules is the production propagation rule set. Component.status is
// the authoritative field; UsageAnalysis.working_status is its projection.
// The reverse rule exists for legacy writers that still mutate the analysis
// directly; converging value-sets terminate the pair without error.
func DefaultRules() []PropagationRule {
	return []PropagationRule{
		{
			Name:   "component_status_to_working_status",
			Source: models.EntityComponent,
			Field:  models.FieldStatus,
			Apply: func(ctx context.Context, m Mutator, sourceID uuid.UUID) error {
				c, err := m.Component(ctx, sourceID)
				if err != nil {
					return err
				}
				return m.SetWorkingStatus(ctx, c.ID, models.WorkingStatusFor(c.Status))
			},
		},
		{
			Name:   "broken_component_synthesizes_issue",
			Source: models.EntityComponent,
			Field:  models.FieldStatus,
			Apply: func(ctx context.Context, m Mutator, sourceID uuid.UUID) error {
				c, err := m.Component(ctx, sourceID)
				if err != nil {
					return err
				}
				if !c.Status.IsBrokenCategory() {
					return nil
				}
				title := fmt.Sprintf("Component %s reported as %s", c.Name, c.Status)
				description := fmt.Sprintf(
					"Automatically raised after %s transitioned to status %q.", c.Name, c.Status)
				return m.RaiseIssue(ctx, c.ID, title, description, models.SeverityHigh)
			},
		},
		{
			Name:   "working_status_to_component_status",
			Source: models.EntityUsageAnalysis,
			Field:  models.FieldWorkingStatus,
			Apply: func(ctx context.Context, m Mutator, sourceID uuid.UUID) error {
				a, err := m.AnalysisByID(ctx, sourceID)
				if err != nil {
					return err
				}
				return m.SetComponentStatus(ctx, a.ComponentID, models.ComponentStatusFor(a.WorkingStatus))
			},
		},
	}
}
