package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/metrics"
	"github.com/statline-io/statline-engine/pkg/models"
)

// EntityStore is the versioned entity store. Every mutation runs the full
// validate-commit-synchronize pipeline inside one transaction: the new
// version, its history record, and all cascaded propagated writes commit
// together or not at all.
type EntityStore interface {
	CreateComponent(ctx context.Context, c *models.Component) error
	CreateUsageAnalysis(ctx context.Context, a *models.UsageAnalysis) error
	CreateIssue(ctx context.Context, i *models.Issue) error
	CreateDependency(ctx context.Context, d *models.Dependency) error

	// Update methods fail with apperrors.VersionConflict when expectedVersion
	// no longer matches the stored row. They return the committed version.
	UpdateComponent(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.ComponentPatch) (int, error)
	UpdateUsageAnalysis(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.UsageAnalysisPatch) (int, error)
	UpdateIssue(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.IssuePatch) (int, error)
	UpdateDependency(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.DependencyPatch) (int, error)

	GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error)
	GetComponentByName(ctx context.Context, name string) (*models.Component, error)

	// Deactivate soft-deletes the entity and cascades to its dependents in
	// the same atomic unit. Each cascade step appends its own history record.
	Deactivate(ctx context.Context, entityType models.EntityType, id uuid.UUID) error

	// Resync re-fires the propagation rules keyed on the entity's fields from
	// its current committed values. Repair tooling; validation still applies.
	Resync(ctx context.Context, entityType models.EntityType, id uuid.UUID) error
}

type entityStore struct {
	tx        TxRunner
	repos     Repos
	validator *Validator
	sync      *SyncEngine
	logger    *zap.Logger
}

// NewEntityStore creates the EntityStore.
func NewEntityStore(tx TxRunner, repos Repos, validator *Validator, sync *SyncEngine, logger *zap.Logger) EntityStore {
	return &entityStore{
		tx:        tx,
		repos:     repos,
		validator: validator,
		sync:      sync,
		logger:    logger.Named("entity-store"),
	}
}

var _ EntityStore = (*entityStore)(nil)

// ============================================================================
// Create
// ============================================================================

func (s *entityStore) CreateComponent(ctx context.Context, c *models.Component) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if c.CreatedBy == "" {
			c.CreatedBy = models.ActorFrom(ctx)
		}
		if err := s.validator.ValidateNewComponent(ctx, c); err != nil {
			return err
		}
		if err := s.repos.Components.Create(ctx, c); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, models.EntityComponent, c.ID, c.Version, models.OpInsert, models.ComponentSnapshot(c)); err != nil {
			return err
		}
		metrics.CommitsTotal.WithLabelValues(string(models.EntityComponent), string(models.OpInsert)).Inc()

		chain := NewChain()
		return s.sync.Propagate(ctx, s.mutator(chain), chain, MutationEvent{
			EntityType: models.EntityComponent,
			EntityID:   c.ID,
			Fields:     []string{models.FieldStatus},
		})
	})
}

func (s *entityStore) CreateUsageAnalysis(ctx context.Context, a *models.UsageAnalysis) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if a.CreatedBy == "" {
			a.CreatedBy = models.ActorFrom(ctx)
		}
		if err := s.validator.ValidateNewUsageAnalysis(ctx, a); err != nil {
			return err
		}
		if err := s.repos.Analyses.Create(ctx, a); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, models.EntityUsageAnalysis, a.ID, a.Version, models.OpInsert, models.UsageAnalysisSnapshot(a)); err != nil {
			return err
		}
		metrics.CommitsTotal.WithLabelValues(string(models.EntityUsageAnalysis), string(models.OpInsert)).Inc()

		chain := NewChain()
		return s.sync.Propagate(ctx, s.mutator(chain), chain, MutationEvent{
			EntityType: models.EntityUsageAnalysis,
			EntityID:   a.ID,
			Fields:     []string{models.FieldWorkingStatus},
		})
	})
}

func (s *entityStore) CreateIssue(ctx context.Context, i *models.Issue) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		chain := NewChain()
		return s.createIssue(ctx, chain, i)
	})
}

func (s *entityStore) createIssue(ctx context.Context, chain *Chain, i *models.Issue) error {
	if i.CreatedBy == "" {
		i.CreatedBy = models.ActorFrom(ctx)
	}
	if err := s.validator.ValidateNewIssue(ctx, i); err != nil {
		return err
	}
	if err := s.repos.Issues.Create(ctx, i); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, models.EntityIssue, i.ID, i.Version, models.OpInsert, models.IssueSnapshot(i)); err != nil {
		return err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityIssue), string(models.OpInsert)).Inc()
	return nil
}

func (s *entityStore) CreateDependency(ctx context.Context, d *models.Dependency) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if d.CreatedBy == "" {
			d.CreatedBy = models.ActorFrom(ctx)
		}
		if err := s.validator.ValidateNewDependency(ctx, d); err != nil {
			return err
		}
		if err := s.repos.Dependencies.Create(ctx, d); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, models.EntityDependency, d.ID, d.Version, models.OpInsert, models.DependencySnapshot(d)); err != nil {
			return err
		}
		metrics.CommitsTotal.WithLabelValues(string(models.EntityDependency), string(models.OpInsert)).Inc()
		return nil
	})
}

// ============================================================================
// Update
// ============================================================================

func (s *entityStore) UpdateComponent(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.ComponentPatch) (int, error) {
	var version int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		chain := NewChain()
		v, err := s.applyComponentUpdate(ctx, chain, id, &expectedVersion, patch)
		version = v
		return err
	})
	return version, err
}

func (s *entityStore) UpdateUsageAnalysis(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.UsageAnalysisPatch) (int, error) {
	var version int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		chain := NewChain()
		v, err := s.applyUsageAnalysisUpdate(ctx, chain, id, &expectedVersion, patch)
		version = v
		return err
	})
	return version, err
}

func (s *entityStore) UpdateIssue(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.IssuePatch) (int, error) {
	var version int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		v, err := s.applyIssueUpdate(ctx, id, &expectedVersion, patch)
		version = v
		return err
	})
	return version, err
}

func (s *entityStore) UpdateDependency(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.DependencyPatch) (int, error) {
	var version int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		v, err := s.applyDependencyUpdate(ctx, id, &expectedVersion, patch)
		version = v
		return err
	})
	return version, err
}

// applyComponentUpdate runs one component mutation through the pipeline.
// expectedVersion is nil for propagated writes, which always target the
// current committed version inside the chain's transaction.
func (s *entityStore) applyComponentUpdate(ctx context.Context, chain *Chain, id uuid.UUID, expectedVersion *int, patch models.ComponentPatch) (int, error) {
	current, err := s.repos.Components.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		metrics.VersionConflictsTotal.Inc()
		return 0, &apperrors.VersionConflict{
			EntityType: string(models.EntityComponent),
			EntityID:   id.String(),
			Expected:   *expectedVersion,
			Actual:     current.Version,
		}
	}

	next := *current
	var changed []string
	if patch.Status != nil && *patch.Status != current.Status {
		next.Status = *patch.Status
		changed = append(changed, models.FieldStatus)
	}
	if patch.Priority != nil && *patch.Priority != current.Priority {
		next.Priority = *patch.Priority
		changed = append(changed, models.FieldPriority)
	}
	if patch.EffortHours != nil && *patch.EffortHours != current.EffortHours {
		next.EffortHours = *patch.EffortHours
		changed = append(changed, models.FieldEffortHours)
	}
	if patch.Notes != nil && *patch.Notes != current.Notes {
		next.Notes = *patch.Notes
		changed = append(changed, models.FieldNotes)
	}
	if patch.CategoryID != nil && *patch.CategoryID != current.CategoryID {
		next.CategoryID = *patch.CategoryID
		changed = append(changed, models.FieldCategory)
	}
	if patch.Touch {
		next.ActivityCount = current.ActivityCount + 1
		changed = append(changed, models.FieldActivity)
	}
	if len(changed) == 0 {
		// Value-set with nothing to set: the chain ends here.
		return current.Version, nil
	}

	if err := s.validator.ValidateComponentChange(ctx, current, &next, changed); err != nil {
		return 0, err
	}
	if err := s.repos.Components.Update(ctx, &next, current.Version); err != nil {
		if apperrors.IsVersionConflict(err) {
			metrics.VersionConflictsTotal.Inc()
		}
		return 0, err
	}
	if err := s.appendHistory(ctx, models.EntityComponent, next.ID, next.Version, models.OpUpdate, models.ComponentSnapshot(&next)); err != nil {
		return 0, err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityComponent), string(models.OpUpdate)).Inc()

	if err := s.sync.Propagate(ctx, s.mutator(chain), chain, MutationEvent{
		EntityType: models.EntityComponent,
		EntityID:   id,
		Fields:     changed,
	}); err != nil {
		return 0, err
	}
	return next.Version, nil
}

func (s *entityStore) applyUsageAnalysisUpdate(ctx context.Context, chain *Chain, id uuid.UUID, expectedVersion *int, patch models.UsageAnalysisPatch) (int, error) {
	current, err := s.repos.Analyses.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		metrics.VersionConflictsTotal.Inc()
		return 0, &apperrors.VersionConflict{
			EntityType: string(models.EntityUsageAnalysis),
			EntityID:   id.String(),
			Expected:   *expectedVersion,
			Actual:     current.Version,
		}
	}

	next := *current
	var changed []string
	if patch.WorkingStatus != nil && *patch.WorkingStatus != current.WorkingStatus {
		next.WorkingStatus = *patch.WorkingStatus
		changed = append(changed, models.FieldWorkingStatus)
	}
	if patch.PriorityToFix != nil && *patch.PriorityToFix != current.PriorityToFix {
		next.PriorityToFix = *patch.PriorityToFix
		changed = append(changed, models.FieldPriorityToFix)
	}
	if patch.ComplexityToFix != nil && *patch.ComplexityToFix != current.ComplexityToFix {
		next.ComplexityToFix = *patch.ComplexityToFix
		changed = append(changed, models.FieldComplexityToFix)
	}
	if patch.DocumentationStatus != nil && *patch.DocumentationStatus != current.DocumentationStatus {
		next.DocumentationStatus = *patch.DocumentationStatus
		changed = append(changed, models.FieldDocumentationStatus)
	}
	if patch.TestingStatus != nil && *patch.TestingStatus != current.TestingStatus {
		next.TestingStatus = *patch.TestingStatus
		changed = append(changed, models.FieldTestingStatus)
	}
	if patch.ProductionReady != nil && *patch.ProductionReady != current.ProductionReady {
		next.ProductionReady = *patch.ProductionReady
		changed = append(changed, models.FieldProductionReady)
	}
	if patch.Notes != nil && *patch.Notes != current.Notes {
		next.Notes = *patch.Notes
		changed = append(changed, models.FieldNotes)
	}
	if len(changed) == 0 {
		return current.Version, nil
	}

	if err := s.validator.ValidateUsageAnalysisChange(ctx, current, &next); err != nil {
		return 0, err
	}
	if err := s.repos.Analyses.Update(ctx, &next, current.Version); err != nil {
		if apperrors.IsVersionConflict(err) {
			metrics.VersionConflictsTotal.Inc()
		}
		return 0, err
	}
	if err := s.appendHistory(ctx, models.EntityUsageAnalysis, next.ID, next.Version, models.OpUpdate, models.UsageAnalysisSnapshot(&next)); err != nil {
		return 0, err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityUsageAnalysis), string(models.OpUpdate)).Inc()

	if err := s.sync.Propagate(ctx, s.mutator(chain), chain, MutationEvent{
		EntityType: models.EntityUsageAnalysis,
		EntityID:   id,
		Fields:     changed,
	}); err != nil {
		return 0, err
	}
	return next.Version, nil
}

func (s *entityStore) applyIssueUpdate(ctx context.Context, id uuid.UUID, expectedVersion *int, patch models.IssuePatch) (int, error) {
	current, err := s.repos.Issues.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		metrics.VersionConflictsTotal.Inc()
		return 0, &apperrors.VersionConflict{
			EntityType: string(models.EntityIssue),
			EntityID:   id.String(),
			Expected:   *expectedVersion,
			Actual:     current.Version,
		}
	}

	next := *current
	var changed []string
	if patch.Title != nil && *patch.Title != current.Title {
		next.Title = *patch.Title
		changed = append(changed, models.FieldTitle)
	}
	if patch.Description != nil && *patch.Description != current.Description {
		next.Description = *patch.Description
		changed = append(changed, models.FieldDescription)
	}
	if patch.Severity != nil && *patch.Severity != current.Severity {
		next.Severity = *patch.Severity
		changed = append(changed, models.FieldSeverity)
	}
	if patch.IssueType != nil && *patch.IssueType != current.IssueType {
		next.IssueType = *patch.IssueType
		changed = append(changed, models.FieldIssueType)
	}
	if patch.Resolved != nil && *patch.Resolved != current.Resolved {
		next.Resolved = *patch.Resolved
		changed = append(changed, models.FieldResolved)
		if *patch.Resolved {
			now := time.Now().UTC()
			next.ResolvedAt = &now
			resolvedBy := models.ActorFrom(ctx)
			if patch.ResolvedBy != nil {
				resolvedBy = *patch.ResolvedBy
			}
			next.ResolvedBy = &resolvedBy
		}
	}
	if len(changed) == 0 {
		return current.Version, nil
	}

	if err := s.validator.ValidateIssueChange(ctx, current, &next, changed); err != nil {
		return 0, err
	}
	if err := s.repos.Issues.Update(ctx, &next, current.Version); err != nil {
		if apperrors.IsVersionConflict(err) {
			metrics.VersionConflictsTotal.Inc()
		}
		return 0, err
	}
	if err := s.appendHistory(ctx, models.EntityIssue, next.ID, next.Version, models.OpUpdate, models.IssueSnapshot(&next)); err != nil {
		return 0, err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityIssue), string(models.OpUpdate)).Inc()
	return next.Version, nil
}

func (s *entityStore) applyDependencyUpdate(ctx context.Context, id uuid.UUID, expectedVersion *int, patch models.DependencyPatch) (int, error) {
	current, err := s.repos.Dependencies.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		metrics.VersionConflictsTotal.Inc()
		return 0, &apperrors.VersionConflict{
			EntityType: string(models.EntityDependency),
			EntityID:   id.String(),
			Expected:   *expectedVersion,
			Actual:     current.Version,
		}
	}

	next := *current
	var changed []string
	if patch.DependencyType != nil && *patch.DependencyType != current.DependencyType {
		next.DependencyType = *patch.DependencyType
		changed = append(changed, models.FieldDependencyType)
	}
	if len(changed) == 0 {
		return current.Version, nil
	}

	if err := s.validator.ValidateDependencyChange(ctx, current, &next); err != nil {
		return 0, err
	}
	if err := s.repos.Dependencies.Update(ctx, &next, current.Version); err != nil {
		if apperrors.IsVersionConflict(err) {
			metrics.VersionConflictsTotal.Inc()
		}
		return 0, err
	}
	if err := s.appendHistory(ctx, models.EntityDependency, next.ID, next.Version, models.OpUpdate, models.DependencySnapshot(&next)); err != nil {
		return 0, err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityDependency), string(models.OpUpdate)).Inc()
	return next.Version, nil
}

// ============================================================================
// Read
// ============================================================================

func (s *entityStore) GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return s.repos.Components.GetByID(ctx, id)
}

func (s *entityStore) GetComponentByName(ctx context.Context, name string) (*models.Component, error) {
	return s.repos.Components.GetByName(ctx, name)
}

// ============================================================================
// Deactivate / Resync
// ============================================================================

func (s *entityStore) Deactivate(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		switch entityType {
		case models.EntityComponent:
			return s.deactivateComponent(ctx, id)
		case models.EntityUsageAnalysis:
			a, err := s.repos.Analyses.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return s.deactivateAnalysis(ctx, a)
		case models.EntityIssue:
			i, err := s.repos.Issues.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return s.deactivateIssue(ctx, i)
		case models.EntityDependency:
			d, err := s.repos.Dependencies.GetByID(ctx, id)
			if err != nil {
				return err
			}
			return s.deactivateDependency(ctx, d)
		default:
			return fmt.Errorf("cannot deactivate unknown entity type %q", entityType)
		}
	})
}

// deactivateComponent soft-deletes a component and cascades to its analyses,
// issues, and dependency edges in both directions, all in one atomic unit.
func (s *entityStore) deactivateComponent(ctx context.Context, id uuid.UUID) error {
	c, err := s.repos.Components.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return nil
	}

	if analysis, err := s.repos.Analyses.GetActiveByComponent(ctx, id); err != nil {
		return err
	} else if analysis != nil {
		if err := s.deactivateAnalysis(ctx, analysis); err != nil {
			return err
		}
	}

	issues, err := s.repos.Issues.ListByComponent(ctx, id, true)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if err := s.deactivateIssue(ctx, issue); err != nil {
			return err
		}
	}

	outgoing, err := s.repos.Dependencies.ListByComponent(ctx, id, true)
	if err != nil {
		return err
	}
	incoming, err := s.repos.Dependencies.ListByTarget(ctx, id, true)
	if err != nil {
		return err
	}
	for _, dep := range append(outgoing, incoming...) {
		if err := s.deactivateDependency(ctx, dep); err != nil {
			return err
		}
	}

	c.IsActive = false
	if err := s.repos.Components.Update(ctx, c, c.Version); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, models.EntityComponent, c.ID, c.Version, models.OpDelete, models.ComponentSnapshot(c)); err != nil {
		return err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityComponent), string(models.OpDelete)).Inc()

	s.logger.Info("Deactivated component with cascade",
		zap.String("component", c.Name),
		zap.Int("issues", len(issues)),
		zap.Int("dependencies", len(outgoing)+len(incoming)))
	return nil
}

func (s *entityStore) deactivateAnalysis(ctx context.Context, a *models.UsageAnalysis) error {
	if !a.IsActive {
		return nil
	}
	a.IsActive = false
	if err := s.repos.Analyses.Update(ctx, a, a.Version); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, models.EntityUsageAnalysis, a.ID, a.Version, models.OpDelete, models.UsageAnalysisSnapshot(a)); err != nil {
		return err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityUsageAnalysis), string(models.OpDelete)).Inc()
	return nil
}

func (s *entityStore) deactivateIssue(ctx context.Context, i *models.Issue) error {
	if !i.IsActive {
		return nil
	}
	i.IsActive = false
	if err := s.repos.Issues.Update(ctx, i, i.Version); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, models.EntityIssue, i.ID, i.Version, models.OpDelete, models.IssueSnapshot(i)); err != nil {
		return err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityIssue), string(models.OpDelete)).Inc()
	return nil
}

func (s *entityStore) deactivateDependency(ctx context.Context, d *models.Dependency) error {
	if !d.IsActive {
		return nil
	}
	d.IsActive = false
	if err := s.repos.Dependencies.Update(ctx, d, d.Version); err != nil {
		return err
	}
	if err := s.appendHistory(ctx, models.EntityDependency, d.ID, d.Version, models.OpDelete, models.DependencySnapshot(d)); err != nil {
		return err
	}
	metrics.CommitsTotal.WithLabelValues(string(models.EntityDependency), string(models.OpDelete)).Inc()
	return nil
}

func (s *entityStore) Resync(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	fields := s.sync.SourceFields(entityType)
	if len(fields) == 0 {
		return nil
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		chain := NewChain()
		return s.sync.Propagate(ctx, s.mutator(chain), chain, MutationEvent{
			EntityType: entityType,
			EntityID:   id,
			Fields:     fields,
		})
	})
}

// ============================================================================
// Chain mutator and history
// ============================================================================

func (s *entityStore) mutator(chain *Chain) Mutator {
	return &chainMutator{store: s, chain: chain}
}

// chainMutator gives propagation rules a write surface bound to the chain,
// so cascaded writes share the visited set and depth bookkeeping.
type chainMutator struct {
	store *entityStore
	chain *Chain
}

var _ Mutator = (*chainMutator)(nil)

func (m *chainMutator) Component(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return m.store.repos.Components.GetByID(ctx, id)
}

func (m *chainMutator) AnalysisByID(ctx context.Context, id uuid.UUID) (*models.UsageAnalysis, error) {
	return m.store.repos.Analyses.GetByID(ctx, id)
}

func (m *chainMutator) SetComponentStatus(ctx context.Context, componentID uuid.UUID, status models.ComponentStatus) error {
	c, err := m.store.repos.Components.GetByID(ctx, componentID)
	if err != nil {
		return err
	}
	if !c.IsActive || c.Status == status {
		return nil
	}
	_, err = m.store.applyComponentUpdate(ctx, m.chain, componentID, nil, models.ComponentPatch{Status: &status})
	return err
}

func (m *chainMutator) SetWorkingStatus(ctx context.Context, componentID uuid.UUID, status models.WorkingStatus) error {
	analysis, err := m.store.repos.Analyses.GetActiveByComponent(ctx, componentID)
	if err != nil {
		return err
	}
	if analysis == nil || analysis.WorkingStatus == status {
		// No projection target, or already converged.
		return nil
	}
	if models.ComponentStatusFor(analysis.WorkingStatus) == models.ComponentStatusFor(status) {
		// The current value already projects onto the same component status.
		// Overwriting would erase a finer legacy grade (mostly/barely) with
		// its collapsed equivalent, so the chain ends here.
		return nil
	}
	_, err = m.store.applyUsageAnalysisUpdate(ctx, m.chain, analysis.ID, nil, models.UsageAnalysisPatch{WorkingStatus: &status})
	return err
}

func (m *chainMutator) RaiseIssue(ctx context.Context, componentID uuid.UUID, title, description string, severity models.Severity) error {
	dup, err := m.store.repos.Issues.FindActiveDuplicate(ctx, componentID, title)
	if err != nil {
		return err
	}
	if dup != nil {
		// An identical active issue already exists; raising again is a no-op.
		return nil
	}
	issue := &models.Issue{
		ComponentID: componentID,
		Title:       title,
		Description: description,
		Severity:    severity,
		IssueType:   models.IssueBug,
		CreatedBy:   models.ActorSystem,
	}
	return m.store.createIssue(ctx, m.chain, issue)
}

func (s *entityStore) appendHistory(ctx context.Context, entityType models.EntityType, entityID uuid.UUID, version int, op models.Operation, snapshot map[string]any) error {
	return s.repos.History.Append(ctx, &models.HistoryRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Version:    version,
		Operation:  op,
		Snapshot:   snapshot,
		ChangedBy:  models.ActorFrom(ctx),
	})
}
