package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/services"
)

// mockEntityStore is a function-field mock: tests set only the methods the
// route under test should hit, anything else panics loudly.
type mockEntityStore struct {
	createComponentFunc     func(ctx context.Context, c *models.Component) error
	createUsageAnalysisFunc func(ctx context.Context, a *models.UsageAnalysis) error
	createIssueFunc         func(ctx context.Context, i *models.Issue) error
	createDependencyFunc    func(ctx context.Context, d *models.Dependency) error
	updateComponentFunc     func(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.ComponentPatch) (int, error)
	updateUsageAnalysisFunc func(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.UsageAnalysisPatch) (int, error)
	updateIssueFunc         func(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.IssuePatch) (int, error)
	updateDependencyFunc    func(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.DependencyPatch) (int, error)
	getComponentFunc        func(ctx context.Context, id uuid.UUID) (*models.Component, error)
	getComponentByNameFunc  func(ctx context.Context, name string) (*models.Component, error)
	deactivateFunc          func(ctx context.Context, entityType models.EntityType, id uuid.UUID) error
	resyncFunc              func(ctx context.Context, entityType models.EntityType, id uuid.UUID) error
}

var _ services.EntityStore = (*mockEntityStore)(nil)

func (m *mockEntityStore) CreateComponent(ctx context.Context, c *models.Component) error {
	return m.createComponentFunc(ctx, c)
}

func (m *mockEntityStore) CreateUsageAnalysis(ctx context.Context, a *models.UsageAnalysis) error {
	return m.createUsageAnalysisFunc(ctx, a)
}

func (m *mockEntityStore) CreateIssue(ctx context.Context, i *models.Issue) error {
	return m.createIssueFunc(ctx, i)
}

func (m *mockEntityStore) CreateDependency(ctx context.Context, d *models.Dependency) error {
	return m.createDependencyFunc(ctx, d)
}

func (m *mockEntityStore) UpdateComponent(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.ComponentPatch) (int, error) {
	return m.updateComponentFunc(ctx, id, expectedVersion, patch)
}

func (m *mockEntityStore) UpdateUsageAnalysis(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.UsageAnalysisPatch) (int, error) {
	return m.updateUsageAnalysisFunc(ctx, id, expectedVersion, patch)
}

func (m *mockEntityStore) UpdateIssue(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.IssuePatch) (int, error) {
	return m.updateIssueFunc(ctx, id, expectedVersion, patch)
}

func (m *mockEntityStore) UpdateDependency(ctx context.Context, id uuid.UUID, expectedVersion int, patch models.DependencyPatch) (int, error) {
	return m.updateDependencyFunc(ctx, id, expectedVersion, patch)
}

func (m *mockEntityStore) GetComponent(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	return m.getComponentFunc(ctx, id)
}

func (m *mockEntityStore) GetComponentByName(ctx context.Context, name string) (*models.Component, error) {
	return m.getComponentByNameFunc(ctx, name)
}

func (m *mockEntityStore) Deactivate(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	return m.deactivateFunc(ctx, entityType, id)
}

func (m *mockEntityStore) Resync(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	return m.resyncFunc(ctx, entityType, id)
}

// mockIngestAdapter records the events it receives.
type mockIngestAdapter struct {
	events []models.ChangeEvent
	err    error
}

var _ services.IngestAdapter = (*mockIngestAdapter)(nil)

func (m *mockIngestAdapter) HandleChangeEvent(_ context.Context, event models.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
