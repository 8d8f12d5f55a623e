package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/repositories"
)

// fakeTx is a passthrough TxRunner for unit tests; the fakes below hold all
// state in memory so there is no transaction to manage.
type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTx) InSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeComponentRepo struct {
	rows map[uuid.UUID]*models.Component
}

func (f *fakeComponentRepo) Create(_ context.Context, c *models.Component) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Version = 1
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	c.IsActive = true
	clone := *c
	f.rows[c.ID] = &clone
	return nil
}

func (f *fakeComponentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Component, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeComponentRepo) GetByName(_ context.Context, name string) (*models.Component, error) {
	for _, row := range f.rows {
		if row.Name == name {
			clone := *row
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeComponentRepo) List(_ context.Context, activeOnly bool) ([]*models.Component, error) {
	var out []*models.Component
	for _, row := range f.rows {
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeComponentRepo) Update(_ context.Context, c *models.Component, expectedVersion int) error {
	stored, ok := f.rows[c.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return &apperrors.VersionConflict{
			EntityType: string(models.EntityComponent),
			EntityID:   c.ID.String(),
			Expected:   expectedVersion,
			Actual:     stored.Version,
		}
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = time.Now().UTC()
	clone := *c
	f.rows[c.ID] = &clone
	return nil
}

type fakeAnalysisRepo struct {
	rows map[uuid.UUID]*models.UsageAnalysis
}

func (f *fakeAnalysisRepo) Create(_ context.Context, a *models.UsageAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Version = 1
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	a.IsActive = true
	clone := *a
	f.rows[a.ID] = &clone
	return nil
}

func (f *fakeAnalysisRepo) GetByID(_ context.Context, id uuid.UUID) (*models.UsageAnalysis, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeAnalysisRepo) GetActiveByComponent(_ context.Context, componentID uuid.UUID) (*models.UsageAnalysis, error) {
	for _, row := range f.rows {
		if row.ComponentID == componentID && row.IsActive {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeAnalysisRepo) List(_ context.Context, activeOnly bool) ([]*models.UsageAnalysis, error) {
	var out []*models.UsageAnalysis
	for _, row := range f.rows {
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeAnalysisRepo) Update(_ context.Context, a *models.UsageAnalysis, expectedVersion int) error {
	stored, ok := f.rows[a.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return &apperrors.VersionConflict{
			EntityType: string(models.EntityUsageAnalysis),
			EntityID:   a.ID.String(),
			Expected:   expectedVersion,
			Actual:     stored.Version,
		}
	}
	a.Version = expectedVersion + 1
	a.UpdatedAt = time.Now().UTC()
	clone := *a
	f.rows[a.ID] = &clone
	return nil
}

type fakeIssueRepo struct {
	rows map[uuid.UUID]*models.Issue
}

func (f *fakeIssueRepo) Create(_ context.Context, i *models.Issue) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.Version = 1
	i.CreatedAt = time.Now().UTC()
	i.UpdatedAt = i.CreatedAt
	i.IsActive = true
	clone := *i
	f.rows[i.ID] = &clone
	return nil
}

func (f *fakeIssueRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Issue, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeIssueRepo) ListByComponent(_ context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Issue, error) {
	var out []*models.Issue
	for _, row := range f.rows {
		if row.ComponentID != componentID {
			continue
		}
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeIssueRepo) List(_ context.Context, activeOnly bool) ([]*models.Issue, error) {
	var out []*models.Issue
	for _, row := range f.rows {
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeIssueRepo) FindActiveDuplicate(_ context.Context, componentID uuid.UUID, title string) (*models.Issue, error) {
	for _, row := range f.rows {
		if row.ComponentID == componentID && row.Title == title && row.IsActive && !row.Resolved {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeIssueRepo) Update(_ context.Context, i *models.Issue, expectedVersion int) error {
	stored, ok := f.rows[i.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return &apperrors.VersionConflict{
			EntityType: string(models.EntityIssue),
			EntityID:   i.ID.String(),
			Expected:   expectedVersion,
			Actual:     stored.Version,
		}
	}
	i.Version = expectedVersion + 1
	i.UpdatedAt = time.Now().UTC()
	clone := *i
	f.rows[i.ID] = &clone
	return nil
}

type fakeDependencyRepo struct {
	rows map[uuid.UUID]*models.Dependency
}

func (f *fakeDependencyRepo) Create(_ context.Context, d *models.Dependency) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Version = 1
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	d.IsActive = true
	clone := *d
	f.rows[d.ID] = &clone
	return nil
}

func (f *fakeDependencyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dependency, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeDependencyRepo) ListByComponent(_ context.Context, componentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error) {
	var out []*models.Dependency
	for _, row := range f.rows {
		if row.ComponentID != componentID {
			continue
		}
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeDependencyRepo) ListByTarget(_ context.Context, targetComponentID uuid.UUID, activeOnly bool) ([]*models.Dependency, error) {
	var out []*models.Dependency
	for _, row := range f.rows {
		if row.TargetComponentID == nil || *row.TargetComponentID != targetComponentID {
			continue
		}
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeDependencyRepo) List(_ context.Context, activeOnly bool) ([]*models.Dependency, error) {
	var out []*models.Dependency
	for _, row := range f.rows {
		if activeOnly && !row.IsActive {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeDependencyRepo) Update(_ context.Context, d *models.Dependency, expectedVersion int) error {
	stored, ok := f.rows[d.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return &apperrors.VersionConflict{
			EntityType: string(models.EntityDependency),
			EntityID:   d.ID.String(),
			Expected:   expectedVersion,
			Actual:     stored.Version,
		}
	}
	d.Version = expectedVersion + 1
	d.UpdatedAt = time.Now().UTC()
	clone := *d
	f.rows[d.ID] = &clone
	return nil
}

type fakeHistoryRepo struct {
	records []*models.HistoryRecord
}

func (f *fakeHistoryRepo) Append(_ context.Context, rec *models.HistoryRecord) error {
	clone := *rec
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	if clone.ChangedAt.IsZero() {
		clone.ChangedAt = time.Now().UTC()
	}
	f.records = append(f.records, &clone)
	return nil
}

func (f *fakeHistoryRepo) ListByEntity(_ context.Context, entityType models.EntityType, entityID uuid.UUID) ([]*models.HistoryRecord, error) {
	var out []*models.HistoryRecord
	for _, rec := range f.records {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (f *fakeHistoryRepo) CountByEntity(_ context.Context, entityType models.EntityType, entityID uuid.UUID) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			count++
		}
	}
	return count, nil
}

func (f *fakeHistoryRepo) PruneKeepNewest(_ context.Context, entityType models.EntityType, keep int) (int64, error) {
	byEntity := make(map[uuid.UUID][]*models.HistoryRecord)
	var rest []*models.HistoryRecord
	for _, rec := range f.records {
		if rec.EntityType == entityType {
			byEntity[rec.EntityID] = append(byEntity[rec.EntityID], rec)
		} else {
			rest = append(rest, rec)
		}
	}
	var pruned int64
	for _, recs := range byEntity {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Version > recs[j].Version })
		if len(recs) > keep {
			pruned += int64(len(recs) - keep)
			recs = recs[:keep]
		}
		rest = append(rest, recs...)
	}
	f.records = rest
	return pruned, nil
}

type fakeLookupRepo struct {
	categories map[uuid.UUID]*models.Category
	registry   map[string][]*models.LookupValue
}

func (f *fakeLookupRepo) GetCategoryByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	cat, ok := f.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *cat
	return &clone, nil
}

func (f *fakeLookupRepo) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	for _, cat := range f.categories {
		if cat.Name == name {
			clone := *cat
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeLookupRepo) ListCategories(_ context.Context) ([]*models.Category, error) {
	var out []*models.Category
	for _, cat := range f.categories {
		clone := *cat
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeLookupRepo) UpsertCategory(_ context.Context, c *models.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.IsActive = true
	clone := *c
	f.categories[c.ID] = &clone
	return nil
}

func (f *fakeLookupRepo) ListRegistry(_ context.Context, registry string) ([]*models.LookupValue, error) {
	return f.registry[registry], nil
}

func (f *fakeLookupRepo) UpsertRegistryValue(_ context.Context, v *models.LookupValue) error {
	for i, existing := range f.registry[v.Registry] {
		if existing.Value == v.Value {
			f.registry[v.Registry][i] = v
			return nil
		}
	}
	f.registry[v.Registry] = append(f.registry[v.Registry], v)
	return nil
}

// fixture bundles the fakes behind a Repos value plus direct access for
// seeding and inspection.
type fixture struct {
	repos      Repos
	components *fakeComponentRepo
	analyses   *fakeAnalysisRepo
	issues     *fakeIssueRepo
	deps       *fakeDependencyRepo
	history    *fakeHistoryRepo
	lookups    *fakeLookupRepo
	categoryID uuid.UUID
}

func newFixture() *fixture {
	components := &fakeComponentRepo{rows: make(map[uuid.UUID]*models.Component)}
	analyses := &fakeAnalysisRepo{rows: make(map[uuid.UUID]*models.UsageAnalysis)}
	issues := &fakeIssueRepo{rows: make(map[uuid.UUID]*models.Issue)}
	deps := &fakeDependencyRepo{rows: make(map[uuid.UUID]*models.Dependency)}
	history := &fakeHistoryRepo{}
	lookups := &fakeLookupRepo{
		categories: make(map[uuid.UUID]*models.Category),
		registry:   make(map[string][]*models.LookupValue),
	}

	categoryID := uuid.New()
	lookups.categories[categoryID] = &models.Category{
		ID:       categoryID,
		Name:     "uncategorized",
		IsActive: true,
	}

	return &fixture{
		repos: Repos{
			Components:   components,
			Analyses:     analyses,
			Issues:       issues,
			Dependencies: deps,
			History:      history,
			Lookups:      lookups,
		},
		components: components,
		analyses:   analyses,
		issues:     issues,
		deps:       deps,
		history:    history,
		lookups:    lookups,
		categoryID: categoryID,
	}
}

var (
	_ repositories.ComponentRepository     = (*fakeComponentRepo)(nil)
	_ repositories.UsageAnalysisRepository = (*fakeAnalysisRepo)(nil)
	_ repositories.IssueRepository         = (*fakeIssueRepo)(nil)
	_ repositories.DependencyRepository    = (*fakeDependencyRepo)(nil)
	_ repositories.HistoryRepository       = (*fakeHistoryRepo)(nil)
	_ repositories.LookupRepository        = (*fakeLookupRepo)(nil)
	_ TxRunner                             = fakeTx{}
)
