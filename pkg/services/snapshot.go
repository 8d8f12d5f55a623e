package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/statline-io/statline-engine/pkg/models"
)

// Snapshot is a consistent read-only view of the active entity graph, taken
// in a single repeatable-read transaction. Evaluators and reports work off a
// Snapshot so concurrent commits cannot skew a single pass.
type Snapshot struct {
	Components              []*models.Component
	ComponentsByID          map[uuid.UUID]*models.Component
	AnalysesByComponent     map[uuid.UUID]*models.UsageAnalysis
	IssuesByComponent       map[uuid.UUID][]*models.Issue
	DependenciesByComponent map[uuid.UUID][]*models.Dependency
	Categories              map[uuid.UUID]*models.Category
	TakenAt                 time.Time
}

// SnapshotLoader produces entity graph snapshots.
type SnapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

type snapshotLoader struct {
	tx    TxRunner
	repos Repos
}

// NewSnapshotLoader creates a SnapshotLoader backed by the repositories.
func NewSnapshotLoader(tx TxRunner, repos Repos) SnapshotLoader {
	return &snapshotLoader{tx: tx, repos: repos}
}

var _ SnapshotLoader = (*snapshotLoader)(nil)

func (l *snapshotLoader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		ComponentsByID:          make(map[uuid.UUID]*models.Component),
		AnalysesByComponent:     make(map[uuid.UUID]*models.UsageAnalysis),
		IssuesByComponent:       make(map[uuid.UUID][]*models.Issue),
		DependenciesByComponent: make(map[uuid.UUID][]*models.Dependency),
		Categories:              make(map[uuid.UUID]*models.Category),
		TakenAt:                 time.Now().UTC(),
	}

	err := l.tx.InSnapshot(ctx, func(ctx context.Context) error {
		components, err := l.repos.Components.List(ctx, true)
		if err != nil {
			return err
		}
		snap.Components = components
		for _, c := range components {
			snap.ComponentsByID[c.ID] = c
		}

		categories, err := l.repos.Lookups.ListCategories(ctx)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			snap.Categories[cat.ID] = cat
		}

		analyses, err := l.repos.Analyses.List(ctx, true)
		if err != nil {
			return err
		}
		for _, a := range analyses {
			snap.AnalysesByComponent[a.ComponentID] = a
		}

		issues, err := l.repos.Issues.List(ctx, true)
		if err != nil {
			return err
		}
		for _, i := range issues {
			snap.IssuesByComponent[i.ComponentID] = append(snap.IssuesByComponent[i.ComponentID], i)
		}

		deps, err := l.repos.Dependencies.List(ctx, true)
		if err != nil {
			return err
		}
		for _, d := range deps {
			snap.DependenciesByComponent[d.ComponentID] = append(snap.DependenciesByComponent[d.ComponentID], d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Analysis returns the active analysis for a component, or nil.
func (s *Snapshot) Analysis(componentID uuid.UUID) *models.UsageAnalysis {
	return s.AnalysesByComponent[componentID]
}

// OpenIssues returns the unresolved active issues for a component.
func (s *Snapshot) OpenIssues(componentID uuid.UUID) []*models.Issue {
	var open []*models.Issue
	for _, i := range s.IssuesByComponent[componentID] {
		if i.IsOpen() {
			open = append(open, i)
		}
	}
	return open
}

// Category returns the component's category, or nil when unknown.
func (s *Snapshot) Category(c *models.Component) *models.Category {
	return s.Categories[c.CategoryID]
}
