package services

import (
	"context"

	"github.com/statline-io/statline-engine/pkg/repositories"
)

// TxRunner runs a function inside a transaction carried on the context.
// database.DB satisfies it; tests substitute a passthrough runner.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	InSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repos bundles the repositories the engine services operate on.
type Repos struct {
	Components   repositories.ComponentRepository
	Analyses     repositories.UsageAnalysisRepository
	Issues       repositories.IssueRepository
	Dependencies repositories.DependencyRepository
	History      repositories.HistoryRepository
	Lookups      repositories.LookupRepository
}
