package models

import "context"

// Well-known actor identifiers.
const (
	ActorSystem  = "system"  // engine-originated writes (sync propagation, retention)
	ActorWatcher = "watcher" // file-system ingestion adapter
)

// actorKey is the context key for storing the acting identity.
type actorKey struct{}

// WithActor returns a new context carrying the acting identity. The store
// stamps created_by and history changed_by from it.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom retrieves the acting identity from the context, defaulting to
// ActorSystem when none was set.
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return ActorSystem
}
