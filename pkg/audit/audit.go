// Package audit logs administrative actions in structured JSON for SIEM
// consumption. Deactivations, repairs, and registry edits change what the
// engine considers valid data, so each one leaves an attributable trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
)

// EventType categorizes administrative events for filtering and alerting.
type EventType string

const (
	// EventDeactivate is logged when an entity is soft-deleted.
	EventDeactivate EventType = "entity_deactivate"
	// EventResync is logged when synchronization repair is run.
	EventResync EventType = "entity_resync"
	// EventRegistryChange is logged for category and registry edits.
	EventRegistryChange EventType = "registry_change"
)

// Event is one auditable administrative action.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  EventType         `json:"event_type"`
	EntityType models.EntityType `json:"entity_type,omitempty"`
	EntityID   uuid.UUID         `json:"entity_id,omitempty"`
	Actor      string            `json:"actor"`
	Detail     string            `json:"detail,omitempty"`
	Outcome    string            `json:"outcome"` // success, rejected, error
}

// Recorder writes audit events through a dedicated logger namespace so SIEM
// pipelines can filter on it.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder creates a Recorder. The logger gets the "audit" namespace.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger.Named("audit")}
}

// Record logs the event. The actor is taken from the context when the event
// does not carry one.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Actor == "" {
		ev.Actor = models.ActorFrom(ctx)
	}

	fields := []zap.Field{
		zap.Time("timestamp", ev.Timestamp),
		zap.String("event_type", string(ev.EventType)),
		zap.String("actor", ev.Actor),
		zap.String("outcome", ev.Outcome),
	}
	if ev.EntityType != "" {
		fields = append(fields, zap.String("entity_type", string(ev.EntityType)))
	}
	if ev.EntityID != uuid.Nil {
		fields = append(fields, zap.String("entity_id", ev.EntityID.String()))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}

	if ev.Outcome == "success" {
		r.logger.Info("Admin action", fields...)
	} else {
		r.logger.Warn("Admin action", fields...)
	}
}
