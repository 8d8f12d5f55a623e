package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/services"
)

// IngestHandler accepts raw change events at the ingestion boundary, for
// collaborators that push events over HTTP instead of the local watcher.
type IngestHandler struct {
	adapter services.IngestAdapter
	logger  *zap.Logger
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(adapter services.IngestAdapter, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{adapter: adapter, logger: logger}
}

// RegisterRoutes registers the ingest routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ingest/change-events", h.ChangeEvent)
}

// ChangeEvent handles POST /api/ingest/change-events
func (h *IngestHandler) ChangeEvent(w http.ResponseWriter, r *http.Request) {
	var event models.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := h.adapter.HandleChangeEvent(r.Context(), event); err != nil {
		h.logger.Error("Change event rejected", zap.String("path", event.Path), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
