package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/repositories"
	"github.com/statline-io/statline-engine/pkg/services"
)

// EntityHandler exposes the versioned entity store over HTTP. Every mutation
// goes through the full validation and synchronization pipeline; update
// requests must carry the expected version and get a 409 when it is stale.
type EntityHandler struct {
	store   services.EntityStore
	history repositories.HistoryRepository
	repos   services.Repos
	logger  *zap.Logger
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(store services.EntityStore, repos services.Repos, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		store:   store,
		history: repos.History,
		repos:   repos,
		logger:  logger,
	}
}

// RegisterRoutes registers the entity routes on the given mux.
func (h *EntityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/components", h.CreateComponent)
	mux.HandleFunc("GET /api/components", h.ListComponents)
	mux.HandleFunc("GET /api/components/{id}", h.GetComponent)
	mux.HandleFunc("PATCH /api/components/{id}", h.UpdateComponent)
	mux.HandleFunc("GET /api/components/{id}/history", h.ComponentHistory)

	mux.HandleFunc("POST /api/analyses", h.CreateAnalysis)
	mux.HandleFunc("PATCH /api/analyses/{id}", h.UpdateAnalysis)

	mux.HandleFunc("POST /api/issues", h.CreateIssue)
	mux.HandleFunc("PATCH /api/issues/{id}", h.UpdateIssue)

	mux.HandleFunc("POST /api/dependencies", h.CreateDependency)
	mux.HandleFunc("PATCH /api/dependencies/{id}", h.UpdateDependency)
}

// actorContext stamps the request context with the caller identity from the
// X-Actor header, when present.
func actorContext(r *http.Request) *http.Request {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return r.WithContext(models.WithActor(r.Context(), actor))
	}
	return r
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

type updateResponse struct {
	ID      uuid.UUID `json:"id"`
	Version int       `json:"version"`
}

// CreateComponent handles POST /api/components
func (h *EntityHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)

	var component models.Component
	if err := json.NewDecoder(r.Body).Decode(&component); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.store.CreateComponent(r.Context(), &component); err != nil {
		h.logger.Error("Failed to create component", zap.String("name", component.Name), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, component); err != nil {
		h.logger.Error("Failed to encode component", zap.Error(err))
	}
}

// ListComponents handles GET /api/components
func (h *EntityHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	components, err := h.repos.Components.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Failed to list components", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, components); err != nil {
		h.logger.Error("Failed to encode components", zap.Error(err))
	}
}

// GetComponent handles GET /api/components/{id}
func (h *EntityHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	component, err := h.store.GetComponent(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, component); err != nil {
		h.logger.Error("Failed to encode component", zap.Error(err))
	}
}

type updateComponentRequest struct {
	ExpectedVersion int                   `json:"expected_version"`
	Patch           models.ComponentPatch `json:"patch"`
}

// UpdateComponent handles PATCH /api/components/{id}
func (h *EntityHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ExpectedVersion < 1 {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "expected_version must be at least 1")
		return
	}

	version, err := h.store.UpdateComponent(r.Context(), id, req.ExpectedVersion, req.Patch)
	if err != nil {
		h.logger.Warn("Component update rejected", zap.String("id", id.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updateResponse{ID: id, Version: version}); err != nil {
		h.logger.Error("Failed to encode update response", zap.Error(err))
	}
}

// ComponentHistory handles GET /api/components/{id}/history
func (h *EntityHandler) ComponentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	records, err := h.history.ListByEntity(r.Context(), models.EntityComponent, id)
	if err != nil {
		h.logger.Error("Failed to list history", zap.String("id", id.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, records); err != nil {
		h.logger.Error("Failed to encode history", zap.Error(err))
	}
}

// CreateAnalysis handles POST /api/analyses
func (h *EntityHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)

	var analysis models.UsageAnalysis
	if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.store.CreateUsageAnalysis(r.Context(), &analysis); err != nil {
		h.logger.Error("Failed to create analysis",
			zap.String("component_id", analysis.ComponentID.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, analysis); err != nil {
		h.logger.Error("Failed to encode analysis", zap.Error(err))
	}
}

type updateAnalysisRequest struct {
	ExpectedVersion int                       `json:"expected_version"`
	Patch           models.UsageAnalysisPatch `json:"patch"`
}

// UpdateAnalysis handles PATCH /api/analyses/{id}
func (h *EntityHandler) UpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ExpectedVersion < 1 {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "expected_version must be at least 1")
		return
	}

	version, err := h.store.UpdateUsageAnalysis(r.Context(), id, req.ExpectedVersion, req.Patch)
	if err != nil {
		h.logger.Warn("Analysis update rejected", zap.String("id", id.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updateResponse{ID: id, Version: version}); err != nil {
		h.logger.Error("Failed to encode update response", zap.Error(err))
	}
}

// CreateIssue handles POST /api/issues
func (h *EntityHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)

	var issue models.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.store.CreateIssue(r.Context(), &issue); err != nil {
		h.logger.Error("Failed to create issue", zap.String("title", issue.Title), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, issue); err != nil {
		h.logger.Error("Failed to encode issue", zap.Error(err))
	}
}

type updateIssueRequest struct {
	ExpectedVersion int               `json:"expected_version"`
	Patch           models.IssuePatch `json:"patch"`
}

// UpdateIssue handles PATCH /api/issues/{id}
func (h *EntityHandler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ExpectedVersion < 1 {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "expected_version must be at least 1")
		return
	}

	version, err := h.store.UpdateIssue(r.Context(), id, req.ExpectedVersion, req.Patch)
	if err != nil {
		h.logger.Warn("Issue update rejected", zap.String("id", id.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updateResponse{ID: id, Version: version}); err != nil {
		h.logger.Error("Failed to encode update response", zap.Error(err))
	}
}

// CreateDependency handles POST /api/dependencies
func (h *EntityHandler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)

	var dependency models.Dependency
	if err := json.NewDecoder(r.Body).Decode(&dependency); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.store.CreateDependency(r.Context(), &dependency); err != nil {
		h.logger.Error("Failed to create dependency",
			zap.String("component_id", dependency.ComponentID.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusCreated, dependency); err != nil {
		h.logger.Error("Failed to encode dependency", zap.Error(err))
	}
}

type updateDependencyRequest struct {
	ExpectedVersion int                    `json:"expected_version"`
	Patch           models.DependencyPatch `json:"patch"`
}

// UpdateDependency handles PATCH /api/dependencies/{id}
func (h *EntityHandler) UpdateDependency(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ExpectedVersion < 1 {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "expected_version must be at least 1")
		return
	}

	version, err := h.store.UpdateDependency(r.Context(), id, req.ExpectedVersion, req.Patch)
	if err != nil {
		h.logger.Warn("Dependency update rejected", zap.String("id", id.String()), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, updateResponse{ID: id, Version: version}); err != nil {
		h.logger.Error("Failed to encode update response", zap.Error(err))
	}
}
