package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/services"
)

// AdminHandler exposes registry maintenance, deactivation, and repair
// endpoints.
type AdminHandler struct {
	admin  services.AdminService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/categories", h.ListCategories)
	mux.HandleFunc("PUT /api/admin/categories", h.UpsertCategory)
	mux.HandleFunc("GET /api/admin/registries/{registry}", h.ListRegistry)
	mux.HandleFunc("PUT /api/admin/registries/{registry}", h.UpsertRegistryValue)
	mux.HandleFunc("POST /api/admin/entities/{type}/{id}/deactivate", h.Deactivate)
	mux.HandleFunc("POST /api/admin/entities/{type}/{id}/resync", h.Resync)
}

// ListCategories handles GET /api/admin/categories
func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.admin.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, categories); err != nil {
		h.logger.Error("Failed to encode categories", zap.Error(err))
	}
}

// UpsertCategory handles PUT /api/admin/categories
func (h *AdminHandler) UpsertCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.admin.UpsertCategory(r.Context(), &category); err != nil {
		h.logger.Warn("Category upsert rejected", zap.String("name", category.Name), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, category); err != nil {
		h.logger.Error("Failed to encode category", zap.Error(err))
	}
}

// ListRegistry handles GET /api/admin/registries/{registry}
func (h *AdminHandler) ListRegistry(w http.ResponseWriter, r *http.Request) {
	values, err := h.admin.ListRegistry(r.Context(), r.PathValue("registry"))
	if err != nil {
		h.logger.Error("Failed to list registry", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, values); err != nil {
		h.logger.Error("Failed to encode registry values", zap.Error(err))
	}
}

// UpsertRegistryValue handles PUT /api/admin/registries/{registry}
func (h *AdminHandler) UpsertRegistryValue(w http.ResponseWriter, r *http.Request) {
	var value models.LookupValue
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	value.Registry = r.PathValue("registry")

	if err := h.admin.UpsertRegistryValue(r.Context(), &value); err != nil {
		h.logger.Warn("Registry value upsert rejected",
			zap.String("registry", value.Registry), zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, value); err != nil {
		h.logger.Error("Failed to encode registry value", zap.Error(err))
	}
}

func parseEntityRef(w http.ResponseWriter, r *http.Request) (models.EntityType, uuid.UUID, bool) {
	entityType, err := models.ParseEntityType(r.PathValue("type"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_entity_type", err.Error())
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return "", uuid.Nil, false
	}
	return entityType, id, true
}

// Deactivate handles POST /api/admin/entities/{type}/{id}/deactivate
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	entityType, id, ok := parseEntityRef(w, r)
	if !ok {
		return
	}

	if err := h.admin.DeactivateEntity(r.Context(), entityType, id); err != nil {
		h.logger.Error("Deactivation failed",
			zap.String("entity_type", string(entityType)),
			zap.String("id", id.String()),
			zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resync handles POST /api/admin/entities/{type}/{id}/resync
func (h *AdminHandler) Resync(w http.ResponseWriter, r *http.Request) {
	r = actorContext(r)
	entityType, id, ok := parseEntityRef(w, r)
	if !ok {
		return
	}

	if err := h.admin.ResyncEntity(r.Context(), entityType, id); err != nil {
		h.logger.Error("Resync failed",
			zap.String("entity_type", string(entityType)),
			zap.String("id", id.String()),
			zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
