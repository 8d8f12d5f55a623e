package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/services"
)

// ReportsHandler exposes the read-only report and monitoring queries.
type ReportsHandler struct {
	reports   services.ReportService
	freshness services.FreshnessMonitor
	logger    *zap.Logger
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(reports services.ReportService, freshness services.FreshnessMonitor, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports:   reports,
		freshness: freshness,
		logger:    logger,
	}
}

// RegisterRoutes registers the report routes on the given mux.
func (h *ReportsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reports/critical-blockers", h.CriticalBlockers)
	mux.HandleFunc("GET /api/reports/priority-dashboard", h.PriorityDashboard)
	mux.HandleFunc("GET /api/reports/bug-detection", h.BugDetection)
	mux.HandleFunc("GET /api/reports/staleness", h.Staleness)
}

// CriticalBlockers handles GET /api/reports/critical-blockers
func (h *ReportsHandler) CriticalBlockers(w http.ResponseWriter, r *http.Request) {
	blockers, err := h.reports.CriticalBlockers(r.Context())
	if err != nil {
		h.logger.Error("Critical blockers report failed", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, blockers); err != nil {
		h.logger.Error("Failed to encode critical blockers", zap.Error(err))
	}
}

// PriorityDashboard handles GET /api/reports/priority-dashboard
func (h *ReportsHandler) PriorityDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.PriorityDashboard(r.Context())
	if err != nil {
		h.logger.Error("Priority dashboard report failed", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, rows); err != nil {
		h.logger.Error("Failed to encode priority dashboard", zap.Error(err))
	}
}

// BugDetection handles GET /api/reports/bug-detection
func (h *ReportsHandler) BugDetection(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.reports.BugDetection(r.Context())
	if err != nil {
		h.logger.Error("Bug detection report failed", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, alerts); err != nil {
		h.logger.Error("Failed to encode alerts", zap.Error(err))
	}
}

// Staleness handles GET /api/reports/staleness
func (h *ReportsHandler) Staleness(w http.ResponseWriter, r *http.Request) {
	warnings, err := h.freshness.Scan(r.Context())
	if err != nil {
		h.logger.Error("Freshness scan failed", zap.Error(err))
		WriteDomainError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, warnings); err != nil {
		h.logger.Error("Failed to encode staleness warnings", zap.Error(err))
	}
}
