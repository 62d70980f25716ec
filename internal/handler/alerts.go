// ==============================================================================
// ADMIN ALERTS HTTP HANDLER - internal/handler/alerts.go
// ==============================================================================
// Read-only admin endpoints over the fraud alert and audit log trails.
// ==============================================================================

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"kycintake/internal/domain"
	"kycintake/pkg/logger"
)

// AlertLister reads the fraud alert trail.
type AlertLister interface {
	FindAll(ctx context.Context, limit, offset int) ([]*domain.FraudAlert, error)
	CountAll(ctx context.Context) (int, error)
}

// AuditLister reads the audit log trail.
type AuditLister interface {
	FindAll(ctx context.Context, limit, offset int) ([]*domain.AuditLog, error)
	CountAll(ctx context.Context) (int, error)
}

// AlertsHandler serves the admin panel's fraud-alert and audit-log views.
type AlertsHandler struct {
	alerts AlertLister
	audits AuditLister
	logger logger.Logger
}

// NewAlertsHandler creates a new AlertsHandler.
func NewAlertsHandler(alerts AlertLister, audits AuditLister, log logger.Logger) *AlertsHandler {
	return &AlertsHandler{
		alerts: alerts,
		audits: audits,
		logger: log,
	}
}

func (h *AlertsHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":   err.Error(),
			"status":  status,
			"handler": "alerts",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

func (h *AlertsHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// ListFraudAlerts returns fraud alerts, newest first.
// GET /api/admin/fraud-alerts
func (h *AlertsHandler) ListFraudAlerts(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	alerts, err := h.alerts.FindAll(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list fraud alerts", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list fraud alerts")
		return
	}

	total, err := h.alerts.CountAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to count fraud alerts", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list fraud alerts")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ListAuditLogs returns audit log entries, newest first.
// GET /api/admin/audit-logs
func (h *AlertsHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	logs, err := h.audits.FindAll(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list audit logs", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}

	total, err := h.audits.CountAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to count audit logs", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
