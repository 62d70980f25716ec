// ==============================================================================
// DOCUMENTS HTTP HANDLER - internal/handler/documents.go
// ==============================================================================

package handler

import (
	"encoding/json"
	"net/http"

	"kycintake/internal/document"
	"kycintake/internal/middleware"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// DocumentHandler serves document bookkeeping endpoints.
type DocumentHandler struct {
	service *document.Service
	logger  logger.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(service *document.Service, log logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  log,
	}
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":   err.Error(),
			"status":  status,
			"handler": "documents",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// ListMyDocuments returns the authenticated user's document records.
// GET /api/documents
func (h *DocumentHandler) ListMyDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	docs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list documents", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// DeleteDocument removes a document record.
// DELETE /api/admin/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if kycerrors.Is(err, kycerrors.ErrDocumentNotFound) {
			h.respondError(w, http.StatusNotFound, "Document not found")
			return
		}
		h.logger.Error("Failed to delete document", map[string]interface{}{
			"document_id": id.String(),
			"error":       err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}
