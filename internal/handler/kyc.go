// ==============================================================================
// KYC HTTP HANDLER - internal/handler/kyc.go
// ==============================================================================
// Handles KYC submission and admin decision endpoints with validation, error
// handling, and logging.
// ==============================================================================

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"kycintake/internal/domain"
	"kycintake/internal/kyc"
	"kycintake/internal/middleware"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"
	"kycintake/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ==============================================================================
// KYC HANDLER STRUCT
// ==============================================================================

// KYCHandler handles KYC submission and admin endpoints.
type KYCHandler struct {
	service   *kyc.Service
	validator *validator.Validator
	logger    logger.Logger
}

// NewKYCHandler creates a new KYCHandler with required dependencies.
func NewKYCHandler(service *kyc.Service, val *validator.Validator, log logger.Logger) *KYCHandler {
	return &KYCHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// ==============================================================================
// HELPER METHODS
// ==============================================================================

// respondJSON sends a JSON response with proper content type and status code
func (h *KYCHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":   err.Error(),
			"status":  status,
			"handler": "kyc",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

// respondError sends a standardized error response
func (h *KYCHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// parseAndValidateRequest parses and validates JSON request body
func (h *KYCHandler) parseAndValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	// Submissions carry full extracted payloads, so allow a larger body
	r.Body = http.MaxBytesReader(w, r.Body, 2<<20)

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"error":    err.Error(),
			"handler":  "kyc",
			"endpoint": r.URL.Path,
		})
		h.respondError(w, http.StatusBadRequest, "Invalid request body format")
		return false
	}

	if err := h.validator.Validate(req); err != nil {
		h.logger.Warn("Request validation failed", map[string]interface{}{
			"error":    err.Error(),
			"handler":  "kyc",
			"endpoint": r.URL.Path,
		})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

// ==============================================================================
// ENDPOINT: SUBMIT KYC
// ==============================================================================

// SubmitKYC persists a new KYC submission for the authenticated user.
// POST /api/kyc/submit
func (h *KYCHandler) SubmitKYC(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: missing user context")
		return
	}

	var req domain.SubmitKYCRequest
	if !h.parseAndValidateRequest(w, r, &req) {
		return
	}

	h.logger.Info("KYC submission attempt", map[string]interface{}{
		"event":     "kyc_submission_started",
		"user_id":   userID,
		"documents": len(req.Filenames),
		"ip":        r.RemoteAddr,
	})

	response, err := h.service.Submit(r.Context(), userID, &req)
	if err != nil {
		h.handleKYCError(w, err, "Submit", userID)
		return
	}

	h.respondJSON(w, http.StatusCreated, response)
}

// ==============================================================================
// ENDPOINT: ADMIN LIST KYC REQUESTS
// ==============================================================================

// ListKYCRequests returns KYC requests for the admin panel.
// GET /api/admin/kyc-requests
func (h *KYCHandler) ListKYCRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	requests, err := h.service.ListRequests(r.Context(), limit, offset)
	if err != nil {
		h.handleKYCError(w, err, "ListRequests", "")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetKYCRequest returns one KYC request.
// GET /api/admin/kyc-requests/{id}
func (h *KYCHandler) GetKYCRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.handleKYCError(w, err, "GetRequest", "")
		return
	}

	h.respondJSON(w, http.StatusOK, request)
}

// ==============================================================================
// ENDPOINT: ADMIN KYC ACTION
// ==============================================================================

// HandleKYCAction applies an admin decision to a pending request.
// POST /api/admin/kyc-requests/{id}/{action}
func (h *KYCHandler) HandleKYCAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	action := vars["action"]

	actor, _ := middleware.UserNameFromContext(r.Context())
	if actor == "" {
		actor, _ = middleware.UserIDFromContext(r.Context())
	}

	h.logger.Info("KYC admin action attempt", map[string]interface{}{
		"event":      "kyc_action_started",
		"request_id": id.String(),
		"action":     action,
		"actor":      actor,
		"ip":         r.RemoteAddr,
	})

	request, err := h.service.ApplyAction(r.Context(), id, action, actor)
	if err != nil {
		h.handleKYCError(w, err, "ApplyAction", actor)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "KYC request updated",
		"kyc":     request,
	})
}

// ==============================================================================
// ERROR HANDLING
// ==============================================================================

// handleKYCError maps service errors to HTTP status codes.
func (h *KYCHandler) handleKYCError(w http.ResponseWriter, err error, operation, actor string) {
	status := http.StatusInternalServerError
	message := "An internal error occurred"

	switch {
	case kycerrors.Is(err, kycerrors.ErrKYCRequestNotFound):
		status, message = http.StatusNotFound, "KYC request not found"
	case kycerrors.Is(err, kycerrors.ErrKYCAlreadyProcessed):
		status, message = http.StatusConflict, "KYC request has already been processed"
	case kycerrors.Is(err, kycerrors.ErrInvalidKYCAction):
		status, message = http.StatusBadRequest, "Invalid KYC action"
	case kycerrors.Is(err, kycerrors.ErrMissingUserID):
		status, message = http.StatusUnauthorized, "Unauthorized: missing user context"
	case kycerrors.Is(err, kycerrors.ErrDuplicateCheckFailed):
		status, message = http.StatusServiceUnavailable, "Duplicate check is temporarily unavailable"
	}

	logData := map[string]interface{}{
		"operation": operation,
		"actor":     actor,
		"error":     err.Error(),
		"status":    status,
	}
	if status >= 500 {
		h.logger.Error("KYC system error", logData)
	} else {
		h.logger.Warn("KYC client error", logData)
	}

	h.respondError(w, status, message)
}

// paginationParams reads limit/offset query params with a default page size.
func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
