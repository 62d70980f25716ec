// ==============================================================================
// VERIFICATION HTTP HANDLER - internal/handler/verification.go
// ==============================================================================
// Handles the live document verification endpoint: multipart upload, pipeline
// invocation, bookkeeping, and verdict retrieval by case ID.
// ==============================================================================

package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"kycintake/internal/document"
	"kycintake/internal/middleware"
	"kycintake/internal/verification"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"
	"kycintake/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxUploadBytes caps the verification upload size at 10MB.
const maxUploadBytes = 10 << 20

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// VerificationHandler handles the live verification endpoints.
type VerificationHandler struct {
	service   *verification.Service
	documents *document.Service
	validator *validator.Validator
	logger    logger.Logger
	uploadDir string
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(
	service *verification.Service,
	documents *document.Service,
	val *validator.Validator,
	log logger.Logger,
	uploadDir string,
) *VerificationHandler {
	return &VerificationHandler{
		service:   service,
		documents: documents,
		validator: val,
		logger:    log,
		uploadDir: uploadDir,
	}
}

// respondJSON sends a JSON response with proper content type and status code
func (h *VerificationHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error":   err.Error(),
			"status":  status,
			"handler": "verification",
		})
		http.Error(w, `{"error":"response encoding failed"}`, http.StatusInternalServerError)
	}
}

// respondError sends a standardized error response
func (h *VerificationHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// ==============================================================================
// ENDPOINT: VERIFY DOCUMENT
// ==============================================================================

// VerifyDocument accepts a multipart document image and runs the verification
// pipeline over it.
// POST /api/verify-doc
func (h *VerificationHandler) VerifyDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("Failed to parse multipart form", map[string]interface{}{
			"error": err.Error(),
			"ip":    r.RemoteAddr,
		})
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	documentType := strings.TrimSpace(r.FormValue("documentType"))
	if documentType == "" {
		h.respondError(w, http.StatusBadRequest, kycerrors.ErrDocumentTypeRequired.Error())
		return
	}
	userName := validator.Sanitize(r.FormValue("userName"))

	// Verification is reachable before signup completes, so the user ID comes
	// from the token when present and the form otherwise.
	userID, _ := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(r.FormValue("userId"))
	}
	actor, _ := middleware.UserNameFromContext(r.Context())
	if actor == "" {
		actor = userName
	}

	imagePath, filename, err := h.saveUpload(r)
	if err != nil {
		h.logger.Warn("Document upload rejected", map[string]interface{}{
			"error": err.Error(),
			"ip":    r.RemoteAddr,
		})
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Document verification started", map[string]interface{}{
		"event":         "verification_started",
		"user_id":       userID,
		"document_type": documentType,
		"filename":      filename,
		"ip":            r.RemoteAddr,
	})

	result, err := h.service.VerifyDocument(r.Context(), verification.Input{
		ImagePath:    imagePath,
		Filename:     filename,
		DocumentType: documentType,
		UserName:     userName,
		UserID:       userID,
		ActorName:    actor,
		IPAddress:    r.RemoteAddr,
	})
	if err != nil {
		h.handleVerificationError(w, err)
		return
	}

	// Bookkeeping row so admin decisions can fan status out later. Best
	// effort: the verdict is already final.
	if userID != "" {
		if _, err := h.documents.Record(r.Context(), userID, filename, documentType, result.ExtractedData, result.Valid, result.Status); err != nil {
			h.logger.Error("Failed to record document", map[string]interface{}{
				"user_id":  userID,
				"filename": filename,
				"error":    err.Error(),
			})
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ==============================================================================
// ENDPOINT: GET VERDICT BY CASE ID
// ==============================================================================

// GetVerdict returns a recent verification verdict by case ID.
// GET /api/verify/{caseId}
func (h *VerificationHandler) GetVerdict(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseId"]

	result, err := h.service.GetVerdict(r.Context(), caseID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Verdict not found")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ==============================================================================
// UPLOAD HANDLING
// ==============================================================================

// saveUpload writes the multipart "documentImage" file to the transient
// upload directory and returns its path and original filename.
func (h *VerificationHandler) saveUpload(r *http.Request) (path, filename string, err error) {
	file, header, err := r.FormFile("documentImage")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", "", kycerrors.ErrDocumentImageRequired
		}
		return "", "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer file.Close()

	filename = filepath.Base(header.Filename)
	if filename == "" || filename == "." || strings.ContainsAny(filename, "\x00") {
		return "", "", kycerrors.New("invalid file name")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedUploadExtensions[ext] {
		return "", "", fmt.Errorf("unsupported file type: %s", ext)
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	// Unique on-disk name; the original filename is kept for bookkeeping.
	path = filepath.Join(h.uploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to store uploaded file: %w", err)
	}

	return path, filename, nil
}

// handleVerificationError maps pipeline errors to HTTP status codes. The
// collaborators are external processes, so their failures surface as 502s.
func (h *VerificationHandler) handleVerificationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Verification failed"

	switch {
	case kycerrors.Is(err, kycerrors.ErrOCRFailed):
		status, message = http.StatusBadGateway, "Document text recognition failed"
	case kycerrors.Is(err, kycerrors.ErrScoringFailed),
		kycerrors.Is(err, kycerrors.ErrScorerOutputNotJSON):
		status, message = http.StatusBadGateway, "Fraud scoring failed"
	case kycerrors.Is(err, kycerrors.ErrDuplicateCheckFailed):
		status, message = http.StatusServiceUnavailable, "Duplicate check is temporarily unavailable"
	}

	h.logger.Error("Document verification failed", map[string]interface{}{
		"error":  err.Error(),
		"status": status,
	})

	h.respondError(w, status, message)
}
