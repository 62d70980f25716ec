// ==============================================================================
// ROUTER - internal/handler/router.go
// ==============================================================================

package handler

import (
	"net/http"

	"kycintake/internal/middleware"
	"kycintake/pkg/logger"

	"github.com/gorilla/mux"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	KYC          *KYCHandler
	Verification *VerificationHandler
	Alerts       *AlertsHandler
	Documents    *DocumentHandler
	Auth         *middleware.AuthMiddleware
	Logger       logger.Logger
}

// NewRouter assembles the HTTP surface with the shared middleware chain.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()

	// Global middleware
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger).Log)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"kyc-intake"}`))
	}).Methods("GET")

	// Public verification surface. The upload route enforces its own
	// multipart body limit.
	r.HandleFunc("/api/verify-doc", deps.Verification.VerifyDocument).Methods("POST")
	r.HandleFunc("/api/verify/{caseId}", deps.Verification.GetVerdict).Methods("GET")

	// Authenticated user surface
	user := r.PathPrefix("/api").Subrouter()
	user.Use(deps.Auth.Authenticate)
	user.Use(middleware.BodyLimit(2 << 20))
	user.HandleFunc("/kyc/submit", deps.KYC.SubmitKYC).Methods("POST")
	user.HandleFunc("/documents", deps.Documents.ListMyDocuments).Methods("GET")

	// Admin surface
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(deps.Auth.Authenticate)
	admin.Use(deps.Auth.AdminOnly)
	admin.Use(middleware.BodyLimit(1 << 20))
	admin.HandleFunc("/kyc-requests", deps.KYC.ListKYCRequests).Methods("GET")
	admin.HandleFunc("/kyc-requests/{id}", deps.KYC.GetKYCRequest).Methods("GET")
	admin.HandleFunc("/kyc-requests/{id}/{action}", deps.KYC.HandleKYCAction).Methods("POST")
	admin.HandleFunc("/fraud-alerts", deps.Alerts.ListFraudAlerts).Methods("GET")
	admin.HandleFunc("/audit-logs", deps.Alerts.ListAuditLogs).Methods("GET")
	admin.HandleFunc("/documents/{id}", deps.Documents.DeleteDocument).Methods("DELETE")

	return r
}
