// ==============================================================================
// KYC SERVICE - internal/kyc/service.go
// ==============================================================================
// Submission-path orchestration: fingerprinting, duplicate detection, the
// synchronous AML duplicate rule, and admin decisions on pending requests.
// ==============================================================================

package kyc

import (
	"context"
	"time"

	"kycintake/internal/domain"
	"kycintake/internal/duplicate"
	"kycintake/internal/fingerprint"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	duplicateRejectionReason = "AML Auto Flag triggered: Duplicate Aadhaar or PAN"
	duplicateFraudReason     = "Duplicate Aadhaar or PAN found in existing KYC"
)

// Repository defines the KYC request persistence the service needs.
type Repository interface {
	Create(ctx context.Context, req *domain.KYCRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.KYCRequest, error)
	FindAll(ctx context.Context, limit, offset int) ([]*domain.KYCRequest, error)
	Update(ctx context.Context, req *domain.KYCRequest) error
}

// DocumentRepository defines the document bookkeeping operations the service
// needs for the secondary duplicate sweep and the status fan-out.
type DocumentRepository interface {
	FindConflicting(ctx context.Context, userID, aadhaar, pan string, filenames []string) ([]*domain.Document, error)
	UpdateStatusByIDs(ctx context.Context, ids []uuid.UUID, status domain.KYCStatus, reason string) error
	UpdateStatusByFilenames(ctx context.Context, userID string, filenames []string, status domain.KYCStatus) (int64, error)
}

// Service implements the submission-path decision orchestration.
type Service struct {
	repo     Repository
	docs     DocumentRepository
	detector *duplicate.Detector
	logger   logger.Logger
}

func NewService(repo Repository, docs DocumentRepository, detector *duplicate.Detector, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		docs:     docs,
		detector: detector,
		logger:   log,
	}
}

// ==============================================================================
// SUBMISSION
// ==============================================================================

// Submit persists a new KYC request. A duplicate fingerprint rejects the
// request synchronously at creation time, pre-empting manual admin action,
// and triggers the secondary document sweep.
func (s *Service) Submit(ctx context.Context, userID string, req *domain.SubmitKYCRequest) (*domain.SubmitKYCResponse, error) {
	if userID == "" {
		return nil, kycerrors.ErrMissingUserID
	}

	rawAadhaar, rawPAN := primaryIdentifiers(req.ExtractedData)
	fp := fingerprint.FromIdentifiers(rawAadhaar, rawPAN)

	isDuplicate, _, err := s.detector.Check(ctx, fp)
	if err != nil {
		return nil, err
	}

	fraudInfo := req.FraudInfo
	status := domain.KYCStatusPending
	rejectionReason := ""

	if isDuplicate {
		fraudInfo = append(fraudInfo, duplicateFraudInfo(fp))
		status = domain.KYCStatusAMLRejected
		rejectionReason = duplicateRejectionReason

		s.sweepConflictingDocuments(ctx, userID, rawAadhaar, rawPAN, req.Filenames)
	}

	extracted := make(domain.ExtractedDataMap, len(req.ExtractedData))
	for docType, identity := range req.ExtractedData {
		identity.IsDuplicate = isDuplicate
		extracted[docType] = identity
	}

	now := time.Now()
	record := &domain.KYCRequest{
		ID:              uuid.New(),
		UserID:          userID,
		UserInfo:        req.UserInfo,
		ExtractedData:   extracted,
		AadhaarHash:     fp.AadhaarHash,
		PANHash:         fp.PANHash,
		FraudInfo:       fraudInfo,
		Documents:       req.Filenames,
		Status:          status,
		RejectionReason: rejectionReason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("KYC request submitted", map[string]interface{}{
		"request_id":   record.ID.String(),
		"user_id":      userID,
		"status":       string(status),
		"is_duplicate": isDuplicate,
	})

	return &domain.SubmitKYCResponse{
		Message:     "KYC submitted successfully",
		IsDuplicate: isDuplicate,
		KYC:         record,
	}, nil
}

// primaryIdentifiers picks the first extractable Aadhaar and PAN across all
// submitted document records.
func primaryIdentifiers(extracted domain.ExtractedDataMap) (aadhaar, pan string) {
	for _, identity := range extracted {
		if aadhaar == "" && identity.Aadhaar != "" && identity.Aadhaar != domain.FieldUnavailable {
			aadhaar = identity.Aadhaar
		}
		if pan == "" && identity.PAN != "" && identity.PAN != domain.FieldUnavailable {
			pan = identity.PAN
		}
	}
	return aadhaar, pan
}

// duplicateFraudInfo builds the synthetic high-severity entry appended when a
// duplicate fingerprint is found, naming which identifiers matched.
func duplicateFraudInfo(fp domain.IdentityFingerprint) domain.FraudInfo {
	var flags []string
	if fp.AadhaarHash != nil {
		flags = append(flags, domain.AMLFlagDuplicateAadhaar)
	}
	if fp.PANHash != nil {
		flags = append(flags, domain.AMLFlagDuplicatePAN)
	}

	return domain.FraudInfo{
		Type:       "aml",
		FraudScore: decimal.NewFromInt(100),
		RiskLevel:  "high",
		Reasons:    []string{duplicateFraudReason},
		AMLFlags:   flags,
		AMLAction:  domain.AMLActionAutoFlag,
	}
}

// sweepConflictingDocuments is the secondary, document-level duplicate sweep:
// it matches the user's documents by raw identifier fields or filename and
// holds back the two most recent conflicting submissions. A single match is
// too weak a signal to act on. Failures are logged, never propagated — the
// sweep is a side effect of the fingerprint decision, not a detector of its
// own.
func (s *Service) sweepConflictingDocuments(ctx context.Context, userID, aadhaar, pan string, filenames []string) {
	docs, err := s.docs.FindConflicting(ctx, userID, aadhaar, pan, filenames)
	if err != nil {
		s.logger.Error("Document duplicate sweep failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	if len(docs) <= 1 {
		s.logger.Info("Document duplicate sweep found nothing to hold back", map[string]interface{}{
			"user_id": userID,
			"matches": len(docs),
		})
		return
	}

	toReject := docs[len(docs)-2:]
	ids := make([]uuid.UUID, len(toReject))
	for i, doc := range toReject {
		ids[i] = doc.ID
	}

	if err := s.docs.UpdateStatusByIDs(ctx, ids, domain.KYCStatusAMLRejected, duplicateRejectionReason); err != nil {
		s.logger.Error("Failed to reject conflicting documents", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	s.logger.Info("Rejected most recent conflicting documents", map[string]interface{}{
		"user_id":  userID,
		"rejected": len(ids),
	})
}

// ==============================================================================
// ADMIN DECISIONS
// ==============================================================================

// ListRequests returns KYC requests for the admin panel.
func (s *Service) ListRequests(ctx context.Context, limit, offset int) ([]*domain.KYCRequest, error) {
	return s.repo.FindAll(ctx, limit, offset)
}

// GetRequest returns one KYC request.
func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*domain.KYCRequest, error) {
	return s.repo.FindByID(ctx, id)
}

// ApplyAction applies an admin decision (approve, reject, flag-review) to a
// pending request and fans the new status out to the request's documents.
// Status transitions only happen from pending.
func (s *Service) ApplyAction(ctx context.Context, id uuid.UUID, action, actor string) (*domain.KYCRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != domain.KYCStatusPending {
		return nil, kycerrors.ErrKYCAlreadyProcessed
	}

	switch action {
	case "approve":
		req.Status = domain.KYCStatusApproved
	case "reject":
		req.Status = domain.KYCStatusRejected
	case "flag-review":
		req.Status = domain.KYCStatusManualReview
		req.ManualReviewFlaggedBy = actor
		now := time.Now()
		req.ManualReviewAt = &now
	default:
		return nil, kycerrors.ErrInvalidKYCAction
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, err
	}

	// Best-effort fan-out: the documents listed on the request follow its
	// status, but a fan-out failure never undoes the decision.
	if len(req.Documents) > 0 {
		updated, err := s.docs.UpdateStatusByFilenames(ctx, req.UserID, req.Documents, req.Status)
		if err != nil {
			s.logger.Error("Document status fan-out failed", map[string]interface{}{
				"request_id": req.ID.String(),
				"user_id":    req.UserID,
				"error":      err.Error(),
			})
		} else {
			s.logger.Info("Document statuses updated", map[string]interface{}{
				"request_id": req.ID.String(),
				"user_id":    req.UserID,
				"updated":    updated,
			})
		}
	}

	s.logger.Info("KYC action applied", map[string]interface{}{
		"request_id": req.ID.String(),
		"action":     action,
		"actor":      actor,
		"status":     string(req.Status),
	})

	return req, nil
}
