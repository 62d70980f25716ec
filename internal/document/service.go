// ==============================================================================
// DOCUMENT SERVICE - internal/document/service.go
// ==============================================================================
// Bookkeeping for uploaded document images: one row per upload, carrying the
// extracted identity fields and a status that follows the owning KYC request.
// ==============================================================================

package document

import (
	"context"
	"time"

	"kycintake/internal/domain"
	"kycintake/pkg/logger"

	"github.com/google/uuid"
)

// Repository defines the persistence the document service needs.
type Repository interface {
	Create(ctx context.Context, doc *domain.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	FindByUserID(ctx context.Context, userID string) ([]*domain.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service implements document bookkeeping.
type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// Record creates the bookkeeping row for a verified upload. Rows start as
// pending when the document passed verification and rejected otherwise; later
// KYC decisions fan their status out over these rows.
func (s *Service) Record(ctx context.Context, userID, filename, docType string, extracted domain.ExtractedIdentity, valid bool, reason string) (*domain.Document, error) {
	status := domain.KYCStatusPending
	rejectionReason := ""
	if !valid {
		status = domain.KYCStatusRejected
		rejectionReason = reason
	}

	doc := &domain.Document{
		ID:              uuid.New(),
		UserID:          userID,
		Filename:        filename,
		DocType:         docType,
		ExtractedData:   extracted,
		Status:          status,
		RejectionReason: rejectionReason,
		UploadedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Document recorded", map[string]interface{}{
		"document_id": doc.ID.String(),
		"user_id":     userID,
		"filename":    filename,
		"status":      string(status),
	})

	return doc, nil
}

// ListByUser returns a user's document records, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// Get returns one document record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return s.repo.FindByID(ctx, id)
}

// Delete removes a document record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Document deleted", map[string]interface{}{
		"document_id": id.String(),
	})
	return nil
}
