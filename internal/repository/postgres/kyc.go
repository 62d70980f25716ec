package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"kycintake/internal/domain"
	"kycintake/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// KYCRequestRepository implements KYC request persistence.
type KYCRequestRepository struct {
	db *sqlx.DB
}

func NewKYCRequestRepository(db *sqlx.DB) *KYCRequestRepository {
	return &KYCRequestRepository{db: db}
}

// Create inserts a new KYC request.
func (r *KYCRequestRepository) Create(ctx context.Context, req *domain.KYCRequest) error {
	query := `
		INSERT INTO kyc_requests (
			id, user_id, user_info, extracted_data, aadhaar_hash, pan_hash,
			fraud_info, documents, status, rejection_reason,
			manual_review_flagged_by, manual_review_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :user_info, :extracted_data, :aadhaar_hash, :pan_hash,
			:fraud_info, :documents, :status, :rejection_reason,
			:manual_review_flagged_by, :manual_review_at, :created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return errors.Wrap(err, "failed to create kyc request")
	}

	return nil
}

// FindByFingerprint returns the oldest request whose aadhaar hash OR pan hash
// equals the given fingerprint. Absent hashes are never matched; with no
// hashes at all, no query is issued.
func (r *KYCRequestRepository) FindByFingerprint(ctx context.Context, fp domain.IdentityFingerprint) (*domain.KYCRequest, error) {
	var clauses []string
	var args []interface{}

	if fp.AadhaarHash != nil {
		args = append(args, *fp.AadhaarHash)
		clauses = append(clauses, fmt.Sprintf("aadhaar_hash = $%d", len(args)))
	}
	if fp.PANHash != nil {
		args = append(args, *fp.PANHash)
		clauses = append(clauses, fmt.Sprintf("pan_hash = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `
		SELECT * FROM kyc_requests
		WHERE ` + strings.Join(clauses, " OR ") + `
		ORDER BY created_at ASC
		LIMIT 1
	`

	var req domain.KYCRequest
	err := r.db.GetContext(ctx, &req, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find kyc request by fingerprint")
	}

	return &req, nil
}

// FindByID returns one KYC request.
func (r *KYCRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.KYCRequest, error) {
	var req domain.KYCRequest
	query := `SELECT * FROM kyc_requests WHERE id = $1`

	err := r.db.GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrKYCRequestNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find kyc request")
	}

	return &req, nil
}

// FindAll returns KYC requests for the admin panel, newest first.
func (r *KYCRequestRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.KYCRequest, error) {
	var requests []*domain.KYCRequest
	query := `
		SELECT * FROM kyc_requests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &requests, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list kyc requests")
	}

	return requests, nil
}

// Update persists the decision fields mutated by admin actions.
func (r *KYCRequestRepository) Update(ctx context.Context, req *domain.KYCRequest) error {
	req.UpdatedAt = time.Now()
	query := `
		UPDATE kyc_requests
		SET status = :status,
		    rejection_reason = :rejection_reason,
		    manual_review_flagged_by = :manual_review_flagged_by,
		    manual_review_at = :manual_review_at,
		    updated_at = :updated_at
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return errors.Wrap(err, "failed to update kyc request")
	}

	return nil
}
