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
	"github.com/lib/pq"
)

// DocumentRepository implements uploaded-document bookkeeping persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (
			id, user_id, filename, doc_type, extracted_data,
			status, rejection_reason, status_updated_at, uploaded_at
		) VALUES (
			:id, :user_id, :filename, :doc_type, :extracted_data,
			:status, :rejection_reason, :status_updated_at, :uploaded_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, doc)
	if err != nil {
		return errors.Wrap(err, "failed to create document")
	}

	return nil
}

// FindByID returns one document record.
func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	query := `SELECT * FROM documents WHERE id = $1`

	err := r.db.GetContext(ctx, &doc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find document")
	}

	return &doc, nil
}

// FindByUserID returns a user's documents, newest first.
func (r *DocumentRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	query := `
		SELECT * FROM documents
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`

	err := r.db.SelectContext(ctx, &docs, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}

	return docs, nil
}

// FindConflicting returns the user's documents whose raw extracted Aadhaar or
// PAN matches, or whose filename is in the submitted list, ordered oldest
// first. This is the secondary document-level duplicate sweep; it works on
// raw (unhashed) fields over a different table than the fingerprint check.
func (r *DocumentRepository) FindConflicting(ctx context.Context, userID, aadhaar, pan string, filenames []string) ([]*domain.Document, error) {
	args := []interface{}{userID}
	var clauses []string

	if aadhaar != "" && aadhaar != domain.FieldUnavailable {
		args = append(args, aadhaar)
		clauses = append(clauses, fmt.Sprintf("extracted_data->>'aadhaar' = $%d", len(args)))
	}
	if pan != "" && pan != domain.FieldUnavailable {
		args = append(args, pan)
		clauses = append(clauses, fmt.Sprintf("extracted_data->>'pan' = $%d", len(args)))
	}
	if len(filenames) > 0 {
		args = append(args, pq.Array(filenames))
		clauses = append(clauses, fmt.Sprintf("filename = ANY($%d)", len(args)))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `
		SELECT * FROM documents
		WHERE user_id = $1 AND (` + strings.Join(clauses, " OR ") + `)
		ORDER BY uploaded_at ASC
	`

	var docs []*domain.Document
	err := r.db.SelectContext(ctx, &docs, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find conflicting documents")
	}

	return docs, nil
}

// UpdateStatusByIDs sets the status of the given documents.
func (r *DocumentRepository) UpdateStatusByIDs(ctx context.Context, ids []uuid.UUID, status domain.KYCStatus, reason string) error {
	query := `
		UPDATE documents
		SET status = $1, rejection_reason = $2, status_updated_at = $3
		WHERE id = ANY($4)
	`

	_, err := r.db.ExecContext(ctx, query, status, reason, time.Now(), pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "failed to update document status")
	}

	return nil
}

// UpdateStatusByFilenames fans a KYC request's status change out to the
// documents it lists. Best effort: the caller logs failures and moves on.
func (r *DocumentRepository) UpdateStatusByFilenames(ctx context.Context, userID string, filenames []string, status domain.KYCStatus) (int64, error) {
	query := `
		UPDATE documents
		SET status = $1, status_updated_at = $2
		WHERE user_id = $3 AND filename = ANY($4)
	`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), userID, pq.Array(filenames))
	if err != nil {
		return 0, errors.Wrap(err, "failed to fan out document status")
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read fan-out row count")
	}
	return updated, nil
}

// Delete removes a document record.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read delete row count")
	}
	if affected == 0 {
		return errors.ErrDocumentNotFound
	}

	return nil
}
