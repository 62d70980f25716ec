package postgres

import (
	"context"

	"kycintake/internal/domain"
	"kycintake/pkg/errors"

	"github.com/jmoiron/sqlx"
)

// AuditLogRepository implements audit log persistence. One entry is written
// per verification attempt; the log is append-only.
type AuditLogRepository struct {
	db *sqlx.DB
}

func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create appends a new audit log entry.
func (r *AuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor, action, status, details, ip_address, created_at
		) VALUES (
			:id, :actor, :action, :status, :details, :ip_address, :created_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, log)
	if err != nil {
		return errors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// FindAll returns audit logs, newest first.
func (r *AuditLogRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	query := `
		SELECT * FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &logs, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit logs")
	}

	return logs, nil
}

// CountAll returns the total number of audit logs.
func (r *AuditLogRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count audit logs")
	}
	return total, nil
}
