package postgres

import (
	"context"

	"kycintake/internal/domain"
	"kycintake/pkg/errors"

	"github.com/jmoiron/sqlx"
)

// FraudAlertRepository implements fraud alert persistence. Alerts are an
// append-only log; nothing updates or deletes them.
type FraudAlertRepository struct {
	db *sqlx.DB
}

func NewFraudAlertRepository(db *sqlx.DB) *FraudAlertRepository {
	return &FraudAlertRepository{db: db}
}

// Create appends a new fraud alert.
func (r *FraudAlertRepository) Create(ctx context.Context, alert *domain.FraudAlert) error {
	query := `
		INSERT INTO fraud_alerts (
			id, case_id, risk_level, reason, document_type,
			user_id, aml_flags, aml_action, confidence, created_at
		) VALUES (
			:id, :case_id, :risk_level, :reason, :document_type,
			:user_id, :aml_flags, :aml_action, :confidence, :created_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, alert)
	if err != nil {
		return errors.Wrap(err, "failed to create fraud alert")
	}

	return nil
}

// FindAll returns fraud alerts, newest first.
func (r *FraudAlertRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.FraudAlert, error) {
	var alerts []*domain.FraudAlert
	query := `
		SELECT * FROM fraud_alerts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	err := r.db.SelectContext(ctx, &alerts, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list fraud alerts")
	}

	return alerts, nil
}

// CountAll returns the total number of fraud alerts.
func (r *FraudAlertRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fraud_alerts`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count fraud alerts")
	}
	return total, nil
}
