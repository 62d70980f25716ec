// Package duplicate detects identity reuse across KYC submissions via
// hashed-identifier lookups.
package duplicate

import (
	"context"
	"fmt"

	"kycintake/internal/domain"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"
)

// RequestFinder is the slice of the KYC-request store the detector needs.
type RequestFinder interface {
	FindByFingerprint(ctx context.Context, fp domain.IdentityFingerprint) (*domain.KYCRequest, error)
}

// Detector answers whether a fingerprint already exists in the KYC store.
//
// The check-then-insert sequence around this detector is not transactionally
// isolated: two concurrent submissions of the same identity can both observe
// "no duplicate" and both insert. Strict exclusion would need a unique index
// on the fingerprint columns or a serialized check-and-insert at the store
// layer; callers must not rely on it under concurrent load.
type Detector struct {
	requests RequestFinder
	logger   logger.Logger
}

func NewDetector(requests RequestFinder, log logger.Logger) *Detector {
	return &Detector{
		requests: requests,
		logger:   log,
	}
}

// Check looks for any existing request sharing either identifier hash (OR
// semantics). When both hashes are absent no query is issued: a submission
// with no extractable identifiers cannot be flagged as a duplicate.
// A store failure propagates, since a submission cannot safely proceed
// without knowing its duplicate status.
func (d *Detector) Check(ctx context.Context, fp domain.IdentityFingerprint) (bool, *domain.KYCRequest, error) {
	if !fp.HasAny() {
		return false, nil, nil
	}

	existing, err := d.requests.FindByFingerprint(ctx, fp)
	if err != nil {
		return false, nil, fmt.Errorf("%w: %v", kycerrors.ErrDuplicateCheckFailed, err)
	}
	if existing == nil {
		return false, nil, nil
	}

	d.logger.Warn("Duplicate identity fingerprint detected", map[string]interface{}{
		"existing_request_id": existing.ID.String(),
		"existing_user_id":    existing.UserID,
	})
	return true, existing, nil
}
