// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// KYC request errors
	ErrKYCRequestNotFound    = errors.New("kyc request not found")
	ErrKYCAlreadyProcessed   = errors.New("kyc request already processed")
	ErrInvalidKYCAction      = errors.New("invalid kyc action")
	ErrMissingUserID         = errors.New("user id missing in token payload")
	ErrDuplicateCheckFailed  = errors.New("duplicate check failed")

	// Document errors
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDocumentImageRequired = errors.New("document image is required")
	ErrDocumentTypeRequired  = errors.New("document type is required")

	// Collaborator errors
	ErrOCRFailed          = errors.New("ocr processing failed")
	ErrScoringFailed      = errors.New("fraud scoring failed")
	ErrScorerOutputNotJSON = errors.New("fraud scorer produced unparseable output")

	// Fraud alert / audit errors
	ErrFraudAlertNotFound = errors.New("fraud alert not found")
	ErrVerdictNotFound    = errors.New("verification verdict not found")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
