package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==============================================================================
// REQUEST / RESPONSE PAYLOADS
// ==============================================================================

// SubmitKYCRequest is the client payload for a KYC submission.
type SubmitKYCRequest struct {
	UserInfo      UserInfo         `json:"userInfo"`
	ExtractedData ExtractedDataMap `json:"extractedData" validate:"required"`
	FraudInfo     FraudInfoList    `json:"fraudInfo"`
	Filenames     []string         `json:"filenames"`
}

// SubmitKYCResponse is returned after a submission is persisted.
type SubmitKYCResponse struct {
	Message     string      `json:"message"`
	IsDuplicate bool        `json:"isDuplicate"`
	KYC         *KYCRequest `json:"kyc"`
}

// VerificationResult is the full verdict returned by the live-verification
// path. Field names mirror the admin panel contract.
type VerificationResult struct {
	ID             uuid.UUID         `json:"id"`
	CaseID         string            `json:"caseId"`
	Timestamp      time.Time         `json:"timestamp"`
	Valid          bool              `json:"valid"`
	Status         string            `json:"status"`
	FraudScore     decimal.Decimal   `json:"fraudScore"`
	RiskLevel      string            `json:"riskLevel"`
	Reason         []string          `json:"reason"`
	ExtractedData  ExtractedIdentity `json:"extractedData"`
	OCRTextSnippet string            `json:"ocrTextSnippet"`
	IsDuplicate    bool              `json:"isDuplicate"`
	AMLFlags       []string          `json:"aml_flags"`
	AMLAction      AMLAction         `json:"aml_action"`
	AMLNotes       []string          `json:"aml_notes"`
}

// KYCActionRequest names an admin decision on a pending request.
type KYCActionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject flag-review"`
}
