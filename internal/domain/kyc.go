// Package domain defines the core business entities for the KYC intake system.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ==============================================================================
// ENUMS & STATUS TYPES
// ==============================================================================

// FieldUnavailable is the sentinel for fields the extractor could not recover.
const FieldUnavailable = "N/A"

// DocumentClass is the document type detected by sniffing the raw OCR text.
type DocumentClass string

const (
	DocumentClassAadhaar DocumentClass = "aadhaar"
	DocumentClassPAN     DocumentClass = "pan"
	DocumentClassUnknown DocumentClass = "unknown"
)

// KYCStatus represents the KYC request workflow status. Documents linked to a
// request carry the same enum so their state stays in sync with the request.
type KYCStatus string

const (
	KYCStatusPending      KYCStatus = "pending"
	KYCStatusApproved     KYCStatus = "approved"
	KYCStatusRejected     KYCStatus = "rejected"
	KYCStatusManualReview KYCStatus = "manual_review"
	// KYCStatusAMLRejected is set synchronously at submission time when a
	// duplicate fingerprint is found, pre-empting manual admin action.
	KYCStatusAMLRejected KYCStatus = "aml_rejected"
)

// RiskLevel is the fraud scorer's coarse risk classification.
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "High"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelLow    RiskLevel = "Low"
)

// AMLAction is the single decision produced by the AML rule engine.
type AMLAction string

const (
	AMLActionClear        AMLAction = "clear"
	AMLActionManualReview AMLAction = "manual_review"
	AMLActionAutoFlag     AMLAction = "auto_flag"
)

// AML rule flags.
const (
	AMLFlagDuplicateAadhaar   = "duplicate_aadhaar"
	AMLFlagDuplicatePAN       = "duplicate_pan"
	AMLFlagBlacklistedAddress = "blacklisted_address"
	AMLFlagHighFraudRisk      = "high_fraud_risk"
)

// AuditStatus classifies an audit log entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusWarning AuditStatus = "warning"
	AuditStatusError   AuditStatus = "error"
	AuditStatusInfo    AuditStatus = "info"
)

// ==============================================================================
// EXTRACTION & FINGERPRINT TYPES
// ==============================================================================

// ExtractedIdentity is the structured identity record recovered from raw OCR
// text. Fields the heuristics could not recover hold FieldUnavailable.
type ExtractedIdentity struct {
	Name          string        `json:"name"`
	DOB           string        `json:"dob"`
	Gender        string        `json:"gender"`
	Aadhaar       string        `json:"aadhaar"`
	PAN           string        `json:"pan"`
	Address       string        `json:"address"`
	DocumentClass DocumentClass `json:"document_type"`
	IsDuplicate   bool          `json:"is_duplicate"`

	// Alternate address keys occasionally supplied by client-side extraction.
	// The AML blacklist rule folds all of them into one combined address.
	PresentAddress   string `json:"present_address,omitempty"`
	PermanentAddress string `json:"permanent_address,omitempty"`
	Residence        string `json:"residence,omitempty"`
	Addr             string `json:"addr,omitempty"`
}

// AddressCandidates returns every non-empty address-like field on the record.
func (e ExtractedIdentity) AddressCandidates() []string {
	candidates := make([]string, 0, 5)
	for _, v := range []string{e.Address, e.PresentAddress, e.PermanentAddress, e.Residence, e.Addr} {
		if v != "" && v != FieldUnavailable {
			candidates = append(candidates, v)
		}
	}
	return candidates
}

// IdentityFingerprint holds one-way digests of the normalized identifiers.
// A hash is nil iff the source identifier was empty or FieldUnavailable, so
// duplicate lookup never matches on absent values.
type IdentityFingerprint struct {
	AadhaarHash *string `json:"aadhaar_hash"`
	PANHash     *string `json:"pan_hash"`
}

// HasAny reports whether at least one identifier hash is present.
func (f IdentityFingerprint) HasAny() bool {
	return f.AadhaarHash != nil || f.PANHash != nil
}

// ==============================================================================
// PERSISTED MODELS
// ==============================================================================

// UserInfo is the self-declared applicant information on a submission.
type UserInfo struct {
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
	Gender   string `json:"gender"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// FraudInfo is one fraud/AML assessment attached to a KYC request.
type FraudInfo struct {
	Type       string          `json:"type"`
	FraudScore decimal.Decimal `json:"fraudScore"`
	RiskLevel  string          `json:"riskLevel"`
	Reasons    []string        `json:"reasons"`
	AMLFlags   []string        `json:"amlFlags"`
	AMLAction  AMLAction       `json:"amlAction"`
}

// KYCRequest represents one identity-verification submission.
type KYCRequest struct {
	ID                    uuid.UUID        `db:"id" json:"id"`
	UserID                string           `db:"user_id" json:"userId"`
	UserInfo              UserInfo         `db:"user_info" json:"userInfo"`
	ExtractedData         ExtractedDataMap `db:"extracted_data" json:"extractedData"`
	AadhaarHash           *string          `db:"aadhaar_hash" json:"aadhaarHash"`
	PANHash               *string          `db:"pan_hash" json:"panHash"`
	FraudInfo             FraudInfoList    `db:"fraud_info" json:"fraudInfo"`
	Documents             pq.StringArray   `db:"documents" json:"documents"`
	Status                KYCStatus        `db:"status" json:"status"`
	RejectionReason       string           `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ManualReviewFlaggedBy string           `db:"manual_review_flagged_by" json:"manualReviewFlaggedBy,omitempty"`
	ManualReviewAt        *time.Time       `db:"manual_review_at" json:"manualReviewAt,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updatedAt"`
}

// Document is the bookkeeping record for one uploaded file.
type Document struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"userId"`
	Filename        string            `db:"filename" json:"filename"`
	DocType         string            `db:"doc_type" json:"docType"`
	ExtractedData   ExtractedIdentity `db:"extracted_data" json:"extractedData"`
	Status          KYCStatus         `db:"status" json:"status"`
	RejectionReason string            `db:"rejection_reason" json:"rejectionReason,omitempty"`
	StatusUpdatedAt *time.Time        `db:"status_updated_at" json:"statusUpdatedAt,omitempty"`
	UploadedAt      time.Time         `db:"uploaded_at" json:"uploadedAt"`
}

// FraudAlert is an append-only escalation record emitted when a verification
// crosses a risk threshold.
type FraudAlert struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	CaseID       string          `db:"case_id" json:"caseId"`
	RiskLevel    RiskLevel       `db:"risk_level" json:"riskLevel"`
	Reason       string          `db:"reason" json:"reason"`
	DocumentType string          `db:"document_type" json:"documentType"`
	UserID       string          `db:"user_id" json:"userId"`
	AMLFlags     pq.StringArray  `db:"aml_flags" json:"amlFlags"`
	AMLAction    AMLAction       `db:"aml_action" json:"amlAction"`
	Confidence   decimal.Decimal `db:"confidence" json:"confidence"`
	CreatedAt    time.Time       `db:"created_at" json:"timestamp"`
}

// AuditLog is one append-only entry per verification attempt.
type AuditLog struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Actor     string      `db:"actor" json:"user"`
	Action    string      `db:"action" json:"action"`
	Status    AuditStatus `db:"status" json:"status"`
	Details   string      `db:"details" json:"details"`
	IPAddress string      `db:"ip_address" json:"ipAddress"`
	CreatedAt time.Time   `db:"created_at" json:"timestamp"`
}

// AMLVerdict is the transient result of the AML rule engine. It is folded
// into FraudAlert, AuditLog, and KYCRequest fields rather than persisted.
type AMLVerdict struct {
	Flags  []string  `json:"amlFlags"`
	Action AMLAction `json:"amlAction"`
	Notes  []string  `json:"notes"`
}

// HasFlag reports whether the verdict carries the given rule flag.
func (v AMLVerdict) HasFlag(flag string) bool {
	for _, f := range v.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
