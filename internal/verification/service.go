// ==============================================================================
// VERIFICATION SERVICE - internal/verification/service.go
// ==============================================================================
// Live-verification orchestration: OCR, field extraction, duplicate check,
// fraud scoring, AML rules, and the side-effect trail (fraud alert, audit
// log, temp-file cleanup).
// ==============================================================================

package verification

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"kycintake/internal/aml"
	"kycintake/internal/domain"
	"kycintake/internal/duplicate"
	"kycintake/internal/extract"
	"kycintake/internal/fingerprint"
	"kycintake/internal/ocr"
	"kycintake/internal/scorer"
	"kycintake/internal/similarity"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// validScoreCeiling is the highest fraud score still considered valid.
var validScoreCeiling = decimal.NewFromInt(70)

const verdictCacheTTL = 24 * time.Hour

// AlertRepository appends fraud alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.FraudAlert) error
}

// AuditRepository appends audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// VerdictCache keeps recent verdicts retrievable by case ID.
type VerdictCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// Input carries one verification request.
type Input struct {
	ImagePath    string
	Filename     string
	DocumentType string
	UserName     string
	UserID       string
	ActorName    string
	IPAddress    string
}

// Service sequences the verification pipeline. Each request is handled
// independently; the only shared state is the persistent store.
type Service struct {
	ocr      ocr.Client
	scorer   scorer.Client
	detector *duplicate.Detector
	rules    *aml.RuleEngine
	alerts   AlertRepository
	audits   AuditRepository
	cache    VerdictCache
	language string
	logger   logger.Logger
}

func NewService(
	ocrClient ocr.Client,
	scorerClient scorer.Client,
	detector *duplicate.Detector,
	rules *aml.RuleEngine,
	alerts AlertRepository,
	audits AuditRepository,
	cache VerdictCache,
	language string,
	log logger.Logger,
) *Service {
	return &Service{
		ocr:      ocrClient,
		scorer:   scorerClient,
		detector: detector,
		rules:    rules,
		alerts:   alerts,
		audits:   audits,
		cache:    cache,
		language: language,
		logger:   log,
	}
}

// VerifyDocument runs the full pipeline over an uploaded document image.
//
// Collaborator failures (OCR, scorer, duplicate-store query) are fatal for
// the request: no partial verdict is returned and no alert or audit row is
// written. Side-effect failures (alert, audit, cache) are logged and
// swallowed. The transient upload is deleted regardless of outcome.
func (s *Service) VerifyDocument(ctx context.Context, in Input) (*domain.VerificationResult, error) {
	defer s.removeUpload(in.ImagePath)

	rawText, err := s.ocr.Recognize(ctx, in.ImagePath, s.language)
	if err != nil {
		return nil, err
	}

	extracted := extract.Identity(rawText)

	fp := fingerprint.FromIdentifiers(extracted.Aadhaar, extracted.PAN)
	isDuplicate, _, err := s.detector.Check(ctx, fp)
	if err != nil {
		return nil, err
	}
	extracted.IsDuplicate = isDuplicate

	nameOnDoc := ""
	if extracted.Name != domain.FieldUnavailable {
		nameOnDoc = extracted.Name
	}

	reasons := []string{}
	nameSimilarity := 1.0
	if in.UserName != "" && nameOnDoc != "" {
		nameSimilarity = similarity.Score(in.UserName, nameOnDoc)
	} else {
		reasons = append(reasons, "Missing name for comparison")
	}

	features := scorer.FeatureVector{
		IsDuplicate:         isDuplicate,
		AadhaarNumber:       sentinelToEmpty(extracted.Aadhaar),
		PANNumber:           sentinelToEmpty(extracted.PAN),
		NameSimilarityScore: nameSimilarity,
		NameOnDoc:           nameOnDoc,
		NameInput:           in.UserName,
		Type:                in.DocumentType,
	}

	result, err := s.scorer.Score(ctx, features, in.ImagePath)
	if err != nil {
		return nil, err
	}

	valid := result.FraudScore.LessThanOrEqual(validScoreCeiling)
	status := "Valid Document"
	if !valid {
		status = "Invalid Document"
	}
	reasons = append(reasons, result.Reasons...)

	verdict := s.rules.Apply(aml.RuleInput{
		Extracted:   extracted,
		IsDuplicate: isDuplicate,
		FraudScore:  result.FraudScore,
		RiskLevel:   result.RiskLevel,
	})

	caseID := fmt.Sprintf("FR-%d", time.Now().UnixMilli())

	// Escalate when the model risk is elevated or an AML rule demands action.
	if result.RiskLevel != string(domain.RiskLevelLow) ||
		verdict.Action == domain.AMLActionAutoFlag ||
		verdict.Action == domain.AMLActionManualReview {
		s.createAlert(ctx, caseID, in, result, verdict, reasons)
	}

	s.writeAudit(ctx, in, result, verdict, valid)

	response := &domain.VerificationResult{
		ID:             uuid.New(),
		CaseID:         caseID,
		Timestamp:      time.Now(),
		Valid:          valid,
		Status:         status,
		FraudScore:     result.FraudScore,
		RiskLevel:      result.RiskLevel,
		Reason:         reasons,
		ExtractedData:  extracted,
		OCRTextSnippet: snippet(rawText, 200),
		IsDuplicate:    isDuplicate,
		AMLFlags:       verdict.Flags,
		AMLAction:      verdict.Action,
		AMLNotes:       verdict.Notes,
	}

	s.cacheVerdict(ctx, response)

	s.logger.Info("Document verification completed", map[string]interface{}{
		"case_id":      caseID,
		"user_id":      in.UserID,
		"valid":        valid,
		"fraud_score":  result.FraudScore.String(),
		"risk_level":   result.RiskLevel,
		"aml_action":   string(verdict.Action),
		"is_duplicate": isDuplicate,
	})

	return response, nil
}

// GetVerdict returns a recent verdict by case ID from the cache.
func (s *Service) GetVerdict(ctx context.Context, caseID string) (*domain.VerificationResult, error) {
	if s.cache == nil {
		return nil, kycerrors.ErrVerdictNotFound
	}

	var result domain.VerificationResult
	if err := s.cache.Get(ctx, verdictKey(caseID), &result); err != nil {
		return nil, kycerrors.ErrVerdictNotFound
	}
	return &result, nil
}

// ==============================================================================
// SIDE EFFECTS
// ==============================================================================

// createAlert writes a FraudAlert. Best effort: a failure is logged but the
// request still returns its verdict.
func (s *Service) createAlert(ctx context.Context, caseID string, in Input, result *scorer.Result, verdict domain.AMLVerdict, reasons []string) {
	combined := make([]string, 0, len(reasons)+len(verdict.Flags)+len(verdict.Notes))
	combined = append(combined, reasons...)
	combined = append(combined, verdict.Flags...)
	combined = append(combined, verdict.Notes...)

	userID := in.UserID
	if userID == "" {
		userID = "anonymous"
	}

	alert := &domain.FraudAlert{
		ID:           uuid.New(),
		CaseID:       caseID,
		RiskLevel:    domain.RiskLevel(result.RiskLevel),
		Reason:       strings.Join(combined, ", "),
		DocumentType: in.DocumentType,
		UserID:       userID,
		AMLFlags:     verdict.Flags,
		AMLAction:    verdict.Action,
		Confidence:   confidenceFromScore(result.FraudScore),
		CreatedAt:    time.Now(),
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("Failed to create fraud alert", map[string]interface{}{
			"case_id": caseID,
			"error":   err.Error(),
		})
	}
}

// writeAudit appends the per-attempt audit entry. Best effort.
func (s *Service) writeAudit(ctx context.Context, in Input, result *scorer.Result, verdict domain.AMLVerdict, valid bool) {
	amlReasons := "No AML flags"
	if len(verdict.Flags) > 0 {
		amlReasons = "AML Auto Flag triggered: " + strings.Join(verdict.Flags, ", ")
	}

	var status domain.AuditStatus
	switch {
	case verdict.Action == domain.AMLActionAutoFlag:
		status = domain.AuditStatusError
	case result.RiskLevel == string(domain.RiskLevelHigh):
		status = domain.AuditStatusWarning
	case valid:
		status = domain.AuditStatusSuccess
	default:
		status = domain.AuditStatusError
	}

	actor := in.ActorName
	if actor == "" {
		actor = "System"
	}
	ip := in.IPAddress
	if ip == "" {
		ip = "Internal"
	}

	entry := &domain.AuditLog{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    "Fraud Verification",
		Status:    status,
		Details:   fmt.Sprintf("Fraud Score: %s%% | Risk: %s | %s", result.FraudScore.String(), result.RiskLevel, amlReasons),
		IPAddress: ip,
		CreatedAt: time.Now(),
	}

	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit log", map[string]interface{}{
			"actor": actor,
			"error": err.Error(),
		})
	}
}

func (s *Service) cacheVerdict(ctx context.Context, result *domain.VerificationResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, verdictKey(result.CaseID), result, verdictCacheTTL); err != nil {
		s.logger.Warn("Failed to cache verdict", map[string]interface{}{
			"case_id": result.CaseID,
			"error":   err.Error(),
		})
	}
}

// removeUpload deletes the transient uploaded image. Runs on every path,
// including collaborator failures.
func (s *Service) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete uploaded file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// ==============================================================================
// HELPERS
// ==============================================================================

// confidenceFromScore derives alert confidence as 100 - fraudScore, rounded
// and clipped to [0,100].
func confidenceFromScore(score decimal.Decimal) decimal.Decimal {
	confidence := decimal.NewFromInt(100).Sub(score).Round(0)
	if confidence.IsNegative() {
		return decimal.Zero
	}
	if confidence.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return confidence
}

func sentinelToEmpty(value string) string {
	if value == domain.FieldUnavailable {
		return ""
	}
	return value
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func verdictKey(caseID string) string {
	return "verdict:" + caseID
}
