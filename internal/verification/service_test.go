package verification

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kycintake/internal/aml"
	"kycintake/internal/domain"
	"kycintake/internal/duplicate"
	"kycintake/internal/scorer"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==============================================================================
// MOCKS
// ==============================================================================

type mockOCR struct {
	mock.Mock
}

func (m *mockOCR) Recognize(ctx context.Context, imagePath, language string) (string, error) {
	args := m.Called(ctx, imagePath, language)
	return args.String(0), args.Error(1)
}

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, features scorer.FeatureVector, imagePath string) (*scorer.Result, error) {
	args := m.Called(ctx, features, imagePath)
	if result := args.Get(0); result != nil {
		return result.(*scorer.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindByFingerprint(ctx context.Context, fp domain.IdentityFingerprint) (*domain.KYCRequest, error) {
	args := m.Called(ctx, fp)
	if req := args.Get(0); req != nil {
		return req.(*domain.KYCRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) Create(ctx context.Context, alert *domain.FraudAlert) error {
	return m.Called(ctx, alert).Error(0)
}

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

// ==============================================================================
// FIXTURES
// ==============================================================================

const aadhaarText = `Government of India UIDAI
To
Ramesh Chandra Gupta
S/O Suresh Gupta
House No 42, Gandhi Nagar
Jaipur 302001
01/01/1985
Male
1234 5678 9012`

type fixture struct {
	ocr     *mockOCR
	scorer  *mockScorer
	finder  *mockFinder
	alerts  *mockAlertRepo
	audits  *mockAuditRepo
	service *Service
}

func newFixture(t *testing.T, cache VerdictCache) *fixture {
	t.Helper()

	f := &fixture{
		ocr:    new(mockOCR),
		scorer: new(mockScorer),
		finder: new(mockFinder),
		alerts: new(mockAlertRepo),
		audits: new(mockAuditRepo),
	}

	detector := duplicate.NewDetector(f.finder, logger.NewNop())
	rules := aml.NewRuleEngine(aml.NewBlacklist("", logger.NewNop()), logger.NewNop())

	f.service = NewService(
		f.ocr, f.scorer, detector, rules,
		f.alerts, f.audits, cache,
		"eng", logger.NewNop(),
	)
	return f
}

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake image bytes"), 0o644))
	return path
}

func scoreResult(score int64, risk string, reasons ...string) *scorer.Result {
	return &scorer.Result{
		FraudScore: decimal.NewFromInt(score),
		RiskLevel:  risk,
		Reasons:    reasons,
	}
}

// ==============================================================================
// PIPELINE OUTCOMES
// ==============================================================================

func TestVerifyDocumentValidLowRisk(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(10, "Low"), nil)
	f.audits.On("Create", mock.Anything, mock.AnythingOfType("*domain.AuditLog")).Return(nil)

	result, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		Filename:     "upload.jpg",
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
		UserID:       "user-1",
	})

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Valid Document", result.Status)
	assert.Equal(t, domain.AMLActionClear, result.AMLAction)
	assert.Empty(t, result.AMLFlags)
	assert.Equal(t, "123456789012", result.ExtractedData.Aadhaar)
	assert.True(t, strings.HasPrefix(result.CaseID, "FR-"))
	assert.LessOrEqual(t, len(result.OCRTextSnippet), 200)

	// Low risk and clear verdict: no alert, but always an audit entry.
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.audits.AssertExpectations(t)

	audit := f.audits.Calls[0].Arguments.Get(1).(*domain.AuditLog)
	assert.Equal(t, "Fraud Verification", audit.Action)
	assert.Equal(t, domain.AuditStatusSuccess, audit.Status)
	assert.Contains(t, audit.Details, "No AML flags")

	// The transient upload is always removed.
	_, statErr := os.Stat(imagePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerifyDocumentScoreBoundary(t *testing.T) {
	tests := []struct {
		name       string
		score      int64
		wantValid  bool
		wantStatus string
	}{
		{"score 70 is valid", 70, true, "Valid Document"},
		{"score 71 is invalid", 71, false, "Invalid Document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			imagePath := tempImage(t)

			f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
			f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
			f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(tt.score, "Medium"), nil)
			f.alerts.On("Create", mock.Anything, mock.Anything).Return(nil)
			f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

			result, err := f.service.VerifyDocument(context.Background(), Input{
				ImagePath:    imagePath,
				DocumentType: "aadhaar",
				UserName:     "Ramesh Chandra Gupta",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantStatus, result.Status)
		})
	}
}

func TestVerifyDocumentHighRiskEscalates(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).
		Return(scoreResult(85, "High", "Image tampering suspected"), nil)
	f.alerts.On("Create", mock.Anything, mock.AnythingOfType("*domain.FraudAlert")).Return(nil)
	f.audits.On("Create", mock.Anything, mock.AnythingOfType("*domain.AuditLog")).Return(nil)

	result, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
		UserID:       "user-1",
	})

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, domain.AMLActionManualReview, result.AMLAction)
	assert.Contains(t, result.AMLFlags, domain.AMLFlagHighFraudRisk)
	assert.Contains(t, result.Reason, "Image tampering suspected")

	alert := f.alerts.Calls[0].Arguments.Get(1).(*domain.FraudAlert)
	assert.Equal(t, result.CaseID, alert.CaseID)
	assert.Equal(t, domain.RiskLevel("High"), alert.RiskLevel)
	assert.True(t, alert.Confidence.Equal(decimal.NewFromInt(15)), "confidence = 100 - score, got %s", alert.Confidence)
	assert.Contains(t, alert.Reason, "Image tampering suspected")
	assert.Contains(t, alert.Reason, domain.AMLFlagHighFraudRisk)

	audit := f.audits.Calls[0].Arguments.Get(1).(*domain.AuditLog)
	assert.Equal(t, domain.AuditStatusWarning, audit.Status)
	assert.Contains(t, audit.Details, "Fraud Score: 85%")
	assert.Contains(t, audit.Details, "AML Auto Flag triggered: "+domain.AMLFlagHighFraudRisk)
}

func TestVerifyDocumentDuplicateAutoFlags(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	existing := &domain.KYCRequest{UserID: "earlier-user"}
	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(existing, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(20, "Low"), nil)
	f.alerts.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
	})

	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.True(t, result.ExtractedData.IsDuplicate)
	assert.Equal(t, domain.AMLActionAutoFlag, result.AMLAction)
	assert.Contains(t, result.AMLFlags, domain.AMLFlagDuplicateAadhaar)

	// The scorer must see the duplicate feature.
	features := f.scorer.Calls[0].Arguments.Get(1).(scorer.FeatureVector)
	assert.True(t, features.IsDuplicate)

	// auto_flag maps to an error-status audit entry even at low model risk.
	audit := f.audits.Calls[0].Arguments.Get(1).(*domain.AuditLog)
	assert.Equal(t, domain.AuditStatusError, audit.Status)
}

func TestVerifyDocumentMissingNameSkipsComparison(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	// Unknown document text: no name is extracted.
	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return("illegible scan", nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(10, "Low"), nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
	})

	require.NoError(t, err)
	assert.Contains(t, result.Reason, "Missing name for comparison")

	// No identifiers extracted: the duplicate store is never queried.
	f.finder.AssertNotCalled(t, "FindByFingerprint", mock.Anything, mock.Anything)

	// The similarity default stands in for the missing comparison and the
	// sentinel never leaks into the feature vector.
	features := f.scorer.Calls[0].Arguments.Get(1).(scorer.FeatureVector)
	assert.Equal(t, 1.0, features.NameSimilarityScore)
	assert.Equal(t, "", features.NameOnDoc)
	assert.Equal(t, "", features.AadhaarNumber)
	assert.Equal(t, "", features.PANNumber)
}

// ==============================================================================
// FAILURE SEMANTICS
// ==============================================================================

func TestVerifyDocumentOCRFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return("", kycerrors.ErrOCRFailed)

	_, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
	})

	require.Error(t, err)
	assert.True(t, kycerrors.Is(err, kycerrors.ErrOCRFailed))

	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, statErr := os.Stat(imagePath)
	assert.True(t, os.IsNotExist(statErr), "upload must be deleted on failure")
}

func TestVerifyDocumentScorerFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(nil, kycerrors.ErrScoringFailed)

	_, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
	})

	require.Error(t, err)
	assert.True(t, kycerrors.Is(err, kycerrors.ErrScoringFailed))

	// No partial verdict: neither trail is written.
	f.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, statErr := os.Stat(imagePath)
	assert.True(t, os.IsNotExist(statErr), "upload must be deleted on failure")
}

func TestVerifyDocumentSideEffectFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(85, "High"), nil)
	f.alerts.On("Create", mock.Anything, mock.Anything).Return(kycerrors.New("alerts table locked"))
	f.audits.On("Create", mock.Anything, mock.Anything).Return(kycerrors.New("audit db down"))

	result, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
	})

	require.NoError(t, err)
	assert.False(t, result.Valid)
	f.alerts.AssertExpectations(t)
	f.audits.AssertExpectations(t)
}

func TestVerifyDocumentDuplicateCheckFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, kycerrors.New("connection refused"))

	_, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
	})

	require.Error(t, err)
	assert.True(t, kycerrors.Is(err, kycerrors.ErrDuplicateCheckFailed))
	f.scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
}

// ==============================================================================
// VERDICT CACHE
// ==============================================================================

func TestVerifyDocumentCachesVerdict(t *testing.T) {
	cache := new(mockCache)
	cache.On("Set", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "verdict:FR-")
	}), mock.Anything, verdictCacheTTL).Return(nil)

	f := newFixture(t, cache)
	imagePath := tempImage(t)

	f.ocr.On("Recognize", mock.Anything, imagePath, "eng").Return(aadhaarText, nil)
	f.finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)
	f.scorer.On("Score", mock.Anything, mock.Anything, imagePath).Return(scoreResult(10, "Low"), nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.VerifyDocument(context.Background(), Input{
		ImagePath:    imagePath,
		DocumentType: "aadhaar",
		UserName:     "Ramesh Chandra Gupta",
	})

	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestGetVerdictWithoutCache(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.GetVerdict(context.Background(), "FR-123")

	assert.True(t, kycerrors.Is(err, kycerrors.ErrVerdictNotFound))
}

func TestGetVerdictCacheMiss(t *testing.T) {
	cache := new(mockCache)
	cache.On("Get", mock.Anything, "verdict:FR-123", mock.Anything).Return(kycerrors.New("redis: nil"))

	f := newFixture(t, cache)

	_, err := f.service.GetVerdict(context.Background(), "FR-123")

	assert.True(t, kycerrors.Is(err, kycerrors.ErrVerdictNotFound))
}
