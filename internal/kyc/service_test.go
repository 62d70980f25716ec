package kyc

import (
	"context"
	"testing"

	"kycintake/internal/domain"
	"kycintake/internal/duplicate"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==============================================================================
// MOCKS
// ==============================================================================

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, req *domain.KYCRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.KYCRequest, error) {
	args := m.Called(ctx, id)
	if req := args.Get(0); req != nil {
		return req.(*domain.KYCRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) FindAll(ctx context.Context, limit, offset int) ([]*domain.KYCRequest, error) {
	args := m.Called(ctx, limit, offset)
	if reqs := args.Get(0); reqs != nil {
		return reqs.([]*domain.KYCRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, req *domain.KYCRequest) error {
	return m.Called(ctx, req).Error(0)
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

type mockDocRepo struct {
	mock.Mock
}

func (m *mockDocRepo) FindConflicting(ctx context.Context, userID, aadhaar, pan string, filenames []string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID, aadhaar, pan, filenames)
	if docs := args.Get(0); docs != nil {
		return docs.([]*domain.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDocRepo) UpdateStatusByIDs(ctx context.Context, ids []uuid.UUID, status domain.KYCStatus, reason string) error {
	return m.Called(ctx, ids, status, reason).Error(0)
}

func (m *mockDocRepo) UpdateStatusByFilenames(ctx context.Context, userID string, filenames []string, status domain.KYCStatus) (int64, error) {
	args := m.Called(ctx, userID, filenames, status)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(finder *mockFinder, repo *mockRepo, docs *mockDocRepo) *Service {
	detector := duplicate.NewDetector(finder, logger.NewNop())
	return NewService(repo, docs, detector, logger.NewNop())
}

func submitRequest() *domain.SubmitKYCRequest {
	return &domain.SubmitKYCRequest{
		UserInfo: domain.UserInfo{FullName: "Ramesh Chandra Gupta"},
		ExtractedData: domain.ExtractedDataMap{
			"aadhaar": domain.ExtractedIdentity{
				Name:    "Ramesh Chandra Gupta",
				Aadhaar: "123456789012",
				PAN:     "N/A",
			},
		},
		Filenames: []string{"aadhaar-front.jpg"},
	}
}

// ==============================================================================
// SUBMISSION
// ==============================================================================

func TestSubmitNewIdentity(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(nil, nil)

	repo := new(mockRepo)
	var created *domain.KYCRequest
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.KYCRequest")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.KYCRequest) }).
		Return(nil)

	docs := new(mockDocRepo)

	service := newTestService(finder, repo, docs)
	response, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.NoError(t, err)
	assert.False(t, response.IsDuplicate)
	assert.Equal(t, "KYC submitted successfully", response.Message)

	require.NotNil(t, created)
	assert.Equal(t, domain.KYCStatusPending, created.Status)
	assert.Empty(t, created.RejectionReason)
	assert.NotNil(t, created.AadhaarHash)
	assert.Nil(t, created.PANHash)
	assert.Empty(t, created.FraudInfo)

	// A clean submission never touches the document sweep.
	docs.AssertNotCalled(t, "FindConflicting", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitDuplicateIsRejectedSynchronously(t *testing.T) {
	existing := &domain.KYCRequest{ID: uuid.New(), UserID: "earlier-user"}

	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).Return(existing, nil)

	repo := new(mockRepo)
	var created *domain.KYCRequest
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.KYCRequest")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.KYCRequest) }).
		Return(nil)

	docs := new(mockDocRepo)
	docs.On("FindConflicting", mock.Anything, "user-1", "123456789012", "", []string{"aadhaar-front.jpg"}).
		Return(nil, nil)

	service := newTestService(finder, repo, docs)
	response, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.NoError(t, err)
	assert.True(t, response.IsDuplicate)

	require.NotNil(t, created)
	assert.Equal(t, domain.KYCStatusAMLRejected, created.Status)
	assert.Equal(t, "AML Auto Flag triggered: Duplicate Aadhaar or PAN", created.RejectionReason)

	require.Len(t, created.FraudInfo, 1)
	info := created.FraudInfo[0]
	assert.Equal(t, "aml", info.Type)
	assert.True(t, info.FraudScore.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "high", info.RiskLevel)
	assert.Equal(t, domain.AMLActionAutoFlag, info.AMLAction)
	assert.Contains(t, info.AMLFlags, domain.AMLFlagDuplicateAadhaar)
	assert.NotContains(t, info.AMLFlags, domain.AMLFlagDuplicatePAN)
	assert.Contains(t, info.Reasons, "Duplicate Aadhaar or PAN found in existing KYC")

	for _, identity := range created.ExtractedData {
		assert.True(t, identity.IsDuplicate)
	}
}

func TestSubmitDuplicateSweepRejectsTwoMostRecent(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(&domain.KYCRequest{ID: uuid.New()}, nil)

	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	oldest := &domain.Document{ID: uuid.New()}
	middle := &domain.Document{ID: uuid.New()}
	newest := &domain.Document{ID: uuid.New()}

	docs := new(mockDocRepo)
	docs.On("FindConflicting", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.Document{oldest, middle, newest}, nil)
	docs.On("UpdateStatusByIDs", mock.Anything, []uuid.UUID{middle.ID, newest.ID}, domain.KYCStatusAMLRejected, mock.Anything).
		Return(nil)

	service := newTestService(finder, repo, docs)
	_, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.NoError(t, err)
	docs.AssertExpectations(t)
}

func TestSubmitDuplicateSweepSingleMatchIsKept(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(&domain.KYCRequest{ID: uuid.New()}, nil)

	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	docs := new(mockDocRepo)
	docs.On("FindConflicting", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.Document{{ID: uuid.New()}}, nil)

	service := newTestService(finder, repo, docs)
	_, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.NoError(t, err)
	docs.AssertNotCalled(t, "UpdateStatusByIDs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitSweepFailureDoesNotFailSubmission(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(&domain.KYCRequest{ID: uuid.New()}, nil)

	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	docs := new(mockDocRepo)
	docs.On("FindConflicting", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, kycerrors.New("db down"))

	service := newTestService(finder, repo, docs)
	response, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.NoError(t, err)
	assert.True(t, response.IsDuplicate)
}

func TestSubmitMissingUserID(t *testing.T) {
	service := newTestService(new(mockFinder), new(mockRepo), new(mockDocRepo))

	_, err := service.Submit(context.Background(), "", submitRequest())

	assert.True(t, kycerrors.Is(err, kycerrors.ErrMissingUserID))
}

func TestSubmitDuplicateCheckFailureAborts(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(nil, kycerrors.New("connection refused"))

	repo := new(mockRepo)
	service := newTestService(finder, repo, new(mockDocRepo))

	_, err := service.Submit(context.Background(), "user-1", submitRequest())

	require.Error(t, err)
	assert.True(t, kycerrors.Is(err, kycerrors.ErrDuplicateCheckFailed))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==============================================================================
// ADMIN DECISIONS
// ==============================================================================

func pendingRequest() *domain.KYCRequest {
	return &domain.KYCRequest{
		ID:        uuid.New(),
		UserID:    "user-1",
		Status:    domain.KYCStatusPending,
		Documents: []string{"aadhaar-front.jpg"},
	}
}

func TestApplyActionApprove(t *testing.T) {
	req := pendingRequest()

	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	repo.On("Update", mock.Anything, req).Return(nil)

	docs := new(mockDocRepo)
	docs.On("UpdateStatusByFilenames", mock.Anything, "user-1", []string{"aadhaar-front.jpg"}, domain.KYCStatusApproved).
		Return(int64(1), nil)

	service := newTestService(new(mockFinder), repo, docs)
	updated, err := service.ApplyAction(context.Background(), req.ID, "approve", "admin-1")

	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusApproved, updated.Status)
	docs.AssertExpectations(t)
}

func TestApplyActionFlagReviewStampsActor(t *testing.T) {
	req := pendingRequest()

	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	repo.On("Update", mock.Anything, req).Return(nil)

	docs := new(mockDocRepo)
	docs.On("UpdateStatusByFilenames", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(1), nil)

	service := newTestService(new(mockFinder), repo, docs)
	updated, err := service.ApplyAction(context.Background(), req.ID, "flag-review", "admin-1")

	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusManualReview, updated.Status)
	assert.Equal(t, "admin-1", updated.ManualReviewFlaggedBy)
	require.NotNil(t, updated.ManualReviewAt)
}

func TestApplyActionOnlyFromPending(t *testing.T) {
	req := pendingRequest()
	req.Status = domain.KYCStatusApproved

	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	service := newTestService(new(mockFinder), repo, new(mockDocRepo))
	_, err := service.ApplyAction(context.Background(), req.ID, "reject", "admin-1")

	assert.True(t, kycerrors.Is(err, kycerrors.ErrKYCAlreadyProcessed))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestApplyActionUnknownAction(t *testing.T) {
	req := pendingRequest()

	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)

	service := newTestService(new(mockFinder), repo, new(mockDocRepo))
	_, err := service.ApplyAction(context.Background(), req.ID, "escalate", "admin-1")

	assert.True(t, kycerrors.Is(err, kycerrors.ErrInvalidKYCAction))
}

func TestApplyActionFanOutFailureDoesNotUndoDecision(t *testing.T) {
	req := pendingRequest()

	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, req.ID).Return(req, nil)
	repo.On("Update", mock.Anything, req).Return(nil)

	docs := new(mockDocRepo)
	docs.On("UpdateStatusByFilenames", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), kycerrors.New("db down"))

	service := newTestService(new(mockFinder), repo, docs)
	updated, err := service.ApplyAction(context.Background(), req.ID, "reject", "admin-1")

	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusRejected, updated.Status)
}
