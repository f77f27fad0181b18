package claims

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/validation"
	"carbon-market/marketplace-backend/pkg/security"
	"carbon-market/marketplace-backend/pkg/storage"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, claim *CreditClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*CreditClaim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditClaim), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]CreditClaim, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]CreditClaim), args.Error(1)
}

func (m *MockRepository) ListByStatus(ctx context.Context, status ClaimStatus) ([]CreditClaim, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]CreditClaim), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, claim *CreditClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

// in-memory stand-ins for the storage gateways

type memS3 struct {
	objects map[string][]byte
}

func (s *memS3) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	b, _ := io.ReadAll(body)
	s.objects[bucket+"/"+key] = b
	return nil
}

func (s *memS3) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.objects[bucket+"/"+key])), nil
}

func (s *memS3) Delete(ctx context.Context, bucket, key string) error {
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *memS3) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

type memIPFS struct {
	fail bool
	pins int
}

func (p *memIPFS) PinFile(ctx context.Context, body io.Reader) (string, error) {
	if p.fail {
		return "", storage.ErrIPFSUnavailable
	}
	p.pins++
	return "bafytestcid", nil
}

func (p *memIPFS) UnpinFile(ctx context.Context, cid string) error { return nil }

func (p *memIPFS) CatFile(ctx context.Context, cid string) (io.ReadCloser, error) {
	return nil, storage.ErrIPFSUnavailable
}

func newTestService(repo Repository, ipfs *memIPFS) Service {
	store := NewEvidenceStore(&memS3{objects: map[string][]byte{}}, ipfs, security.NewValidator(), "evidence", zap.NewNop())
	return NewService(repo, store)
}

func validPayload() validation.SubmitClaimPayload {
	return validation.SubmitClaimPayload{
		ProjectID:      uuid.New().String(),
		VintageYear:    2024,
		ClaimedCredits: 100,
		CreditingStart: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		CreditingEnd:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Methodology:    "VM0007",
	}
}

func TestSubmitClaimStoresEvidence(t *testing.T) {
	mockRepo := new(MockRepository)
	ipfs := &memIPFS{}
	service := newTestService(mockRepo, ipfs)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.AnythingOfType("*claims.CreditClaim")).Return(nil)

	claim, err := service.SubmitClaim(ctx, SubmitClaimRequest{
		Payload:      validPayload(),
		EvidenceName: "pdd.pdf",
		Evidence:     strings.NewReader("evidence bytes"),
	}, uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, StatusSubmitted, claim.Status)
	assert.False(t, claim.CreditIssuance.CreditsIssued)
	assert.NotNil(t, claim.EvidenceCID)
	assert.NotEmpty(t, claim.EvidenceChecksum)
	assert.Equal(t, 1, ipfs.pins)
	mockRepo.AssertExpectations(t)
}

func TestSubmitClaimDegradesWithoutIPFS(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{fail: true})
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.AnythingOfType("*claims.CreditClaim")).Return(nil)

	claim, err := service.SubmitClaim(ctx, SubmitClaimRequest{
		Payload:      validPayload(),
		EvidenceName: "pdd.pdf",
		Evidence:     strings.NewReader("evidence bytes"),
	}, uuid.New())

	assert.NoError(t, err)
	assert.Nil(t, claim.EvidenceCID)
	assert.NotEmpty(t, claim.EvidenceChecksum)
}

func TestSubmitClaimRejectsInvalidPayload(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{})

	bad := validPayload()
	bad.ClaimedCredits = 0

	_, err := service.SubmitClaim(context.Background(), SubmitClaimRequest{Payload: bad}, uuid.New())

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewClaimFollowsStateMachine(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{})
	ctx := context.Background()
	id := uuid.New()
	reviewer := uuid.New()

	claim := &CreditClaim{ID: id, Status: StatusSubmitted}
	mockRepo.On("GetByID", ctx, id).Return(claim, nil)
	mockRepo.On("Update", ctx, mock.AnythingOfType("*claims.CreditClaim")).Return(nil)

	got, err := service.ReviewClaim(ctx, id, ActionStartReview, "", reviewer)
	assert.NoError(t, err)
	assert.Equal(t, StatusUnderReview, got.Status)

	// submitted -> approved is not a legal jump
	claim.Status = StatusSubmitted
	_, err = service.ReviewClaim(ctx, id, ActionApprove, "", reviewer)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestIssueCredits(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{})
	ctx := context.Background()
	id := uuid.New()
	reviewer := uuid.New()

	claim := &CreditClaim{ID: id, Status: StatusApproved, ClaimedCredits: 100}
	mockRepo.On("GetByID", ctx, id).Return(claim, nil)
	mockRepo.On("Update", ctx, mock.AnythingOfType("*claims.CreditClaim")).Return(nil)

	got, err := service.IssueCredits(ctx, id, 150, reviewer)
	assert.NoError(t, err)
	assert.True(t, got.CreditIssuance.CreditsIssued)
	// issuance is capped by the claimed amount
	assert.Equal(t, 100.0, got.CreditIssuance.ApprovedCredits)

	_, err = service.IssueCredits(ctx, id, 50, reviewer)
	assert.ErrorIs(t, err, ErrAlreadyIssued)
}

func TestIssueCreditsRequiresApprovedClaim(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{})
	ctx := context.Background()
	id := uuid.New()

	mockRepo.On("GetByID", ctx, id).Return(&CreditClaim{ID: id, Status: StatusUnderReview}, nil)

	_, err := service.IssueCredits(ctx, id, 50, uuid.New())
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestRevocationClearsIssuance(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, &memIPFS{})
	ctx := context.Background()
	id := uuid.New()

	claim := &CreditClaim{
		ID:             id,
		Status:         StatusApproved,
		CreditIssuance: CreditIssuance{CreditsIssued: true, ApprovedCredits: 80},
	}
	mockRepo.On("GetByID", ctx, id).Return(claim, nil)
	mockRepo.On("Update", ctx, mock.AnythingOfType("*claims.CreditClaim")).Return(nil)

	got, err := service.ReviewClaim(ctx, id, ActionReject, "audit failed", uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.False(t, got.CreditIssuance.CreditsIssued)
	assert.Zero(t, got.CreditIssuance.ApprovedCredits)
}
