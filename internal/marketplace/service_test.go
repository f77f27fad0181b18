package marketplace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/claims"
	"carbon-market/marketplace-backend/internal/validation"
	"carbon-market/marketplace-backend/pkg/util"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateGuarded(ctx context.Context, listing *Listing, approvedCredits float64) error {
	args := m.Called(ctx, listing, approvedCredits)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Listing), args.Error(1)
}

func (m *MockRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Listing, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]Listing), args.Error(1)
}

func (m *MockRepository) ListOpen(ctx context.Context, page util.Pagination) ([]Listing, int64, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) ListedQuantity(ctx context.Context, claimID uuid.UUID) (float64, error) {
	args := m.Called(ctx, claimID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, listing *Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockRepository) Fill(ctx context.Context, listingID uuid.UUID, purchase *Purchase) (*Listing, error) {
	args := m.Called(ctx, listingID, purchase)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Listing), args.Error(1)
}

func (m *MockRepository) PurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Purchase, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).([]Purchase), args.Error(1)
}

func (m *MockRepository) AllListings(ctx context.Context) ([]Listing, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Listing), args.Error(1)
}

// MockClaimSource is a mock implementation of the ClaimSource interface
type MockClaimSource struct {
	mock.Mock
}

func (m *MockClaimSource) GetClaim(ctx context.Context, id uuid.UUID) (*claims.CreditClaim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*claims.CreditClaim), args.Error(1)
}

func issuedClaim(id, owner uuid.UUID, approved float64) *claims.CreditClaim {
	return &claims.CreditClaim{
		ID:      id,
		OwnerID: owner,
		Status:  claims.StatusApproved,
		CreditIssuance: claims.CreditIssuance{
			CreditsIssued:   true,
			ApprovedCredits: approved,
		},
	}
}

func newTestService(repo Repository, src ClaimSource) Service {
	return NewService(repo, src, nil, nil, nil, zap.NewNop())
}

func TestRemainingCapacity(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	seller := uuid.New()
	claimID := uuid.New()

	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, seller, 100), nil)
	mockRepo.On("ListedQuantity", ctx, claimID).Return(40.0, nil)

	capacity, err := service.RemainingCapacity(ctx, seller, claimID)

	assert.NoError(t, err)
	assert.Equal(t, 60.0, capacity)
}

func TestRemainingCapacityForeignClaim(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	claimID := uuid.New()
	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, uuid.New(), 100), nil)

	_, err := service.RemainingCapacity(ctx, uuid.New(), claimID)

	assert.ErrorIs(t, err, ErrNotClaimOwner)
	mockRepo.AssertNotCalled(t, "ListedQuantity", mock.Anything, mock.Anything)
}

func TestRemainingCapacityFloorsAtZero(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	seller := uuid.New()
	claimID := uuid.New()

	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, seller, 100), nil)
	mockRepo.On("ListedQuantity", ctx, claimID).Return(120.0, nil)

	capacity, err := service.RemainingCapacity(ctx, seller, claimID)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, capacity)
}

func TestCreateListing(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	seller := uuid.New()
	claimID := uuid.New()

	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, seller, 100), nil)
	mockRepo.On("CreateGuarded", ctx, mock.AnythingOfType("*marketplace.Listing"), 100.0).Return(nil)

	listing, err := service.CreateListing(ctx, seller, validation.CreateListingPayload{
		ClaimID:       claimID.String(),
		CreditsToSell: 60,
	})

	assert.NoError(t, err)
	assert.Equal(t, StatusActive, listing.Status)
	assert.Equal(t, 60.0, listing.Quantity)
	assert.Equal(t, 60.0, listing.Remaining)
	assert.Equal(t, defaultPricePerCredit, listing.PricePerCredit)
	mockRepo.AssertExpectations(t)
}

func TestCreateListingRejectsForeignClaim(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	claimID := uuid.New()
	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, uuid.New(), 100), nil)

	_, err := service.CreateListing(ctx, uuid.New(), validation.CreateListingPayload{
		ClaimID:       claimID.String(),
		CreditsToSell: 10,
	})

	assert.ErrorIs(t, err, ErrNotClaimOwner)
	mockRepo.AssertNotCalled(t, "CreateGuarded", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateListingRejectsUnissuedClaim(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	seller := uuid.New()
	claimID := uuid.New()
	claim := issuedClaim(claimID, seller, 100)
	claim.CreditIssuance.CreditsIssued = false
	mockClaims.On("GetClaim", ctx, claimID).Return(claim, nil)

	_, err := service.CreateListing(ctx, seller, validation.CreateListingPayload{
		ClaimID:       claimID.String(),
		CreditsToSell: 10,
	})

	assert.ErrorIs(t, err, ErrClaimNotEligible)
}

func TestCreateListingSurfacesOversell(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	seller := uuid.New()
	claimID := uuid.New()
	mockClaims.On("GetClaim", ctx, claimID).Return(issuedClaim(claimID, seller, 100), nil)
	mockRepo.On("CreateGuarded", ctx, mock.AnythingOfType("*marketplace.Listing"), 100.0).Return(ErrOversell)

	_, err := service.CreateListing(ctx, seller, validation.CreateListingPayload{
		ClaimID:       claimID.String(),
		CreditsToSell: 80,
	})

	assert.ErrorIs(t, err, ErrOversell)
}

func TestCreateListingRejectsInvalidPayload(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)

	_, err := service.CreateListing(context.Background(), uuid.New(), validation.CreateListingPayload{
		ClaimID:       "not-a-uuid",
		CreditsToSell: 0,
	})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	mockClaims.AssertNotCalled(t, "GetClaim", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateGuarded", mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyComputesTotalAndFills(t *testing.T) {
	mockRepo := new(MockRepository)
	mockClaims := new(MockClaimSource)
	service := newTestService(mockRepo, mockClaims)
	ctx := context.Background()

	buyer := uuid.New()
	listingID := uuid.New()
	listing := &Listing{ID: listingID, Status: StatusActive, Quantity: 60, Remaining: 60, PricePerCredit: 10}

	mockRepo.On("GetByID", ctx, listingID).Return(listing, nil)
	mockRepo.On("Fill", ctx, listingID, mock.MatchedBy(func(p *Purchase) bool {
		return p.Quantity == 25 && p.Total == 250 && p.BuyerID == buyer
	})).Return(&Listing{ID: listingID, Status: StatusPartial, Remaining: 35}, nil)

	purchase, err := service.Buy(ctx, buyer, validation.BuyPayload{
		ListingID: listingID.String(),
		Quantity:  25,
	})

	assert.NoError(t, err)
	assert.Equal(t, 250.0, purchase.Total)
	mockRepo.AssertExpectations(t)
}

func TestBuyUnknownListing(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, new(MockClaimSource))
	ctx := context.Background()

	listingID := uuid.New()
	mockRepo.On("GetByID", ctx, listingID).Return(nil, nil)

	_, err := service.Buy(ctx, uuid.New(), validation.BuyPayload{ListingID: listingID.String(), Quantity: 5})
	assert.ErrorIs(t, err, ErrListingNotFound)
	mockRepo.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelEnforcesOwnershipAndState(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, new(MockClaimSource))
	ctx := context.Background()

	seller := uuid.New()
	listingID := uuid.New()

	// foreign seller
	mockRepo.On("GetByID", ctx, listingID).Return(&Listing{ID: listingID, SellerID: uuid.New(), Status: StatusActive}, nil).Once()
	_, err := service.Cancel(ctx, seller, listingID)
	assert.ErrorIs(t, err, ErrNotSeller)

	// already sold
	mockRepo.On("GetByID", ctx, listingID).Return(&Listing{ID: listingID, SellerID: seller, Status: StatusSold}, nil).Once()
	_, err = service.Cancel(ctx, seller, listingID)
	assert.ErrorIs(t, err, ErrListingClosed)

	// happy path from partial
	mockRepo.On("GetByID", ctx, listingID).Return(&Listing{ID: listingID, SellerID: seller, Status: StatusPartial}, nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(l *Listing) bool {
		return l.Status == StatusCancelled
	})).Return(nil)
	listing, err := service.Cancel(ctx, seller, listingID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, listing.Status)
}

func TestBrowseFallsBackToDatabase(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, new(MockClaimSource))
	ctx := context.Background()

	open := []Listing{{ID: uuid.New(), Status: StatusActive}}
	mockRepo.On("ListOpen", ctx, mock.AnythingOfType("util.Pagination")).Return(open, int64(1), nil)

	listings, pagination, err := service.Browse(ctx, "", 1, 20)
	assert.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, int64(1), pagination.Total)
}
