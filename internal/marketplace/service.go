package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/claims"
	"carbon-market/marketplace-backend/internal/metrics"
	"carbon-market/marketplace-backend/internal/validation"
	"carbon-market/marketplace-backend/pkg/util"
	"carbon-market/marketplace-backend/pkg/workflows"
)

var (
	ErrNotClaimOwner    = errors.New("claim belongs to another user")
	ErrClaimNotEligible = errors.New("claim is not approved with issued credits")
	ErrNotSeller        = errors.New("listing belongs to another seller")
	ErrNotBuyer         = errors.New("purchase belongs to another buyer")
	ErrNoReceipt        = errors.New("no receipt available for this purchase")
)

// ValidationError carries normalized field violations for a rejected request.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("marketplace request failed validation (%d fields)", len(e.Fields))
}

// ClaimSource is the slice of the claims service the marketplace consults.
type ClaimSource interface {
	GetClaim(ctx context.Context, id uuid.UUID) (*claims.CreditClaim, error)
}

// Notifier pushes marketplace events to connected dashboards.
type Notifier interface {
	Broadcast(event string, payload interface{})
}

type Service interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, payload validation.CreateListingPayload) (*Listing, error)
	MyListings(ctx context.Context, sellerID uuid.UUID) ([]Listing, error)
	RemainingCapacity(ctx context.Context, sellerID uuid.UUID, claimID uuid.UUID) (float64, error)
	Browse(ctx context.Context, query string, page, pageSize int) ([]Listing, util.Pagination, error)
	Buy(ctx context.Context, buyerID uuid.UUID, payload validation.BuyPayload) (*Purchase, error)
	Cancel(ctx context.Context, sellerID uuid.UUID, listingID uuid.UUID) (*Listing, error)
	MyPurchases(ctx context.Context, buyerID uuid.UUID) ([]Purchase, error)
	ReceiptURL(ctx context.Context, buyerID uuid.UUID, purchase *Purchase) (string, error)
	AllListings(ctx context.Context) ([]Listing, error)
	ReindexAll(ctx context.Context) error
	CloseRevoked(ctx context.Context) (int, error)
}

const defaultPricePerCredit = 12.50

type marketService struct {
	repo     Repository
	claimSrc ClaimSource
	indexer  Indexer // nil when search is disabled
	notifier Notifier
	receipts *ReceiptStore
	machine  *workflows.StateMachine
	logger   *zap.Logger
}

func NewService(repo Repository, claimSrc ClaimSource, indexer Indexer, notifier Notifier, receipts *ReceiptStore, logger *zap.Logger) Service {
	return &marketService{
		repo:     repo,
		claimSrc: claimSrc,
		indexer:  indexer,
		notifier: notifier,
		receipts: receipts,
		machine:  workflows.NewListingMachine(),
		logger:   logger,
	}
}

func (s *marketService) CreateListing(ctx context.Context, sellerID uuid.UUID, payload validation.CreateListingPayload) (*Listing, error) {
	if fields := validation.Evaluate(payload); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	claimID, err := uuid.Parse(payload.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("parse claim id: %w", err)
	}

	claim, err := s.claimSrc.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.OwnerID != sellerID {
		return nil, ErrNotClaimOwner
	}
	if claim.Status != claims.StatusApproved ||
		!claim.CreditIssuance.CreditsIssued ||
		claim.CreditIssuance.ApprovedCredits <= 0 {
		return nil, ErrClaimNotEligible
	}

	price := payload.PricePerCredit
	if price <= 0 {
		price = defaultPricePerCredit
	}

	listing := &Listing{
		ID:             uuid.New(),
		ClaimID:        claimID,
		SellerID:       sellerID,
		Status:         StatusActive,
		Quantity:       payload.CreditsToSell,
		Remaining:      payload.CreditsToSell,
		PricePerCredit: price,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.repo.CreateGuarded(ctx, listing, claim.CreditIssuance.ApprovedCredits); err != nil {
		if errors.Is(err, ErrOversell) {
			metrics.ListingRejected("oversell")
		}
		return nil, err
	}

	metrics.ListingCreated()
	s.index(ctx, listing)
	s.broadcast("listing.created", listing)
	return listing, nil
}

func (s *marketService) MyListings(ctx context.Context, sellerID uuid.UUID) ([]Listing, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

// RemainingCapacity reports how many credits of a claim the seller can still
// list: approved credits minus every non-cancelled listing, floored at zero.
func (s *marketService) RemainingCapacity(ctx context.Context, sellerID uuid.UUID, claimID uuid.UUID) (float64, error) {
	claim, err := s.claimSrc.GetClaim(ctx, claimID)
	if err != nil {
		return 0, err
	}
	if claim.OwnerID != sellerID {
		return 0, ErrNotClaimOwner
	}

	listed, err := s.repo.ListedQuantity(ctx, claimID)
	if err != nil {
		return 0, err
	}
	capacity := claim.CreditIssuance.ApprovedCredits - listed
	if capacity < 0 {
		capacity = 0
	}
	return capacity, nil
}

func (s *marketService) Browse(ctx context.Context, query string, page, pageSize int) ([]Listing, util.Pagination, error) {
	if query != "" && s.indexer != nil {
		ids, err := s.indexer.Search(ctx, query, 100)
		if err == nil {
			out := make([]Listing, 0, len(ids))
			for _, id := range ids {
				listing, err := s.repo.GetByID(ctx, id)
				if err == nil && listing != nil && listing.Status.CurrentlyListed() {
					out = append(out, *listing)
				}
			}
			return out, util.NewPagination(1, len(out)+1, int64(len(out))), nil
		}
		s.logger.Warn("search backend failed, falling back to database", zap.Error(err))
	}

	p := util.NewPagination(page, pageSize, 0)
	listings, total, err := s.repo.ListOpen(ctx, p)
	if err != nil {
		return nil, util.Pagination{}, err
	}
	return listings, util.NewPagination(page, pageSize, total), nil
}

func (s *marketService) Buy(ctx context.Context, buyerID uuid.UUID, payload validation.BuyPayload) (*Purchase, error) {
	if fields := validation.Evaluate(payload); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	listingID, err := uuid.Parse(payload.ListingID)
	if err != nil {
		return nil, fmt.Errorf("parse listing id: %w", err)
	}

	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	purchase := &Purchase{
		ID:          uuid.New(),
		ListingID:   listingID,
		BuyerID:     buyerID,
		Quantity:    payload.Quantity,
		Total:       payload.Quantity * listing.PricePerCredit,
		PurchasedAt: time.Now(),
	}

	filled, err := s.repo.Fill(ctx, listingID, purchase)
	if err != nil {
		return nil, err
	}

	if s.receipts != nil {
		key, err := s.receipts.Store(ctx, purchase, filled)
		if err != nil {
			s.logger.Warn("receipt generation failed", zap.String("purchase", purchase.ID.String()), zap.Error(err))
		} else {
			purchase.ReceiptKey = key
		}
	}

	metrics.PurchaseCompleted(purchase.Quantity)
	s.index(ctx, filled)
	s.broadcast("listing.purchased", filled)
	return purchase, nil
}

func (s *marketService) Cancel(ctx context.Context, sellerID uuid.UUID, listingID uuid.UUID) (*Listing, error) {
	listing, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.SellerID != sellerID {
		return nil, ErrNotSeller
	}
	if !s.machine.CanTransition(string(listing.Status), string(StatusCancelled)) {
		return nil, ErrListingClosed
	}

	listing.Status = StatusCancelled
	listing.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}

	if s.indexer != nil {
		if err := s.indexer.RemoveListing(ctx, listing.ID); err != nil {
			s.logger.Warn("deindex listing failed", zap.Error(err))
		}
	}
	s.broadcast("listing.cancelled", listing)
	return listing, nil
}

func (s *marketService) MyPurchases(ctx context.Context, buyerID uuid.UUID) ([]Purchase, error) {
	return s.repo.PurchasesByBuyer(ctx, buyerID)
}

func (s *marketService) ReceiptURL(ctx context.Context, buyerID uuid.UUID, purchase *Purchase) (string, error) {
	if purchase.BuyerID != buyerID {
		return "", ErrNotBuyer
	}
	if s.receipts == nil || purchase.ReceiptKey == "" {
		return "", ErrNoReceipt
	}
	return s.receipts.URL(ctx, purchase.ReceiptKey)
}

func (s *marketService) AllListings(ctx context.Context) ([]Listing, error) {
	return s.repo.AllListings(ctx)
}

// ReindexAll refreshes the search index from the database. Run by the
// scheduler, tolerant of a disabled indexer.
func (s *marketService) ReindexAll(ctx context.Context) error {
	if s.indexer == nil {
		return nil
	}
	listings, err := s.repo.AllListings(ctx)
	if err != nil {
		return err
	}
	for i := range listings {
		if err := s.indexer.IndexListing(ctx, &listings[i]); err != nil {
			s.logger.Warn("reindex listing failed", zap.String("listing", listings[i].ID.String()), zap.Error(err))
		}
	}
	return nil
}

// CloseRevoked cancels open listings whose backing claim has been revoked
// since listing. Run by the scheduler.
func (s *marketService) CloseRevoked(ctx context.Context) (int, error) {
	listings, err := s.repo.AllListings(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range listings {
		l := &listings[i]
		if !l.Status.CurrentlyListed() {
			continue
		}
		claim, err := s.claimSrc.GetClaim(ctx, l.ClaimID)
		if err != nil {
			s.logger.Warn("claim lookup failed during revocation sweep",
				zap.String("listing", l.ID.String()), zap.Error(err))
			continue
		}
		if claim.Status != claims.StatusRejected {
			continue
		}

		l.Status = StatusCancelled
		l.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, l); err != nil {
			s.logger.Warn("cancel revoked listing failed",
				zap.String("listing", l.ID.String()), zap.Error(err))
			continue
		}
		if s.indexer != nil {
			if err := s.indexer.RemoveListing(ctx, l.ID); err != nil {
				s.logger.Warn("deindex listing failed", zap.Error(err))
			}
		}
		s.broadcast("listing.cancelled", l)
		closed++
	}
	return closed, nil
}

func (s *marketService) index(ctx context.Context, listing *Listing) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexListing(ctx, listing); err != nil {
		s.logger.Warn("index listing failed", zap.String("listing", listing.ID.String()), zap.Error(err))
	}
}

func (s *marketService) broadcast(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, payload)
	}
}
