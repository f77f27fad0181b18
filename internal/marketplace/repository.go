package marketplace

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbon-market/marketplace-backend/pkg/util"
)

// ErrOversell is returned when a create would push the total listed quantity
// for a claim past its approved credits. This is the authoritative, server
// side enforcement; the client-side eligibility filter is only a guard.
var ErrOversell = errors.New("listing would exceed the claim's approved credits")

type Repository interface {
	// CreateGuarded inserts the listing inside a transaction that locks the
	// claim's listings and rejects with ErrOversell when the non-cancelled
	// total plus the new quantity exceeds approvedCredits.
	CreateGuarded(ctx context.Context, listing *Listing, approvedCredits float64) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Listing, error)
	ListOpen(ctx context.Context, page util.Pagination) ([]Listing, int64, error)
	ListedQuantity(ctx context.Context, claimID uuid.UUID) (float64, error)
	Update(ctx context.Context, listing *Listing) error

	// Fill atomically decrements the listing's remaining quantity and records
	// the purchase, moving the status to partial or sold.
	Fill(ctx context.Context, listingID uuid.UUID, purchase *Purchase) (*Listing, error)
	PurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Purchase, error)
	AllListings(ctx context.Context) ([]Listing, error)
}

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingClosed   = errors.New("listing is not open")
	ErrInsufficient    = errors.New("not enough credits remaining on listing")
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateGuarded(ctx context.Context, listing *Listing, approvedCredits float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listed float64
		err := tx.Model(&Listing{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("claim_id = ? AND status IN ?", listing.ClaimID, []ListingStatus{StatusActive, StatusPartial, StatusSold}).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&listed).Error
		if err != nil {
			return err
		}
		if listed+listing.Quantity > approvedCredits {
			return ErrOversell
		}
		return tx.Create(listing).Error
	})
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *gormRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Listing, error) {
	var out []Listing
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) ListOpen(ctx context.Context, page util.Pagination) ([]Listing, int64, error) {
	q := r.db.WithContext(ctx).Model(&Listing{}).
		Where("status IN ?", []ListingStatus{StatusActive, StatusPartial})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Listing
	err := q.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&out).Error
	return out, total, err
}

func (r *gormRepository) ListedQuantity(ctx context.Context, claimID uuid.UUID) (float64, error) {
	var listed float64
	err := r.db.WithContext(ctx).Model(&Listing{}).
		Where("claim_id = ? AND status IN ?", claimID, []ListingStatus{StatusActive, StatusPartial, StatusSold}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&listed).Error
	return listed, err
}

func (r *gormRepository) Update(ctx context.Context, listing *Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *gormRepository) Fill(ctx context.Context, listingID uuid.UUID, purchase *Purchase) (*Listing, error) {
	var filled Listing
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&listing, "id = ?", listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if err := applyFill(&listing, purchase.Quantity); err != nil {
			return err
		}
		if err := tx.Save(&listing).Error; err != nil {
			return err
		}
		if err := tx.Create(purchase).Error; err != nil {
			return err
		}
		filled = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &filled, nil
}

// remainderEpsilon absorbs float64 residue from repeated fractional fills so
// a fully bought-out listing settles as sold rather than stranding in partial.
const remainderEpsilon = 1e-9

func applyFill(listing *Listing, quantity float64) error {
	if !listing.Status.CurrentlyListed() {
		return ErrListingClosed
	}
	if quantity > listing.Remaining+remainderEpsilon {
		return ErrInsufficient
	}

	listing.Remaining -= quantity
	if listing.Remaining <= remainderEpsilon {
		listing.Remaining = 0
		listing.Status = StatusSold
	} else {
		listing.Status = StatusPartial
	}
	return nil
}

func (r *gormRepository) PurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Purchase, error) {
	var out []Purchase
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("purchased_at DESC").
		Find(&out).Error
	return out, err
}

func (r *gormRepository) AllListings(ctx context.Context) ([]Listing, error) {
	var out []Listing
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}
