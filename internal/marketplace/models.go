package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusPartial   ListingStatus = "partial"
	StatusSold      ListingStatus = "sold"
	StatusCancelled ListingStatus = "cancelled"
)

// CurrentlyListed reports whether a listing still counts against its claim's
// sellable quantity.
func (s ListingStatus) CurrentlyListed() bool {
	return s == StatusActive || s == StatusPartial
}

// Listing is an offer to sell credits derived from exactly one credit claim.
// The JSON names follow the marketplace API contract: the claim reference is
// exposed as "creditClaim".
type Listing struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClaimID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"creditClaim"`
	SellerID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"sellerId"`
	Status         ListingStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Quantity       float64       `gorm:"not null" json:"quantity"`
	Remaining      float64       `gorm:"not null" json:"remaining"`
	PricePerCredit float64       `gorm:"not null" json:"pricePerCredit"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Purchase records a buy against a listing. Partial fills leave the listing
// in "partial" until the remaining quantity reaches zero.
type Purchase struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ListingID   uuid.UUID `gorm:"type:uuid;not null;index" json:"listingId"`
	BuyerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"buyerId"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	Total       float64   `gorm:"not null" json:"total"`
	ReceiptKey  string    `json:"-"`
	PurchasedAt time.Time `json:"purchasedAt"`
}
