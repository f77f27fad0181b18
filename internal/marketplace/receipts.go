package marketplace

import (
	"context"
	"fmt"
	"time"

	"carbon-market/marketplace-backend/pkg/pdf"
	"carbon-market/marketplace-backend/pkg/storage"
)

const receiptURLTTL = 15 * time.Minute

// ReceiptStore renders purchase receipts and keeps them in object storage.
type ReceiptStore struct {
	gen    pdf.Generator
	s3     storage.S3Client
	bucket string
}

func NewReceiptStore(gen pdf.Generator, s3 storage.S3Client, bucket string) *ReceiptStore {
	return &ReceiptStore{gen: gen, s3: s3, bucket: bucket}
}

// Store renders the receipt PDF and uploads it, returning the object key.
func (r *ReceiptStore) Store(ctx context.Context, purchase *Purchase, listing *Listing) (string, error) {
	doc, err := r.gen.PurchaseReceipt(ctx, pdf.Receipt{
		ReceiptID:    purchase.ID.String(),
		ListingID:    listing.ID.String(),
		ClaimID:      listing.ClaimID.String(),
		BuyerName:    purchase.BuyerID.String(),
		SellerName:   listing.SellerID.String(),
		Quantity:     purchase.Quantity,
		PricePerUnit: listing.PricePerCredit,
		Total:        purchase.Total,
		PurchasedAt:  purchase.PurchasedAt,
	})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("receipts/%s/%s.pdf", purchase.BuyerID, purchase.ID)
	if err := r.s3.Upload(ctx, r.bucket, key, doc); err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	return key, nil
}

// URL returns a short-lived download link for a stored receipt.
func (r *ReceiptStore) URL(ctx context.Context, key string) (string, error) {
	return r.s3.GetPresignedURL(ctx, r.bucket, key, receiptURLTTL)
}
