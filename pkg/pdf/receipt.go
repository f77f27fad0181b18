// Package pdf renders purchase receipts with gofpdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt carries the data printed on a purchase receipt.
type Receipt struct {
	ReceiptID    string
	ListingID    string
	ClaimID      string
	ProjectName  string
	BuyerName    string
	SellerName   string
	Quantity     float64
	PricePerUnit float64
	Total        float64
	PurchasedAt  time.Time
}

// Generator renders documents for the marketplace.
type Generator interface {
	PurchaseReceipt(ctx context.Context, r Receipt) (io.Reader, error)
}

type fpdfGenerator struct{}

func NewGenerator() Generator {
	return &fpdfGenerator{}
}

func (g *fpdfGenerator) PurchaseReceipt(ctx context.Context, r Receipt) (io.Reader, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 12, "Carbon Credit Purchase Receipt")
	doc.Ln(16)

	doc.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Receipt", r.ReceiptID},
		{"Date", r.PurchasedAt.UTC().Format("2006-01-02 15:04 UTC")},
		{"Listing", r.ListingID},
		{"Claim", r.ClaimID},
		{"Project", r.ProjectName},
		{"Seller", r.SellerName},
		{"Buyer", r.BuyerName},
		{"Quantity", fmt.Sprintf("%.2f credits", r.Quantity)},
		{"Price per credit", fmt.Sprintf("%.2f USD", r.PricePerUnit)},
		{"Total", fmt.Sprintf("%.2f USD", r.Total)},
	}
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(45, 8, row[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
	}

	doc.Ln(8)
	doc.SetFont("Helvetica", "I", 9)
	doc.MultiCell(0, 5, "Credits are backed 1:1 by tokens held at the time of listing. This receipt is generated by the marketplace and is not a registry retirement certificate.", "", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return &buf, nil
}
