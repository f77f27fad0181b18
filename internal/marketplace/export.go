package marketplace

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildListingsWorkbook renders the full listing book as an XLSX workbook for
// the admin export endpoint.
func BuildListingsWorkbook(listings []Listing) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Listings"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Listing ID", "Claim", "Seller", "Status", "Quantity", "Remaining", "Price/Credit", "Created"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, l := range listings {
		values := []interface{}{
			l.ID.String(),
			l.ClaimID.String(),
			l.SellerID.String(),
			string(l.Status),
			l.Quantity,
			l.Remaining,
			l.PricePerCredit,
			l.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	return f, nil
}
