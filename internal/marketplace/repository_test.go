package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyFillFractionalResidue(t *testing.T) {
	listing := &Listing{Status: StatusActive, Quantity: 0.3, Remaining: 0.3}

	// Three 0.1 fills leave a float64 residue that must still settle as sold.
	assert.NoError(t, applyFill(listing, 0.1))
	assert.Equal(t, StatusPartial, listing.Status)
	assert.NoError(t, applyFill(listing, 0.1))
	assert.Equal(t, StatusPartial, listing.Status)
	assert.NoError(t, applyFill(listing, 0.1))

	assert.Equal(t, StatusSold, listing.Status)
	assert.Equal(t, 0.0, listing.Remaining)
}

func TestApplyFillExactBuyout(t *testing.T) {
	listing := &Listing{Status: StatusActive, Quantity: 50, Remaining: 50}

	assert.NoError(t, applyFill(listing, 50))
	assert.Equal(t, StatusSold, listing.Status)
	assert.Equal(t, 0.0, listing.Remaining)
}

func TestApplyFillRejectsOverdraw(t *testing.T) {
	listing := &Listing{Status: StatusPartial, Quantity: 50, Remaining: 10}

	assert.ErrorIs(t, applyFill(listing, 10.5), ErrInsufficient)
	assert.Equal(t, 10.0, listing.Remaining)
	assert.Equal(t, StatusPartial, listing.Status)
}

func TestApplyFillRejectsClosedListing(t *testing.T) {
	listing := &Listing{Status: StatusCancelled, Quantity: 50, Remaining: 50}

	assert.ErrorIs(t, applyFill(listing, 10), ErrListingClosed)
}
