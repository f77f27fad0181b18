package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimReviewTransitions(t *testing.T) {
	sm := NewClaimReviewMachine()

	assert.True(t, sm.CanTransition("submitted", "under_review"))
	assert.True(t, sm.CanTransition("under_review", "approved"))
	assert.True(t, sm.CanTransition("under_review", "rejected"))
	assert.True(t, sm.CanTransition("approved", "rejected"))

	assert.False(t, sm.CanTransition("submitted", "approved"))
	assert.False(t, sm.CanTransition("rejected", "approved"))
	assert.False(t, sm.CanTransition("unknown", "approved"))
}

func TestListingTransitions(t *testing.T) {
	sm := NewListingMachine()

	assert.True(t, sm.CanTransition("active", "partial"))
	assert.True(t, sm.CanTransition("active", "sold"))
	assert.True(t, sm.CanTransition("partial", "sold"))
	assert.True(t, sm.CanTransition("partial", "cancelled"))

	// terminal states
	assert.False(t, sm.CanTransition("sold", "active"))
	assert.False(t, sm.CanTransition("cancelled", "active"))
	assert.Empty(t, sm.GetAllowedTransitions("sold"))
}
