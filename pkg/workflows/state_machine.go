package workflows

// StateMachine enforces status transitions for domain records
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewClaimReviewMachine returns the state machine governing credit claim review
func NewClaimReviewMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"submitted":    {"under_review"},
			"under_review": {"approved", "rejected"},
			"approved":     {"rejected"}, // revocation after audit
			"rejected":     {},
		},
	}
}

// NewListingMachine returns the state machine governing marketplace listings
func NewListingMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"active":    {"partial", "sold", "cancelled"},
			"partial":   {"sold", "cancelled"},
			"sold":      {},
			"cancelled": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
