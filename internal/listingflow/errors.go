package listingflow

import (
	"errors"
	"fmt"
)

// Local pre-submit validation errors. These are raised before any network
// write and map one-to-one onto the messages shown next to the listing form.
var (
	ErrSelectionRequired   = errors.New("select a claim to list")
	ErrAlreadyListed       = errors.New("claim already has an open listing")
	ErrInvalidAmount       = errors.New("quantity must be greater than zero")
	ErrExceedsApproved     = errors.New("quantity exceeds the claim's approved credits")
	ErrInsufficientBalance = errors.New("quantity exceeds the wallet balance")
)

// ErrWalletUnavailable means no wallet provider is present. Fatal to
// wallet-dependent actions, not to viewing claims.
var ErrWalletUnavailable = errors.New("no wallet provider available")

// ErrSubmitInFlight rejects re-entrant submits: the backend has no
// idempotency key for listing creation, so one attempt at a time.
var ErrSubmitInFlight = errors.New("a submission is already in flight")

// FetchError records which of the concurrent page reads failed. The page
// degrades instead of blocking on it.
type FetchError struct {
	Source string // "claims", "listings", "wallet"
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BackendRejectedError surfaces the backend's create-listing rejection
// message verbatim. Never retried.
type BackendRejectedError struct {
	Message string
}

func (e *BackendRejectedError) Error() string {
	return e.Message
}
