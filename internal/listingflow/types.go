package listingflow

import "context"

// Wire types mirroring the marketplace API contract. The workflow is a
// client of that contract and keeps its own decoded shapes.

type CreditIssuance struct {
	CreditsIssued   bool    `json:"creditsIssued"`
	ApprovedCredits float64 `json:"approvedCredits"`
}

type Claim struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"projectId"`
	Status         string         `json:"status"`
	CreditIssuance CreditIssuance `json:"creditIssuance"`
}

type Listing struct {
	ID          string  `json:"id"`
	CreditClaim string  `json:"creditClaim"`
	Status      string  `json:"status"`
	Quantity    float64 `json:"quantity"`
}

// SessionContext is the explicit per-session identity: no ambient storage
// lookups, the token and address travel with the workflow.
type SessionContext struct {
	UserID  string
	Token   string
	Address string
}

// ClaimsSource reads the user's credit claims.
type ClaimsSource interface {
	MyClaims(ctx context.Context) ([]Claim, error)
}

// ListingsSource reads the user's listings and creates new ones.
type ListingsSource interface {
	MyListings(ctx context.Context) ([]Listing, error)
	CreateListing(ctx context.Context, claimID string, quantity float64) (*Listing, error)
}

// WalletProvider mirrors the browser wallet convention: request or read the
// connected accounts, read a balance, subscribe to account switches.
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	Balance(ctx context.Context, account string) (float64, error)
	SubscribeAccountsChanged(handler func(account string)) (unsubscribe func())
}

// State is the per-session workflow state.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSelecting  State = "selecting"
	StateSubmitting State = "submitting"
)

// PageStatus tags the consolidated result of the three concurrent reads.
type PageStatus string

const (
	PageReady    PageStatus = "ready"
	PageDegraded PageStatus = "degraded"
	PageFailed   PageStatus = "failed"
)

// PageState is the fan-in of claims, listings and wallet balance, with
// per-branch failures captured rather than aborting the others.
type PageState struct {
	Status        PageStatus
	Claims        []Claim
	Listings      []Listing
	WalletAddress string
	Balance       float64
	Failures      []*FetchError
}

// FailedSources lists which reads failed, for the partial-data warning.
func (p PageState) FailedSources() []string {
	out := make([]string, 0, len(p.Failures))
	for _, f := range p.Failures {
		out = append(out, f.Source)
	}
	return out
}
