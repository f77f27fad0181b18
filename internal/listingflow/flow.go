// Package listingflow implements the marketplace listing workflow: deciding
// which of a user's credit claims may be listed, computing the sellable
// quantity, and submitting the listing, while keeping the page state
// consistent with the claims service, the listings service and the live
// wallet balance.
package listingflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// balanceRefreshTimeout bounds the revalidation triggered by an
// accountsChanged notification.
const balanceRefreshTimeout = 10 * time.Second

// EligibleClaims filters claims to those that are approved with issued,
// positive credits and are not referenced by any currently listed
// ("active" or "partial") listing. The second return value is the set of
// claim ids that are currently listed.
func EligibleClaims(claims []Claim, listings []Listing) ([]Claim, map[string]bool) {
	listed := make(map[string]bool)
	for _, l := range listings {
		if l.Status == "active" || l.Status == "partial" {
			listed[l.CreditClaim] = true
		}
	}

	eligible := make([]Claim, 0, len(claims))
	for _, c := range claims {
		if c.Status != "approved" {
			continue
		}
		if !c.CreditIssuance.CreditsIssued || c.CreditIssuance.ApprovedCredits <= 0 {
			continue
		}
		if listed[c.ID] {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, listed
}

// MaxSellable returns how many credits a claim can be listed for: no more
// than were issued, and no more than the wallet holds, since the listing is
// backed 1:1 by held tokens.
func MaxSellable(claim Claim, balance float64) float64 {
	if balance < claim.CreditIssuance.ApprovedCredits {
		return balance
	}
	return claim.CreditIssuance.ApprovedCredits
}

// Session is one user's listing workflow. All remote reads are bounded by
// the caller's context; submissions are serialized per session.
type Session struct {
	sctx     SessionContext
	claims   ClaimsSource
	listings ListingsSource
	wallet   WalletProvider // nil when no provider is present
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	page     PageState
	eligible []Claim
	listed   map[string]bool
	selected *Claim
	quantity float64
	unsub    func()
	closed   bool
}

// NewSession builds the workflow and subscribes to the wallet provider's
// account-change notifications for the session's lifetime.
func NewSession(sctx SessionContext, claims ClaimsSource, listings ListingsSource, wallet WalletProvider, logger *zap.Logger) *Session {
	s := &Session{
		sctx:     sctx,
		claims:   claims,
		listings: listings,
		wallet:   wallet,
		logger:   logger,
		state:    StateIdle,
		listed:   map[string]bool{},
	}
	if wallet != nil {
		s.unsub = wallet.SubscribeAccountsChanged(s.onAccountsChanged)
	}
	return s
}

// Close tears the session down and unsubscribes from wallet notifications.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state = StateIdle
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// State returns the current workflow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Page returns the last consolidated page state.
func (s *Session) Page() PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Eligible returns the current eligibility set.
func (s *Session) Eligible() []Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Claim, len(s.eligible))
	copy(out, s.eligible)
	return out
}

// Load fans out the three reads (claims, listings, wallet balance)
// concurrently, waits for all of them to settle, and consolidates the
// result. Individual failures degrade the page instead of aborting the
// other reads. On context cancellation the partial results are discarded
// and the session returns to its previous state.
func (s *Session) Load(ctx context.Context) (PageState, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return PageState{}, ErrSubmitInFlight
	}
	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	var (
		wg        sync.WaitGroup
		claimsRes []Claim
		claimsErr error
		listRes   []Listing
		listErr   error
		address   string
		balance   float64
		walletErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		claimsRes, claimsErr = s.claims.MyClaims(ctx)
	}()
	go func() {
		defer wg.Done()
		listRes, listErr = s.listings.MyListings(ctx)
	}()
	go func() {
		defer wg.Done()
		address, balance, walletErr = s.ResolveWallet(ctx)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		return PageState{}, err
	}

	page := PageState{
		Claims:        claimsRes,
		Listings:      listRes,
		WalletAddress: address,
		Balance:       balance,
	}
	if claimsErr != nil {
		page.Failures = append(page.Failures, &FetchError{Source: "claims", Err: claimsErr})
	}
	if listErr != nil {
		page.Failures = append(page.Failures, &FetchError{Source: "listings", Err: listErr})
	}
	if walletErr != nil {
		page.Failures = append(page.Failures, &FetchError{Source: "wallet", Err: walletErr})
	}
	switch len(page.Failures) {
	case 0:
		page.Status = PageReady
	case 3:
		page.Status = PageFailed
	default:
		page.Status = PageDegraded
	}

	eligible, listed := EligibleClaims(page.Claims, page.Listings)

	s.mu.Lock()
	s.page = page
	s.eligible = eligible
	s.listed = listed
	s.selected = nil
	s.quantity = 0
	s.state = StateReady
	s.mu.Unlock()

	if page.Status != PageReady {
		s.logger.Warn("listing page loaded with partial data",
			zap.Strings("failed_sources", page.FailedSources()))
	}
	return page, nil
}

// ResolveWallet reads the connected account and its token balance,
// requesting a connection when none exists yet. Without a provider it fails
// with ErrWalletUnavailable.
func (s *Session) ResolveWallet(ctx context.Context) (string, float64, error) {
	if s.wallet == nil {
		return "", 0, ErrWalletUnavailable
	}

	accounts, err := s.wallet.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		accounts, err = s.wallet.RequestAccounts(ctx)
		if err != nil {
			return "", 0, err
		}
	}
	if len(accounts) == 0 {
		return "", 0, ErrWalletUnavailable
	}

	address := accounts[0]
	balance, err := s.wallet.Balance(ctx, address)
	if err != nil {
		return "", 0, err
	}
	return address, balance, nil
}

// SelectClaim marks a claim for listing and auto-computes the sellable
// quantity as MaxSellable(claim, balance).
func (s *Session) SelectClaim(claimID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady && s.state != StateSelecting {
		return 0, ErrSelectionRequired
	}
	if s.listed[claimID] {
		return 0, ErrAlreadyListed
	}
	for i := range s.eligible {
		if s.eligible[i].ID == claimID {
			s.selected = &s.eligible[i]
			s.quantity = MaxSellable(s.eligible[i], s.page.Balance)
			s.state = StateSelecting
			return s.quantity, nil
		}
	}
	return 0, ErrSelectionRequired
}

// Submit submits the currently selected claim with the auto-computed
// quantity.
func (s *Session) Submit(ctx context.Context) (*Listing, error) {
	s.mu.Lock()
	claim := s.selected
	quantity := s.quantity
	s.mu.Unlock()
	return s.SubmitListing(ctx, claim, quantity)
}

// SubmitListing validates and submits a listing for the claim. Validation
// runs in order (selection, not already listed, positive quantity, within
// approved credits, within wallet balance) and a failure performs no
// network write. While one submission is in flight, further submits are
// rejected with ErrSubmitInFlight: the backend has no idempotency token to
// de-duplicate concurrent creates.
func (s *Session) SubmitListing(ctx context.Context, claim *Claim, quantity float64) (*Listing, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if claim == nil {
		s.mu.Unlock()
		return nil, ErrSelectionRequired
	}
	if s.listed[claim.ID] {
		s.mu.Unlock()
		return nil, ErrAlreadyListed
	}
	if quantity <= 0 {
		s.mu.Unlock()
		return nil, ErrInvalidAmount
	}
	if quantity > claim.CreditIssuance.ApprovedCredits {
		s.mu.Unlock()
		return nil, ErrExceedsApproved
	}
	if quantity > s.page.Balance {
		s.mu.Unlock()
		return nil, ErrInsufficientBalance
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	listing, err := s.listings.CreateListing(ctx, claim.ID, quantity)

	s.mu.Lock()
	s.state = StateReady
	if err == nil {
		s.selected = nil
		s.quantity = 0
	}
	s.mu.Unlock()

	if err != nil {
		// Backend rejections surface verbatim; no retry.
		return nil, err
	}

	// Refresh claims, listings and balance so the eligibility set reflects
	// the listing that was just created.
	if _, rerr := s.Load(ctx); rerr != nil {
		s.logger.Warn("post-submit refresh failed", zap.Error(rerr))
	}
	return listing, nil
}

// onAccountsChanged revalidates the balance whenever the wallet provider
// reports an account switch.
func (s *Session) onAccountsChanged(account string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), balanceRefreshTimeout)
	defer cancel()

	balance, err := s.wallet.Balance(ctx, account)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// Close won the race while the balance read was in flight.
		return
	}
	s.page.WalletAddress = account
	if err != nil {
		s.logger.Warn("balance revalidation failed", zap.String("account", account), zap.Error(err))
		return
	}
	s.page.Balance = balance
	if s.selected != nil {
		s.quantity = MaxSellable(*s.selected, balance)
	}
}
