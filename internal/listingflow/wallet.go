package listingflow

import (
	"context"
	"errors"

	"carbon-market/marketplace-backend/pkg/chain"
)

// chainWallet adapts a chain.Wallet to the WalletProvider interface,
// translating the gateway's no-account condition into the workflow's
// ErrWalletUnavailable.
type chainWallet struct {
	w *chain.Wallet
}

// NewChainWallet wraps a gateway wallet as a WalletProvider.
func NewChainWallet(w *chain.Wallet) WalletProvider {
	return &chainWallet{w: w}
}

func (c *chainWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	accounts, err := c.w.RequestAccounts(ctx)
	if errors.Is(err, chain.ErrNoAccount) {
		return nil, ErrWalletUnavailable
	}
	return accounts, err
}

func (c *chainWallet) Accounts(ctx context.Context) ([]string, error) {
	accounts, err := c.w.Accounts(ctx)
	if errors.Is(err, chain.ErrNoAccount) {
		return nil, ErrWalletUnavailable
	}
	return accounts, err
}

func (c *chainWallet) Balance(ctx context.Context, account string) (float64, error) {
	return c.w.Balance(ctx, account)
}

func (c *chainWallet) SubscribeAccountsChanged(handler func(account string)) func() {
	return c.w.SubscribeAccountsChanged(handler)
}
