package chain

import (
	"context"
	"sync"
)

// Wallet exposes the gateway as an account provider with change
// notifications, mirroring the eth_requestAccounts / eth_accounts /
// accountsChanged convention of browser wallet providers.
type Wallet struct {
	gw *Gateway

	mu     sync.Mutex
	active string
	nextID int
	subs   map[int]func(account string)
}

// NewWallet wraps the gateway. The active account starts as the gateway's
// signing account when one is configured.
func NewWallet(gw *Gateway) *Wallet {
	w := &Wallet{gw: gw, subs: make(map[int]func(string))}
	if acct, err := gw.Account(); err == nil {
		w.active = acct.Hex()
	}
	return w
}

// RequestAccounts returns the connected accounts, establishing the connection
// if needed. With no account configured it returns ErrNoAccount.
func (w *Wallet) RequestAccounts(ctx context.Context) ([]string, error) {
	return w.Accounts(ctx)
}

// Accounts returns the currently connected accounts.
func (w *Wallet) Accounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == "" {
		return nil, ErrNoAccount
	}
	return []string{w.active}, nil
}

// Balance returns the token balance of the given account in human units.
func (w *Wallet) Balance(ctx context.Context, account string) (float64, error) {
	return w.gw.TokenBalance(ctx, account)
}

// SwitchAccount changes the active account and notifies subscribers. This is
// the server-side analogue of the user picking a different account in a
// browser wallet.
func (w *Wallet) SwitchAccount(account string) {
	w.mu.Lock()
	w.active = account
	handlers := make([]func(string), 0, len(w.subs))
	for _, h := range w.subs {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	for _, h := range handlers {
		h(account)
	}
}

// SubscribeAccountsChanged registers a handler for account switches and
// returns an unsubscribe func. The handler is called outside the wallet lock.
func (w *Wallet) SubscribeAccountsChanged(handler func(account string)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}
