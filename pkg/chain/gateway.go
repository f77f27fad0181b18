// Package chain wraps the Ethereum JSON-RPC endpoint the marketplace settles
// against. The rest of the code treats the gateway as an opaque handle: it can
// read ERC-20 token balances and, when an operator key is configured, expose a
// signing account. No transaction submission happens in this service.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ErrNoAccount is returned when an operation needs a signing account but no
// operator key was configured.
var ErrNoAccount = errors.New("chain: no account configured")

// Config carries the connection parameters for the gateway.
type Config struct {
	RPCURL        string
	TokenContract string
	PrivateKey    string // hex, optional
}

// Gateway is an open connection to an Ethereum JSON-RPC node.
type Gateway struct {
	client  *ethclient.Client
	chainID *big.Int
	token   common.Address
	key     *ecdsa.PrivateKey
	account common.Address
	logger  *zap.Logger

	// decimals() is immutable for a token, read once and cached.
	decMu   sync.Mutex
	dec     uint8
	haveDec bool
}

// Dial opens the RPC connection, resolves the network id and optionally loads
// the operator signing account from cfg.PrivateKey.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: resolve chain id: %w", err)
	}

	g := &Gateway{
		client:  client,
		chainID: chainID,
		token:   common.HexToAddress(cfg.TokenContract),
		logger:  logger,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(cfg.PrivateKey)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("chain: parse private key: %w", err)
		}
		g.key = key
		g.account = crypto.PubkeyToAddress(key.PublicKey)
		logger.Info("chain signing account loaded", zap.String("account", g.account.Hex()))
	}

	logger.Info("connected to chain",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("token", g.token.Hex()))

	return g, nil
}

// ChainID returns the network id resolved at dial time.
func (g *Gateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

// Account returns the configured signing account, or ErrNoAccount.
func (g *Gateway) Account() (common.Address, error) {
	if g.key == nil {
		return common.Address{}, ErrNoAccount
	}
	return g.account, nil
}

// Close ends the RPC connection.
func (g *Gateway) Close() {
	g.client.Close()
}
