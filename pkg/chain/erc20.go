package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Read-only subset of the ERC-20 ABI: the balanceOf/decimals pair the
// marketplace needs to value a holder's credit tokens.
const erc20ReadABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20ReadABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	res, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return res, nil
}

// RawBalance returns the unscaled balanceOf(holder) for the configured token.
func (g *Gateway) RawBalance(ctx context.Context, holder string) (*big.Int, error) {
	res, err := g.call(ctx, "balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, err
	}
	bal, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected balanceOf result %T", res[0])
	}
	return bal, nil
}

// Decimals returns the token's decimals(), fetching it at most once per
// gateway.
func (g *Gateway) Decimals(ctx context.Context) (uint8, error) {
	g.decMu.Lock()
	if g.haveDec {
		dec := g.dec
		g.decMu.Unlock()
		return dec, nil
	}
	g.decMu.Unlock()

	res, err := g.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	dec, ok := res[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected decimals result %T", res[0])
	}

	g.decMu.Lock()
	g.dec = dec
	g.haveDec = true
	g.decMu.Unlock()
	return dec, nil
}

// TokenBalance fetches balanceOf(holder) and decimals() and combines them as
// raw / 10^decimals.
func (g *Gateway) TokenBalance(ctx context.Context, holder string) (float64, error) {
	raw, err := g.RawBalance(ctx, holder)
	if err != nil {
		return 0, err
	}
	dec, err := g.Decimals(ctx)
	if err != nil {
		return 0, err
	}
	return ScaleBalance(raw, dec), nil
}

// ScaleBalance converts a raw token amount to its human unit.
func ScaleBalance(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), scale).Float64()
	return out
}
