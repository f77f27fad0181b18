package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleBalance(t *testing.T) {
	raw, _ := new(big.Int).SetString("60000000000000000000", 10) // 60 * 10^18
	assert.Equal(t, 60.0, ScaleBalance(raw, 18))

	assert.Equal(t, 0.5, ScaleBalance(big.NewInt(50), 2))
	assert.Equal(t, 100.0, ScaleBalance(big.NewInt(100), 0))
	assert.Equal(t, 0.0, ScaleBalance(nil, 18))
	assert.Equal(t, 0.0, ScaleBalance(big.NewInt(0), 18))
}

func TestDecimalsServedFromCache(t *testing.T) {
	// No client is attached: a cache miss would panic on the RPC call, so a
	// clean read proves the cached value short-circuits the lookup.
	g := &Gateway{dec: 6, haveDec: true}

	dec, err := g.Decimals(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint8(6), dec)
}

func TestERC20ABIMethods(t *testing.T) {
	_, ok := erc20ABI.Methods["balanceOf"]
	assert.True(t, ok)
	_, ok = erc20ABI.Methods["decimals"]
	assert.True(t, ok)
}
