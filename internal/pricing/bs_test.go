package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Simple sanity check: ATM call should have non-zero value
func TestBlackScholesCallBasic(t *testing.T) {
	c := Contract{Spot: 100, Strike: 100, Rate: 0.05, Expiry: 30.0 / 365.0, Kind: Call}
	call, err := BlackScholesMerton(c, 0.20)
	require.NoError(t, err)
	assert.Positive(t, call)
}

// Put-call parity with a dividend yield
func TestBlackScholesPutCallParity(t *testing.T) {
	call := Contract{Spot: 100, Strike: 95, Rate: 0.03, DividendYield: 0.015, Expiry: 45.0 / 365.0, Kind: Call}
	put := call
	put.Kind = Put

	c, err := BlackScholesMerton(call, 0.25)
	require.NoError(t, err)
	p, err := BlackScholesMerton(put, 0.25)
	require.NoError(t, err)

	lhs := c - p
	rhs := call.Spot*math.Exp(-call.DividendYield*call.Expiry) - call.Strike*math.Exp(-call.Rate*call.Expiry)
	assert.InDelta(t, rhs, lhs, 1e-9)
}

func TestBlackScholesRejectsBadVolatility(t *testing.T) {
	_, err := BlackScholesMerton(atmCall(1), 0)
	assert.ErrorIs(t, err, ErrNonComputable)

	_, err = BlackScholesMertonVega(atmCall(1), -0.1)
	assert.ErrorIs(t, err, ErrNonComputable)
}

func TestBlackScholesVegaATM(t *testing.T) {
	v, err := BlackScholesMertonVega(atmCall(1), 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 28.05, v, 0.01)
}
