package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticProvider_GetChain(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Spot = 100
	cfg.Width = 10
	cfg.StrikeStep = 5
	cfg.ExpiryDays = []int{30, 90}

	prov := NewSyntheticProvider(cfg, nil).(*synthDataProvider)
	prov.now = func() time.Time { return tradeDateTime }

	chain, err := prov.GetChain(context.Background(), "xyz")
	require.NoError(t, err)

	assert.Equal(t, "XYZ", chain.Ticker)
	require.Len(t, chain.Expiries, 2)
	assert.Equal(t, tradeDateTime.AddDate(0, 0, 30), chain.Expiries[0].Expiration)

	calls := chain.Expiries[0].Calls
	require.Len(t, calls, 5)
	assert.Equal(t, 90.0, calls[0].Strike)
	assert.Equal(t, 110.0, calls[4].Strike)
	for i := 1; i < len(calls); i++ {
		assert.LessOrEqual(t, calls[i].Price, calls[i-1].Price)
	}
}

func TestSyntheticSmile(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Spot = 100
	assert.Equal(t, cfg.BaseVol, cfg.SmileVol(100))
	assert.Greater(t, cfg.SmileVol(80), cfg.SmileVol(100))
	assert.InDelta(t, cfg.SmileVol(80), cfg.SmileVol(120), 1e-12)
}

func TestSyntheticProvider_RejectsBadConfig(t *testing.T) {
	_, err := NewSyntheticProvider(SyntheticConfig{}, nil).GetChain(context.Background(), "XYZ")
	assert.Error(t, err)
}

func TestSyntheticProvider_SecondaryAndSeededNoise(t *testing.T) {
	fallback := &stubProvider{}
	cfg := DefaultSyntheticConfig()
	cfg.ExpiryDays = []int{60}
	cfg.Noise = 0.05

	chainFor := func(seed int64) *Chain {
		cfg.Seed = seed
		prov := NewSyntheticProvider(cfg, fallback).(*synthDataProvider)
		prov.now = func() time.Time { return tradeDateTime }
		assert.Same(t, fallback, prov.Secondary())

		chain, err := prov.GetChain(context.Background(), "SPY")
		require.NoError(t, err)
		return chain
	}

	a, b, other := chainFor(7), chainFor(7), chainFor(8)
	assert.Equal(t, a.Expiries, b.Expiries, "same seed, same chain")
	assert.NotEqual(t, a.Expiries, other.Expiries)

	cfg.Noise = 0
	clean := chainFor(7)
	for i, q := range clean.Expiries[0].Calls {
		assert.Equal(t, q.Strike, a.Expiries[0].Calls[i].Strike)
	}
}
