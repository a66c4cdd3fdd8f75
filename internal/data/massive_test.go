package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/massive-com/client-go/v2/rest/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tradeDateTime = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	expiryDate    = time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
)

func snapshot(kind string, strike, mid, close float64, expiry time.Time) models.OptionContractSnapshot {
	var s models.OptionContractSnapshot
	s.Details.ContractType = kind
	s.Details.StrikePrice = strike
	s.Details.ExpirationDate = models.Date(expiry)
	s.Details.Ticker = OptionSymbolFromParts("SPY", expiry, kind, strike)
	s.LastQuote.Midpoint = mid
	s.Day.Close = close
	s.UnderlyingAsset.Price = 581.39
	return s
}

func fakeMassive(snaps []models.OptionContractSnapshot, err error) *massiveDataProvider {
	return &massiveDataProvider{
		list: func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error) {
			return snaps, err
		},
		defaults: Market{Spot: 500, DividendYield: 0.013, RiskFreeRate: 0.045},
		now:      func() time.Time { return tradeDateTime },
	}
}

func TestMassiveProvider_GetChain(t *testing.T) {
	later := expiryDate.AddDate(0, 1, 0)
	prov := fakeMassive([]models.OptionContractSnapshot{
		snapshot("call", 580, 12.14, 11.9, expiryDate),
		snapshot("put", 580, 0, 9.75, expiryDate), // no quote, falls back to close
		snapshot("call", 600, 4.1, 0, later),
		snapshot("put", 560, 0, 0, later), // no price at all
		snapshot("future", 560, 1, 1, later),
	}, nil)

	chain, err := prov.GetChain(context.Background(), "spy")
	require.NoError(t, err)

	assert.Equal(t, "SPY", chain.Ticker)
	assert.Equal(t, 581.39, chain.Spot)
	assert.Equal(t, 0.013, chain.DividendYield)
	assert.Equal(t, 0.045, chain.RiskFreeRate)
	assert.Equal(t, tradeDateTime, chain.AsOf)

	require.Len(t, chain.Expiries, 2)
	first := chain.Expiries[0]
	assert.True(t, first.Expiration.Equal(expiryDate))
	assert.Equal(t, []StrikePrice{{Strike: 580, Price: 12.14}}, first.Calls)
	assert.Equal(t, []StrikePrice{{Strike: 580, Price: 9.75}}, first.Puts)
	assert.Len(t, chain.Expiries[1].Calls, 1)
	assert.Empty(t, chain.Expiries[1].Puts)
}

func TestMassiveProvider_GetChainErrors(t *testing.T) {
	_, err := fakeMassive(nil, errors.New("status 403")).GetChain(context.Background(), "SPY")
	assert.ErrorContains(t, err, "status 403")

	_, err = fakeMassive(nil, nil).GetChain(context.Background(), "SPY")
	assert.ErrorContains(t, err, "no contracts")
}
