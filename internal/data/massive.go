// Package data provides market data provider implementations.
//
// This file contains a Massive-backed Provider that reads the option-chain
// snapshot for an underlying through the Massive Go SDK.
//
// Design notes:
//   - The SDK iterator handles pagination and authentication
//   - Quotes without a usable price are dropped, not zero-filled
//   - Dividend yield and risk-free rate are not part of the snapshot and come
//     from the configured defaults
package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/vol-surface/internal/logger"
)

// snapshotLister returns every contract snapshot of an underlying's chain.
type snapshotLister func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error)

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	// list fetches the raw chain snapshot.
	list snapshotLister

	// defaults fill in market parameters the snapshot does not carry.
	defaults Market

	// now stamps the chain; replaced in tests.
	now func() time.Time

	// secondary is an optional fallback provider.
	secondary Provider
}

// Market holds the parameters a chain feed may not report itself.
type Market struct {
	Spot          float64 `json:"spot" yaml:"spot"`
	DividendYield float64 `json:"dividend_yield" yaml:"dividend_yield"`
	RiskFreeRate  float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// Parameters:
//   - apiKey: Massive API key for authentication
//   - defaults: dividend yield and rate to attach to the chain, and a spot
//     used when the snapshot carries no underlying price
//   - secondary: optional fallback provider, may be nil
func NewMassiveDataProvider(apiKey string, defaults Market, secondary Provider) *massiveDataProvider {
	logger.Infof("initializing Massive data provider")

	client := massive.New(apiKey)
	return &massiveDataProvider{
		list: func(ctx context.Context, underlying string) ([]models.OptionContractSnapshot, error) {
			params := &models.ListOptionsChainParams{UnderlyingAsset: underlying}
			it := client.ListOptionsChainSnapshot(ctx, params)

			var out []models.OptionContractSnapshot
			for it.Next() {
				out = append(out, it.Item())
			}
			if err := it.Err(); err != nil {
				return nil, err
			}
			return out, nil
		},
		defaults:  defaults,
		now:       time.Now,
		secondary: secondary,
	}
}

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetChain retrieves the chain snapshot and groups it by expiration.
//
// The price of a contract is the last-quote midpoint, falling back to the
// session close. The spot is the snapshot's underlying price when present.
func (massiveDataProv *massiveDataProvider) GetChain(ctx context.Context, ticker string) (*Chain, error) {
	logger.Debugf("massive chain snapshot request: %s", ticker)

	snaps, err := massiveDataProv.list(ctx, strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("massive chain snapshot %s: %w", ticker, err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("massive chain snapshot %s: no contracts", ticker)
	}

	chain := &Chain{
		Ticker:        strings.ToUpper(ticker),
		Spot:          massiveDataProv.defaults.Spot,
		DividendYield: massiveDataProv.defaults.DividendYield,
		RiskFreeRate:  massiveDataProv.defaults.RiskFreeRate,
		AsOf:          massiveDataProv.now(),
	}

	buckets := map[string]*ExpiryQuotes{}
	dropped := 0
	for _, snap := range snaps {
		if snap.UnderlyingAsset.Price > 0 {
			chain.Spot = snap.UnderlyingAsset.Price
		}

		price := snap.LastQuote.Midpoint
		if price <= 0 {
			price = snap.Day.Close
		}
		expiry := time.Time(snap.Details.ExpirationDate)
		if price <= 0 || expiry.IsZero() {
			dropped++
			continue
		}

		q := StrikePrice{Strike: snap.Details.StrikePrice, Price: price}
		if !addQuote(buckets, expiry, snap.Details.ContractType, q) {
			dropped++
			continue
		}
		logger.Tracef("massive quote %s %.2f", snap.Details.Ticker, price)
	}

	chain.Expiries = flattenBuckets(buckets)
	logger.Debugf("massive chain %s: %d quotes, %d dropped, spot=%.2f", ticker, chain.Len(), dropped, chain.Spot)
	return chain, nil
}
