package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/vol-surface/internal/logger"
)

// DefaultCalculatorURL is the public options-calculator chain feed.
const DefaultCalculatorURL = "https://www.optionsprofitcalculator.com"

// calculatorQuote is one strike entry of the feed. Only the last price is used.
type calculatorQuote struct {
	Last float64 `json:"l"`
	Bid  float64 `json:"b"`
	Ask  float64 `json:"a"`
}

// calculatorResp maps expiration date -> "c"|"p" -> strike -> quote.
type calculatorResp struct {
	Options map[string]map[string]map[string]calculatorQuote `json:"options"`
}

// calculatorDataProvider reads chains from the options-calculator JSON feed.
// The feed carries no spot, dividend yield or rate, so those come from the
// configured market defaults.
type calculatorDataProvider struct {
	client    *resty.Client
	market    Market
	now       func() time.Time
	secondary Provider
}

// NewCalculatorDataProvider builds a provider against baseURL; an empty
// baseURL selects DefaultCalculatorURL.
func NewCalculatorDataProvider(baseURL string, market Market, secondary Provider) *calculatorDataProvider {
	if baseURL == "" {
		baseURL = DefaultCalculatorURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "MacOS").
		SetHeader("Content-Type", "application/json")

	return &calculatorDataProvider{client: client, market: market, now: time.Now, secondary: secondary}
}

// Secondary returns the configured secondary Provider, if any.
func (calcDataProv *calculatorDataProvider) Secondary() Provider {
	return calcDataProv.secondary
}

// GetChain fetches and parses the feed for ticker.
func (calcDataProv *calculatorDataProvider) GetChain(ctx context.Context, ticker string) (*Chain, error) {
	if calcDataProv.market.Spot <= 0 {
		return nil, fmt.Errorf("calculator feed needs a configured spot price for %s", ticker)
	}

	var body calculatorResp
	resp, err := calcDataProv.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"stock": strings.ToUpper(ticker), "reqId": "1"}).
		SetResult(&body).
		Get("/ajax/getOptions")
	if err != nil {
		return nil, fmt.Errorf("calculator request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("calculator returned status %d", resp.StatusCode())
	}
	if len(body.Options) == 0 {
		return nil, fmt.Errorf("calculator feed has no options for %s", ticker)
	}

	chain := &Chain{
		Ticker:        strings.ToUpper(ticker),
		Spot:          calcDataProv.market.Spot,
		DividendYield: calcDataProv.market.DividendYield,
		RiskFreeRate:  calcDataProv.market.RiskFreeRate,
		AsOf:          calcDataProv.now(),
	}

	buckets := map[string]*ExpiryQuotes{}
	for date, sides := range body.Options {
		expiry, err := time.Parse("2006-01-02", date)
		if err != nil {
			logger.Debugf("calculator: skipping expiration %q: %v", date, err)
			continue
		}
		for side, strikes := range sides {
			for key, q := range strikes {
				strike, err := decimal.NewFromString(strings.TrimSpace(key))
				if err != nil {
					logger.Debugf("calculator: skipping strike %q: %v", key, err)
					continue
				}
				addQuote(buckets, expiry, side, StrikePrice{Strike: strike.InexactFloat64(), Price: q.Last})
			}
		}
	}

	chain.Expiries = flattenBuckets(buckets)
	logger.Debugf("calculator chain %s: %d expiries, %d quotes", ticker, len(chain.Expiries), chain.Len())
	return chain, nil
}
