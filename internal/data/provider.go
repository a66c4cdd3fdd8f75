package data

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/contactkeval/vol-surface/internal/logger"
)

// Provider supplies option-chain snapshots.
type Provider interface {
	Secondary() Provider
	GetChain(ctx context.Context, ticker string) (*Chain, error)
}

// StrikePrice is one observed premium for a strike.
type StrikePrice struct {
	Strike float64 `json:"strike" csv:"strike"`
	Price  float64 `json:"price" csv:"price"`
}

// ExpiryQuotes holds the call and put quotes for one expiration date.
type ExpiryQuotes struct {
	Expiration time.Time     `json:"expiration"`
	Calls      []StrikePrice `json:"calls"`
	Puts       []StrikePrice `json:"puts"`
}

// Chain is a full option-chain snapshot for one underlying.
type Chain struct {
	Ticker        string         `json:"ticker"`
	Spot          float64        `json:"spot"`
	DividendYield float64        `json:"dividend_yield"`
	RiskFreeRate  float64        `json:"risk_free_rate"`
	AsOf          time.Time      `json:"as_of"`
	Expiries      []ExpiryQuotes `json:"expiries"`
}

// Len returns the total number of quotes in the chain.
func (c *Chain) Len() int {
	n := 0
	for _, e := range c.Expiries {
		n += len(e.Calls) + len(e.Puts)
	}
	return n
}

// SortExpiries orders expirations ascending and strikes ascending within each.
func (c *Chain) SortExpiries() {
	sort.Slice(c.Expiries, func(i, j int) bool { return c.Expiries[i].Expiration.Before(c.Expiries[j].Expiration) })
	for _, e := range c.Expiries {
		sortStrikes(e.Calls)
		sortStrikes(e.Puts)
	}
}

// Overrides replace market parameters reported by a provider. Nil fields keep
// the provider's value.
type Overrides struct {
	Spot          *float64 `json:"spot,omitempty" yaml:"spot,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty" yaml:"dividend_yield,omitempty"`
	RiskFreeRate  *float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate,omitempty"`
}

// Apply writes the non-nil overrides into the chain.
func (o Overrides) Apply(c *Chain) {
	if o.Spot != nil {
		c.Spot = *o.Spot
	}
	if o.DividendYield != nil {
		c.DividendYield = *o.DividendYield
	}
	if o.RiskFreeRate != nil {
		c.RiskFreeRate = *o.RiskFreeRate
	}
}

// FetchChain asks prov for a chain and walks the secondary providers when a
// provider fails.
func FetchChain(ctx context.Context, prov Provider, ticker string) (*Chain, error) {
	var errs []string
	for p := prov; p != nil; p = p.Secondary() {
		chain, err := p.GetChain(ctx, ticker)
		if err == nil {
			chain.SortExpiries()
			return chain, nil
		}
		logger.Debugf("provider %T failed for %s: %v", p, ticker, err)
		errs = append(errs, err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no provider configured for %s", ticker)
	}
	return nil, fmt.Errorf("fetch chain %s: %s", ticker, strings.Join(errs, "; "))
}

// OptionSymbolFromParts formats an OCC-style option ticker:
// O:<root><YYMMDD><C|P><strike*1000 padded to 8 digits>
func OptionSymbolFromParts(underlying string, expiryDate time.Time, optionType string, strike float64) string {
	expDt := expiryDate.UTC().Format("060102")
	optType := "C"
	if strings.ToLower(optionType) == "put" || strings.ToLower(optionType) == "p" {
		optType = "P"
	}
	var milli int64
	if !math.IsNaN(strike) && !math.IsInf(strike, 0) {
		milli = decimal.NewFromFloat(strike).Shift(3).Round(0).IntPart()
	}
	return fmt.Sprintf("O:%s%s%s%08d", strings.ToUpper(underlying), expDt, optType, milli)
}

// addQuote appends a quote under its expiration, creating the bucket if
// needed. kind is "call" or "put"; anything else is ignored.
func addQuote(buckets map[string]*ExpiryQuotes, expiry time.Time, kind string, q StrikePrice) bool {
	kind = strings.ToLower(kind)
	if kind != "call" && kind != "c" && kind != "put" && kind != "p" {
		return false
	}

	key := expiry.Format("2006-01-02")
	b, ok := buckets[key]
	if !ok {
		b = &ExpiryQuotes{Expiration: expiry}
		buckets[key] = b
	}
	if kind == "call" || kind == "c" {
		b.Calls = append(b.Calls, q)
	} else {
		b.Puts = append(b.Puts, q)
	}
	return true
}

func flattenBuckets(buckets map[string]*ExpiryQuotes) []ExpiryQuotes {
	out := make([]ExpiryQuotes, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiration.Before(out[j].Expiration) })
	return out
}

func sortStrikes(s []StrikePrice) {
	sort.Slice(s, func(i, j int) bool { return s[i].Strike < s[j].Strike })
}
