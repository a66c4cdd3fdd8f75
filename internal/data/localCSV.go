package data

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/vol-surface/internal/logger"
)

// chainRow is one line of a local chain file:
//
//	ticker,expiration,kind,strike,price
//	SPY,2025-03-21,call,520,12.4
//
// The ticker column is optional; when present, rows for other tickers are
// ignored.
type chainRow struct {
	Ticker     string  `csv:"ticker"`
	Expiration string  `csv:"expiration"`
	Kind       string  `csv:"kind"`
	Strike     float64 `csv:"strike"`
	Price      float64 `csv:"price"`
}

// localCSVDataProvider implements Data Provider from a local chain file.
type localCSVDataProvider struct {
	path      string
	market    Market
	now       func() time.Time
	secondary Provider
}

// NewLocalCSVDataProvider convenience constructor.
func NewLocalCSVDataProvider(path string, market Market, secondary Provider) *localCSVDataProvider {
	return &localCSVDataProvider{path: path, market: market, now: time.Now, secondary: secondary}
}

func (localCSVDataProv *localCSVDataProvider) Secondary() Provider {
	return localCSVDataProv.secondary
}

// GetChain loads the file and groups rows by expiration.
func (localCSVDataProv *localCSVDataProvider) GetChain(ctx context.Context, ticker string) (*Chain, error) {
	f, err := os.Open(localCSVDataProv.path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	var rows []*chainRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read chain csv %s: %w", localCSVDataProv.path, err)
	}

	buckets := map[string]*ExpiryQuotes{}
	skipped := 0
	for i, row := range rows {
		if row.Ticker != "" && !strings.EqualFold(row.Ticker, ticker) {
			continue
		}
		expiry, err := time.Parse("2006-01-02", strings.TrimSpace(row.Expiration))
		if err != nil {
			logger.Debugf("chain csv line %d: bad expiration %q", i+2, row.Expiration)
			skipped++
			continue
		}
		if !addQuote(buckets, expiry, strings.TrimSpace(row.Kind), StrikePrice{Strike: row.Strike, Price: row.Price}) {
			logger.Debugf("chain csv line %d: bad kind %q", i+2, row.Kind)
			skipped++
		}
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("chain csv %s has no quotes for %s", localCSVDataProv.path, ticker)
	}

	chain := &Chain{
		Ticker:        strings.ToUpper(ticker),
		Spot:          localCSVDataProv.market.Spot,
		DividendYield: localCSVDataProv.market.DividendYield,
		RiskFreeRate:  localCSVDataProv.market.RiskFreeRate,
		AsOf:          localCSVDataProv.now(),
		Expiries:      flattenBuckets(buckets),
	}
	logger.Debugf("chain csv %s: %d quotes, %d rows skipped", ticker, chain.Len(), skipped)
	return chain, nil
}
