package surface

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/pricing"
)

// ErrInvalidQuote marks quotes rejected before the solver runs.
var ErrInvalidQuote = errors.New("invalid quote")

// maxStrikeMultiple bounds strikes to a sane distance above spot.
const maxStrikeMultiple = 100

// Quote is one observed premium for a (strike, expiration, kind).
type Quote struct {
	Symbol     string             `json:"symbol"`
	Kind       pricing.OptionKind `json:"kind"`
	Strike     float64            `json:"strike"`
	Expiration time.Time          `json:"expiration"`
	Price      float64            `json:"price"`
}

// QuotesFromChain flattens a chain into quotes, expiration by expiration,
// calls before puts.
func QuotesFromChain(chain *data.Chain) []Quote {
	out := make([]Quote, 0, chain.Len())
	for _, e := range chain.Expiries {
		for _, sp := range e.Calls {
			out = append(out, newQuote(chain.Ticker, pricing.Call, e.Expiration, sp))
		}
		for _, sp := range e.Puts {
			out = append(out, newQuote(chain.Ticker, pricing.Put, e.Expiration, sp))
		}
	}
	return out
}

func newQuote(ticker string, kind pricing.OptionKind, expiry time.Time, sp data.StrikePrice) Quote {
	return Quote{
		Symbol:     data.OptionSymbolFromParts(ticker, expiry, string(kind), sp.Strike),
		Kind:       kind,
		Strike:     sp.Strike,
		Expiration: expiry,
		Price:      sp.Price,
	}
}

// TimeToExpiry is (expiration - now) in years of 365 days.
func TimeToExpiry(expiration, now time.Time) float64 {
	return expiration.Sub(now).Hours() / 24 / 365.0
}

// InBand reports whether strike lies within spot +/- band, inclusive. A
// non-positive band admits every strike.
func InBand(strike, spot, band float64) bool {
	if band <= 0 {
		return true
	}
	return strike >= spot-band && strike <= spot+band
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Validate rejects quotes the solver must never see.
func (q Quote) Validate(spot float64, now time.Time) error {
	switch {
	case q.Kind != pricing.Call && q.Kind != pricing.Put:
		return fmt.Errorf("%w: kind %q", ErrInvalidQuote, q.Kind)
	case !(q.Price > 0) || math.IsInf(q.Price, 0):
		return fmt.Errorf("%w: price %v", ErrInvalidQuote, q.Price)
	case !(q.Strike > 0) || math.IsInf(q.Strike, 0):
		return fmt.Errorf("%w: strike %v", ErrInvalidQuote, q.Strike)
	case q.Strike > maxStrikeMultiple*spot:
		return fmt.Errorf("%w: strike %v too far from spot %v", ErrInvalidQuote, q.Strike, spot)
	case q.Expiration.IsZero():
		return fmt.Errorf("%w: missing expiration", ErrInvalidQuote)
	case !q.Expiration.After(now):
		return fmt.Errorf("%w: expired on %s", ErrInvalidQuote, q.Expiration.Format("2006-01-02"))
	}
	return nil
}
