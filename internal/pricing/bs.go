package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesMerton calculates the price of a European option with a
// continuous dividend yield.
//
// Parameters:
//   - c: contract; Steps is ignored
//   - vol: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical European price, ErrInvalidContract for an unusable
//	contract, or ErrNonComputable for a non-positive volatility.
//
// It serves as the European reference for the lattice and has the PriceFunc
// signature, so a Solver can be pointed at it.
func BlackScholesMerton(c Contract, vol float64) (float64, error) {
	d1, d2, err := bsmTerms(c, vol)
	if err != nil {
		return 0, err
	}

	carry := math.Exp(-c.DividendYield * c.Expiry)
	disc := math.Exp(-c.Rate * c.Expiry)
	if c.Kind == Put {
		return c.Strike*disc*distuv.UnitNormal.CDF(-d2) - c.Spot*carry*distuv.UnitNormal.CDF(-d1), nil
	}
	return c.Spot*carry*distuv.UnitNormal.CDF(d1) - c.Strike*disc*distuv.UnitNormal.CDF(d2), nil
}

// BlackScholesMertonVega is the analytic vega, per unit of volatility.
func BlackScholesMertonVega(c Contract, vol float64) (float64, error) {
	d1, _, err := bsmTerms(c, vol)
	if err != nil {
		return 0, err
	}
	return c.Spot * math.Exp(-c.DividendYield*c.Expiry) * distuv.UnitNormal.Prob(d1) * math.Sqrt(c.Expiry), nil
}

func bsmTerms(c Contract, vol float64) (d1, d2 float64, err error) {
	if c.Steps < 1 {
		c.Steps = 1
	}
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	if !positive(vol) {
		return 0, 0, fmt.Errorf("%w: volatility %v", ErrNonComputable, vol)
	}

	sqrtT := math.Sqrt(c.Expiry)
	d1 = (math.Log(c.Spot/c.Strike) + (c.Rate-c.DividendYield+0.5*vol*vol)*c.Expiry) / (vol * sqrtT)
	d2 = d1 - vol*sqrtT
	return d1, d2, nil
}
