package pricing

import "fmt"

// VegaBump is the volatility shift used by the central finite difference.
const VegaBump = 0.01

// PriceFunc prices a contract at a volatility.
type PriceFunc func(c Contract, vol float64) (float64, error)

// LatticeVega estimates dPrice/dVol on the lattice with a central difference.
func LatticeVega(c Contract, vol float64) (float64, error) {
	return FiniteDifferenceVega(LatticePrice, c, vol, VegaBump)
}

// FiniteDifferenceVega returns (price(vol+h) - price(vol-h)) / 2h. A failure
// of either bumped evaluation is reported as ErrNonComputable.
func FiniteDifferenceVega(price PriceFunc, c Contract, vol, h float64) (float64, error) {
	hi, err := price(c, vol+h)
	if err != nil {
		return 0, fmt.Errorf("vega up-bump at %v: %w", vol+h, asNonComputable(err))
	}
	lo, err := price(c, vol-h)
	if err != nil {
		return 0, fmt.Errorf("vega down-bump at %v: %w", vol-h, asNonComputable(err))
	}
	return (hi - lo) / (2 * h), nil
}

// asNonComputable keeps contract errors as they are and folds everything
// else into ErrNonComputable.
func asNonComputable(err error) error {
	if isAny(err, ErrInvalidContract, ErrNonComputable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNonComputable, err)
}
