package pricing

import "errors"

var (
	// ErrInvalidContract is returned for contracts that cannot be priced at all
	// (non-positive spot, strike or expiry, zero steps, unknown kind).
	ErrInvalidContract = errors.New("invalid contract")

	// ErrNonComputable means the lattice produced a non-finite intermediate or
	// ill-posed transition probabilities at the requested volatility.
	ErrNonComputable = errors.New("price not computable at this volatility")

	// ErrDivergent means the implied volatility search gave up: the estimate
	// went negative or non-finite, or the iteration cap was reached.
	ErrDivergent = errors.New("implied volatility did not converge")
)
