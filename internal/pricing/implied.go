package pricing

import (
	"errors"
	"fmt"
	"math"
)

// Solver defaults. The search starts mid-band: from low starts, far
// out-of-the-money calls overshoot below zero on the first step and deep
// in-the-money puts sit entirely in the exercise region, where vega is zero.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-4
	DefaultInitialVol    = 0.5
)

// Status is the terminal state of one implied volatility search.
type Status string

const (
	StatusConverged Status = "converged"
	StatusDiverged  Status = "diverged"
)

// SolveResult is the outcome of Solver.Solve. Vol is only meaningful when
// Status is StatusConverged.
type SolveResult struct {
	Status     Status  `json:"status"`
	Vol        float64 `json:"vol,omitempty"`
	Iterations int     `json:"iterations"`
	Reason     string  `json:"reason,omitempty"`
}

// Converged reports whether the search produced a usable volatility.
func (r SolveResult) Converged() bool { return r.Status == StatusConverged }

// Solver finds the volatility at which Price matches an observed premium
// using Newton-Raphson with a finite-difference vega.
type Solver struct {
	Price         PriceFunc
	MaxIterations int
	Tolerance     float64
	InitialVol    float64
	Bump          float64
}

// NewSolver returns a lattice-backed solver with the default policy.
func NewSolver() *Solver {
	return &Solver{
		Price:         LatticePrice,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		InitialVol:    DefaultInitialVol,
		Bump:          VegaBump,
	}
}

// ImpliedVol solves with the default lattice solver.
func ImpliedVol(c Contract, marketPrice float64) (SolveResult, error) {
	return NewSolver().Solve(c, marketPrice)
}

// Solve runs the search for one contract.
//
// The error is nil only for a converged result. Failures wrap
// ErrInvalidContract, ErrNonComputable (pricer or vega could not be
// evaluated along the way) or ErrDivergent (negative or non-finite estimate,
// or the iteration cap was hit).
func (s *Solver) Solve(c Contract, marketPrice float64) (SolveResult, error) {
	cfg := s.withDefaults()

	if err := c.Validate(); err != nil {
		return diverged(0, err)
	}
	if !positive(marketPrice) {
		return diverged(0, fmt.Errorf("%w: market price %v", ErrInvalidContract, marketPrice))
	}

	vol := cfg.InitialVol
	for i := 1; i <= cfg.MaxIterations; i++ {
		price, err := cfg.Price(c, vol)
		if err != nil {
			return diverged(i, fmt.Errorf("price at %v: %w", vol, asNonComputable(err)))
		}
		vega, err := FiniteDifferenceVega(cfg.Price, c, vol, cfg.Bump)
		if err != nil {
			return diverged(i, err)
		}
		if vega == 0 || !finite(vega) {
			return diverged(i, fmt.Errorf("%w: vega %v at %v", ErrNonComputable, vega, vol))
		}

		next := vol - (price-marketPrice)/vega
		if !finite(next) || next <= 0 {
			return diverged(i, fmt.Errorf("%w: estimate %v after %d iterations", ErrDivergent, next, i))
		}
		if math.Abs(next-vol) < cfg.Tolerance {
			return SolveResult{Status: StatusConverged, Vol: next, Iterations: i}, nil
		}
		vol = next
	}

	return diverged(cfg.MaxIterations, fmt.Errorf("%w: no convergence within %d iterations", ErrDivergent, cfg.MaxIterations))
}

// withDefaults fills unset fields on a copy so a Solver can be shared by
// concurrent callers.
func (s *Solver) withDefaults() Solver {
	cfg := *s
	if cfg.Price == nil {
		cfg.Price = LatticePrice
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if !positive(cfg.InitialVol) {
		cfg.InitialVol = DefaultInitialVol
	}
	if !positive(cfg.Bump) {
		cfg.Bump = VegaBump
	}
	return cfg
}

func diverged(iterations int, err error) (SolveResult, error) {
	return SolveResult{Status: StatusDiverged, Iterations: iterations, Reason: err.Error()}, err
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
