package pricing

import (
	"fmt"
	"math"
)

// probTolerance absorbs rounding when checking that transition probabilities
// lie in [0,1].
const probTolerance = 1e-12

// Probabilities are the per-step transition probabilities of the lattice.
type Probabilities struct {
	Up, Mid, Down float64
}

// Valid reports whether each probability lies in [0,1] and they sum to one.
func (p Probabilities) Valid() bool {
	for _, x := range []float64{p.Up, p.Mid, p.Down} {
		if !finite(x) || x < -probTolerance || x > 1+probTolerance {
			return false
		}
	}
	return math.Abs(p.Up+p.Mid+p.Down-1) < 1e-9
}

// treeParams holds the per-volatility quantities shared by every node.
type treeParams struct {
	dt       float64
	up       float64 // u; down is 1/u, middle is 1
	probs    Probabilities
	discount float64
}

func newTreeParams(c Contract, vol float64) (treeParams, error) {
	if !positive(vol) {
		return treeParams{}, fmt.Errorf("%w: volatility %v", ErrNonComputable, vol)
	}

	dt := c.Expiry / float64(c.Steps)
	u := math.Exp(vol * math.Sqrt(2*dt))

	a := math.Exp((c.Rate - c.DividendYield) * dt / 2)
	b := math.Exp(-vol * math.Sqrt(dt/2))
	cc := math.Exp(vol * math.Sqrt(dt/2))
	spread := cc - b

	pu := math.Pow((a-b)/spread, 2)
	pd := math.Pow((cc-a)/spread, 2)
	probs := Probabilities{Up: pu, Mid: 1 - pu - pd, Down: pd}

	if !finite(u) || u <= 1 || spread <= 0 || !finite(spread) || !probs.Valid() {
		return treeParams{}, fmt.Errorf("%w: volatility %v gives u=%v p=%+v", ErrNonComputable, vol, u, probs)
	}

	return treeParams{
		dt:       dt,
		up:       u,
		probs:    probs,
		discount: math.Exp(-c.Rate * dt),
	}, nil
}

// TransitionProbabilities exposes the lattice probabilities for a contract at
// a given volatility.
func TransitionProbabilities(c Contract, vol float64) (Probabilities, error) {
	if err := c.Validate(); err != nil {
		return Probabilities{}, err
	}
	p, err := newTreeParams(c, vol)
	if err != nil {
		return Probabilities{}, err
	}
	return p.probs, nil
}

// LatticePrice values an American-style option on a trinomial lattice.
//
// Parameters:
//   - c: the contract; must pass Validate
//   - vol: annualized volatility as a decimal, strictly positive
//
// Returns the option value at the root node, ErrInvalidContract for an
// unusable contract, or ErrNonComputable when the volatility yields an
// ill-posed lattice or a non-finite value anywhere during induction.
func LatticePrice(c Contract, vol float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	p, err := newTreeParams(c, vol)
	if err != nil {
		return 0, err
	}

	l := NewLattice(c.Steps)
	fillPrices(l, c.Spot, p.up)

	last := l.Cols() - 1
	for k := -last; k <= last; k++ {
		l.Set(l.PriceRow(k)+1, last, c.Intrinsic(l.Price(k, last)))
	}

	for col := last - 1; col >= 0; col-- {
		for k := -col; k <= col; k++ {
			cont := p.discount * (p.probs.Up*l.Value(k+1, col+1) +
				p.probs.Mid*l.Value(k, col+1) +
				p.probs.Down*l.Value(k-1, col+1))
			if !finite(cont) {
				return 0, fmt.Errorf("%w: continuation at node (%d,%d)", ErrNonComputable, k, col)
			}
			l.Set(l.PriceRow(k)+1, col, math.Max(c.Intrinsic(l.Price(k, col)), cont))
		}
	}

	v := l.Value(0, 0)
	if !finite(v) {
		return 0, fmt.Errorf("%w: root value %v", ErrNonComputable, v)
	}
	return v, nil
}

// fillPrices writes S*u^k into every reachable node. Branches recombine, so
// node k has the same price in every column that reaches it.
func fillPrices(l *Lattice, spot, u float64) {
	steps := l.Cols() - 1
	ups := make([]float64, steps+1)
	ups[0] = 1
	for k := 1; k <= steps; k++ {
		ups[k] = ups[k-1] * u
	}
	for col := 0; col <= steps; col++ {
		l.Set(l.PriceRow(0), col, spot)
		for k := 1; k <= col; k++ {
			l.Set(l.PriceRow(k), col, spot*ups[k])
			l.Set(l.PriceRow(-k), col, spot/ups[k])
		}
	}
}
