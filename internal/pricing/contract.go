package pricing

import (
	"fmt"
	"math"
	"strings"
)

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	Call OptionKind = "call"
	Put  OptionKind = "put"
)

// ParseOptionKind accepts "call"/"put" and the single-letter forms "c"/"p".
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option kind %q", s)
}

// DefaultSteps is the lattice depth used per quote when none is configured.
const DefaultSteps = 20

// Contract describes one option instance. It is a value type and is never
// mutated once built from a quote.
type Contract struct {
	Spot          float64    `json:"spot" yaml:"spot"`                     // S
	Strike        float64    `json:"strike" yaml:"strike"`                 // K
	Rate          float64    `json:"rate" yaml:"rate"`                     // r, annualized
	DividendYield float64    `json:"dividend_yield" yaml:"dividend_yield"` // q, annualized
	Expiry        float64    `json:"expiry" yaml:"expiry"`                 // T in years
	Kind          OptionKind `json:"kind" yaml:"kind"`
	Steps         int        `json:"steps" yaml:"steps"`
}

// Validate reports whether the contract can be put on a lattice.
func (c Contract) Validate() error {
	switch {
	case !positive(c.Spot):
		return fmt.Errorf("%w: spot %v", ErrInvalidContract, c.Spot)
	case !positive(c.Strike):
		return fmt.Errorf("%w: strike %v", ErrInvalidContract, c.Strike)
	case !positive(c.Expiry):
		return fmt.Errorf("%w: expiry %v", ErrInvalidContract, c.Expiry)
	case c.Steps < 1:
		return fmt.Errorf("%w: steps %d", ErrInvalidContract, c.Steps)
	case math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0):
		return fmt.Errorf("%w: rate %v", ErrInvalidContract, c.Rate)
	case math.IsNaN(c.DividendYield) || math.IsInf(c.DividendYield, 0):
		return fmt.Errorf("%w: dividend yield %v", ErrInvalidContract, c.DividendYield)
	case c.Kind != Call && c.Kind != Put:
		return fmt.Errorf("%w: kind %q", ErrInvalidContract, c.Kind)
	}
	return nil
}

// Intrinsic returns the immediate-exercise value at underlying price s.
func (c Contract) Intrinsic(s float64) float64 {
	if c.Kind == Put {
		return math.Max(c.Strike-s, 0)
	}
	return math.Max(s-c.Strike, 0)
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
