package surface

import (
	"errors"

	"github.com/contactkeval/vol-surface/internal/pricing"
)

// FailureReason tags why a quote produced no surface point.
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonInvalidQuote  FailureReason = "invalid_quote"
	ReasonNonComputable FailureReason = "non_computable"
	ReasonDivergent     FailureReason = "divergent"
)

// QuoteResult is the per-quote outcome threaded through a build: either a
// converged solve or a tagged failure.
type QuoteResult struct {
	Quote        Quote               `json:"quote"`
	TimeToExpiry float64             `json:"time_to_expiry"`
	Solve        pricing.SolveResult `json:"solve"`
	Reason       FailureReason       `json:"reason,omitempty"`
	Error        string              `json:"error,omitempty"`

	err error
}

// OK reports whether the quote produced a surface point.
func (r QuoteResult) OK() bool {
	return r.err == nil && r.Solve.Converged()
}

// Err returns the underlying failure, nil on success.
func (r QuoteResult) Err() error { return r.err }

// Point converts a successful result into a surface point.
func (r QuoteResult) Point() Point {
	return Point{
		Kind:         r.Quote.Kind,
		Strike:       r.Quote.Strike,
		TimeToExpiry: r.TimeToExpiry,
		Vol:          r.Solve.Vol,
	}
}

func failed(r QuoteResult, err error) QuoteResult {
	r.err = err
	r.Error = err.Error()
	r.Reason = classify(err)
	return r
}

// classify maps an error chain onto the failure taxonomy. Invalid contracts
// reaching the solver are quote problems too.
func classify(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrInvalidQuote), errors.Is(err, pricing.ErrInvalidContract):
		return ReasonInvalidQuote
	case errors.Is(err, pricing.ErrNonComputable):
		return ReasonNonComputable
	default:
		return ReasonDivergent
	}
}
