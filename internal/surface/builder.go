// Package surface turns an option chain into an implied-volatility surface.
//
// Every quote is an independent unit of work: it is validated, priced on its
// own lattice and calibrated by its own solver. A failing quote never aborts
// the batch; it is recorded as a QuoteResult with a FailureReason and the
// surface simply has a gap there.
package surface

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/logger"
	"github.com/contactkeval/vol-surface/internal/pricing"
)

// DefaultBand is the moneyness window, in price units around spot.
const DefaultBand = 30.0

// Config controls a surface build. Market parameters are not part of it; they
// travel with the chain.
type Config struct {
	Band          float64 `json:"band" yaml:"band"`
	Steps         int     `json:"steps" yaml:"steps"`
	Workers       int     `json:"workers" yaml:"workers"`
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
	Tolerance     float64 `json:"tolerance" yaml:"tolerance"`
	InitialVol    float64 `json:"initial_vol" yaml:"initial_vol"`
	DropResults   bool    `json:"drop_results" yaml:"drop_results"` // omit per-quote results from the Surface
}

// DefaultConfig is a +/-30 band, 20 lattice steps and one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Band:          DefaultBand,
		Steps:         pricing.DefaultSteps,
		Workers:       runtime.GOMAXPROCS(0),
		MaxIterations: pricing.DefaultMaxIterations,
		Tolerance:     pricing.DefaultTolerance,
		InitialVol:    pricing.DefaultInitialVol,
	}
}

// Builder runs the solver across a chain.
type Builder struct {
	cfg    Config
	solver *pricing.Solver
	now    func() time.Time
}

// NewBuilder fills zero-valued settings from DefaultConfig. A zero Band means
// the default band; pass a negative band to disable filtering.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.Band == 0 {
		cfg.Band = def.Band
	}
	if cfg.Steps <= 0 {
		cfg.Steps = def.Steps
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}

	return &Builder{cfg: cfg, solver: cfg.Solver(), now: time.Now}
}

// Solver returns a lattice solver with the configured iteration policy.
// Unset fields keep the solver defaults.
func (cfg Config) Solver() *pricing.Solver {
	solver := pricing.NewSolver()
	if cfg.MaxIterations > 0 {
		solver.MaxIterations = cfg.MaxIterations
	}
	if cfg.Tolerance > 0 {
		solver.Tolerance = cfg.Tolerance
	}
	if cfg.InitialVol > 0 {
		solver.InitialVol = cfg.InitialVol
	}
	return solver
}

// WithClock overrides the time source used for time-to-expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Config returns the effective configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build solves every in-band quote of chain. It only fails for a chain that
// cannot be used at all (nil, non-positive spot) or when ctx is cancelled;
// per-quote failures are reported in the summary and results.
func (b *Builder) Build(ctx context.Context, chain *data.Chain) (*Surface, error) {
	if chain == nil {
		return nil, fmt.Errorf("build surface: nil chain")
	}
	if !(chain.Spot > 0) {
		return nil, fmt.Errorf("build surface %s: spot %v must be positive", chain.Ticker, chain.Spot)
	}

	now := b.now()
	all := QuotesFromChain(chain)
	quotes := make([]Quote, 0, len(all))
	for _, q := range all {
		// non-finite strikes stay in so they are reported as invalid
		if !finite(q.Strike) || InBand(q.Strike, chain.Spot, b.cfg.Band) {
			quotes = append(quotes, q)
		}
	}

	logger.Infof("building surface for %s: %d quotes, %d within +/-%.2f of spot %.2f",
		chain.Ticker, len(all), len(quotes), b.cfg.Band, chain.Spot)

	results := make([]QuoteResult, len(quotes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range quotes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.solveQuote(quotes[i], chain, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build surface %s: %w", chain.Ticker, err)
	}

	s := &Surface{
		RunID:  uuid.NewString(),
		Ticker: chain.Ticker,
		Spot:   chain.Spot,
		AsOf:   now,
	}
	s.Summary.Quotes = len(all)
	s.Summary.Filtered = len(all) - len(quotes)

	for _, r := range results {
		switch {
		case r.OK():
			s.Summary.Converged++
			if r.Quote.Kind == pricing.Call {
				s.Calls = append(s.Calls, r.Point())
			} else {
				s.Puts = append(s.Puts, r.Point())
			}
			continue
		case r.Reason == ReasonInvalidQuote:
			s.Summary.Invalid++
		case r.Reason == ReasonNonComputable:
			s.Summary.NonComputable++
		default:
			s.Summary.Divergent++
		}
		logger.WithFields(logrus.Fields{
			"symbol": r.Quote.Symbol,
			"reason": r.Reason,
		}).Debugf("quote skipped: %s", r.Error)
	}

	sortPoints(s.Calls)
	sortPoints(s.Puts)
	s.Summary.Calls = Describe(s.Calls)
	s.Summary.Puts = Describe(s.Puts)
	if !b.cfg.DropResults {
		s.Results = results
	}

	logger.Infof("surface %s: %d converged, %d invalid, %d non-computable, %d divergent",
		chain.Ticker, s.Summary.Converged, s.Summary.Invalid, s.Summary.NonComputable, s.Summary.Divergent)
	return s, nil
}

// solveQuote never panics past its own frame: a bug hit while pricing one
// quote is recorded against that quote only.
func (b *Builder) solveQuote(q Quote, chain *data.Chain, now time.Time) (res QuoteResult) {
	res = QuoteResult{Quote: q, TimeToExpiry: TimeToExpiry(q.Expiration, now)}
	defer func() {
		if p := recover(); p != nil {
			res = failed(res, fmt.Errorf("%w: panic: %v", pricing.ErrNonComputable, p))
		}
	}()

	if err := q.Validate(chain.Spot, now); err != nil {
		return failed(res, err)
	}

	c := pricing.Contract{
		Spot:          chain.Spot,
		Strike:        q.Strike,
		Rate:          chain.RiskFreeRate,
		DividendYield: chain.DividendYield,
		Expiry:        res.TimeToExpiry,
		Kind:          q.Kind,
		Steps:         b.cfg.Steps,
	}
	solve, err := b.solver.Solve(c, q.Price)
	res.Solve = solve
	if err != nil {
		return failed(res, err)
	}
	return res
}

// SolveQuote solves a single quote against the chain's market parameters.
func (b *Builder) SolveQuote(q Quote, chain *data.Chain) QuoteResult {
	return b.solveQuote(q, chain, b.now())
}
