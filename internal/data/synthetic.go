package data

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/contactkeval/vol-surface/internal/pricing"
)

// SyntheticConfig shapes a generated chain. Prices come from the lattice at
// vol(K) = BaseVol + Skew*((K-S)/S)^2, optionally perturbed by Noise.
type SyntheticConfig struct {
	Market     `yaml:",inline"`
	BaseVol    float64 `json:"base_vol" yaml:"base_vol"`
	Skew       float64 `json:"skew" yaml:"skew"`
	StrikeStep float64 `json:"strike_step" yaml:"strike_step"`
	Width      float64 `json:"width" yaml:"width"`         // strikes span spot +/- width
	ExpiryDays []int   `json:"expiry_days" yaml:"expiry_days"`
	Steps      int     `json:"steps" yaml:"steps"`
	Noise      float64 `json:"noise" yaml:"noise"` // relative price noise, 0 disables
	Seed       int64   `json:"seed" yaml:"seed"`
}

// DefaultSyntheticConfig is a SPY-like snapshot: spot 520.84, q 1.29%, r 5.25%.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Market:     Market{Spot: 520.84, DividendYield: 0.0129, RiskFreeRate: 0.0525},
		BaseVol:    0.14,
		Skew:       1.5,
		StrikeStep: 5,
		Width:      40,
		ExpiryDays: []int{30, 60, 120, 240},
		Steps:      pricing.DefaultSteps,
	}
}

// synthDataProvider implements Data Provider generating synthetic data.
type synthDataProvider struct {
	cfg       SyntheticConfig
	now       func() time.Time
	secondary Provider
}

// NewSyntheticProvider generates chains from cfg. secondary may be nil.
func NewSyntheticProvider(cfg SyntheticConfig, secondary Provider) Provider {
	return &synthDataProvider{cfg: cfg, now: time.Now, secondary: secondary}
}

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

// SmileVol is the volatility the generator uses for strike k.
func (cfg SyntheticConfig) SmileVol(k float64) float64 {
	m := (k - cfg.Spot) / cfg.Spot
	return cfg.BaseVol + cfg.Skew*m*m
}

func (synthDataProv *synthDataProvider) GetChain(ctx context.Context, ticker string) (*Chain, error) {
	cfg := synthDataProv.cfg
	if cfg.Spot <= 0 || cfg.StrikeStep <= 0 || cfg.BaseVol <= 0 {
		return nil, fmt.Errorf("synthetic provider: spot, strike step and base vol must be positive")
	}
	steps := cfg.Steps
	if steps <= 0 {
		steps = pricing.DefaultSteps
	}
	noise := distuv.Normal{Mu: 1, Sigma: cfg.Noise, Src: rand.NewSource(uint64(cfg.Seed))}

	now := synthDataProv.now()
	chain := &Chain{
		Ticker:        strings.ToUpper(ticker),
		Spot:          cfg.Spot,
		DividendYield: cfg.DividendYield,
		RiskFreeRate:  cfg.RiskFreeRate,
		AsOf:          now,
	}

	lo := math.Ceil((cfg.Spot-cfg.Width)/cfg.StrikeStep) * cfg.StrikeStep
	for _, days := range cfg.ExpiryDays {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expiry := now.AddDate(0, 0, days)
		eq := ExpiryQuotes{Expiration: expiry}
		for k := math.Max(lo, cfg.StrikeStep); k <= cfg.Spot+cfg.Width; k += cfg.StrikeStep {
			for _, kind := range []pricing.OptionKind{pricing.Call, pricing.Put} {
				c := pricing.Contract{
					Spot:          cfg.Spot,
					Strike:        k,
					Rate:          cfg.RiskFreeRate,
					DividendYield: cfg.DividendYield,
					Expiry:        float64(days) / 365.0,
					Kind:          kind,
					Steps:         steps,
				}
				price, err := pricing.LatticePrice(c, cfg.SmileVol(k))
				if err != nil {
					continue
				}
				if cfg.Noise > 0 {
					price *= noise.Rand()
				}
				q := StrikePrice{Strike: k, Price: math.Round(price*100) / 100}
				if kind == pricing.Call {
					eq.Calls = append(eq.Calls, q)
				} else {
					eq.Puts = append(eq.Puts, q)
				}
			}
		}
		chain.Expiries = append(chain.Expiries, eq)
	}
	return chain, nil
}
