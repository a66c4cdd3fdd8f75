// Package config loads run settings from YAML or JSON files and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/contactkeval/vol-surface/internal/data"
	"github.com/contactkeval/vol-surface/internal/logger"
	"github.com/contactkeval/vol-surface/internal/surface"
)

// APIKeyEnv holds the Massive API key. It is never read from config files.
const APIKeyEnv = "MASSIVE_API_KEY"

// Provider names.
const (
	ProviderMassive    = "massive"
	ProviderCalculator = "calculator"
	ProviderCSV        = "csv"
	ProviderSynthetic  = "synthetic"
)

// Config is one run of the surface tool. Surface settings and market
// overrides are inlined so files stay flat:
//
//	ticker: SPY
//	provider: csv
//	csv_path: chains/spy.csv
//	spot: 520.84
//	band: 30
type Config struct {
	Ticker        string `json:"ticker" yaml:"ticker"`
	Provider      string `json:"provider" yaml:"provider"`
	Fallback      string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	CSVPath       string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	CalculatorURL string `json:"calculator_url,omitempty" yaml:"calculator_url,omitempty"`
	ReportDir     string `json:"report_dir" yaml:"report_dir"`
	Verbosity     int    `json:"verbosity" yaml:"verbosity"`

	data.Overrides `yaml:",inline"`
	surface.Config `yaml:",inline"`

	Synthetic data.SyntheticConfig `json:"synthetic" yaml:"synthetic"`

	APIKey string `json:"-" yaml:"-"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Ticker:    "SPY",
		ReportDir: "out",
		Verbosity: int(logger.Info),
		Config:    surface.DefaultConfig(),
		Synthetic: data.DefaultSyntheticConfig(),
	}
}

// Load reads path over Default. The format follows the extension: .json, or
// .yaml/.yml.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads .env files when present and picks up secrets from the
// environment. With no files given, ./.env is tried.
func (c *Config) LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env: %w", err)
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.APIKey = key
	}
	return nil
}

// Validate rejects settings no run could succeed with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Ticker) == "" {
		return errors.New("config: ticker is required")
	}
	for _, name := range []string{c.Provider, c.Fallback} {
		switch name {
		case "", ProviderMassive, ProviderCalculator, ProviderCSV, ProviderSynthetic:
		default:
			return fmt.Errorf("config: unknown provider %q", name)
		}
	}
	if c.Fallback != "" && c.Fallback == c.Provider {
		return fmt.Errorf("config: fallback repeats provider %q", c.Provider)
	}
	uses := func(name string) bool { return c.Provider == name || c.Fallback == name }
	if uses(ProviderCSV) && c.CSVPath == "" {
		return errors.New("config: csv provider needs csv_path")
	}
	if uses(ProviderMassive) && c.APIKey == "" {
		return fmt.Errorf("config: massive provider needs %s", APIKeyEnv)
	}
	if uses(ProviderCalculator) && c.Spot == nil {
		return errors.New("config: calculator provider needs spot")
	}
	if math.IsNaN(c.Band) || math.IsInf(c.Band, 0) {
		return fmt.Errorf("config: band %v", c.Band)
	}
	if c.Tolerance < 0 || c.InitialVol < 0 || c.MaxIterations < 0 {
		return errors.New("config: tolerance, initial_vol and max_iterations must not be negative")
	}
	return nil
}

// ProviderName resolves an empty provider the way the command line always
// has: Massive when a key is available, synthetic otherwise.
func (c Config) ProviderName() string {
	if c.Provider != "" {
		return c.Provider
	}
	if c.APIKey != "" {
		return ProviderMassive
	}
	return ProviderSynthetic
}

// Market is the spot, yield and rate handed to feeds that do not report
// them. Unset overrides are zero.
func (c Config) Market() data.Market {
	var m data.Market
	if c.Spot != nil {
		m.Spot = *c.Spot
	}
	if c.DividendYield != nil {
		m.DividendYield = *c.DividendYield
	}
	if c.RiskFreeRate != nil {
		m.RiskFreeRate = *c.RiskFreeRate
	}
	return m
}

// NewProvider builds the configured provider, chained to the fallback when
// one is set.
func (c Config) NewProvider() (data.Provider, error) {
	var secondary data.Provider
	if c.Fallback != "" {
		var err error
		if secondary, err = c.newProvider(c.Fallback, nil); err != nil {
			return nil, err
		}
	}
	return c.newProvider(c.ProviderName(), secondary)
}

func (c Config) newProvider(name string, secondary data.Provider) (data.Provider, error) {
	market := c.Market()
	switch name {
	case ProviderMassive:
		if c.APIKey == "" {
			return nil, fmt.Errorf("massive provider: %s is not set", APIKeyEnv)
		}
		return data.NewMassiveDataProvider(c.APIKey, market, secondary), nil
	case ProviderCalculator:
		return data.NewCalculatorDataProvider(c.CalculatorURL, market, secondary), nil
	case ProviderCSV:
		return data.NewLocalCSVDataProvider(c.CSVPath, market, secondary), nil
	case ProviderSynthetic:
		syn := c.Synthetic
		if c.Spot != nil {
			syn.Spot = *c.Spot
		}
		if c.DividendYield != nil {
			syn.DividendYield = *c.DividendYield
		}
		if c.RiskFreeRate != nil {
			syn.RiskFreeRate = *c.RiskFreeRate
		}
		return data.NewSyntheticProvider(syn, secondary), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}
