package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scanner-approval/internal/types"
)

type Config struct {
	Mode        string `yaml:"mode"`
	Exchange    string `yaml:"exchange"`
	SessionFile string `yaml:"session_file"`
	KiteBaseURI string `yaml:"kite_base_uri"`
	MetricsAddr string `yaml:"metrics_addr"`
	Scanner     struct {
		URLEnv string `yaml:"url_env"`
		KeyEnv string `yaml:"key_env"`
		Table  string `yaml:"table"`
	} `yaml:"scanner"`
	Finalize struct {
		Metric     string  `yaml:"metric"`
		Multiplier float64 `yaml:"multiplier"`
		Strategy   string  `yaml:"strategy"`
		Capital    float64 `yaml:"capital"`
	} `yaml:"finalize"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "LIVE"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.SessionFile == "" {
		c.SessionFile = "kite_session.json"
	}
	if c.Scanner.URLEnv == "" {
		c.Scanner.URLEnv = "SUPABASE_URL"
	}
	if c.Scanner.KeyEnv == "" {
		c.Scanner.KeyEnv = "SUPABASE_KEY"
	}
	if c.Scanner.Table == "" {
		c.Scanner.Table = "scanner_results"
	}
	if c.Finalize.Metric == "" {
		c.Finalize.Metric = string(types.MetricTrueRange)
	}
	if c.Finalize.Multiplier == 0 {
		c.Finalize.Multiplier = 1.5
	}
	if c.Finalize.Strategy == "" {
		c.Finalize.Strategy = string(types.StrategyOneEach)
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Exchange == "" {
		return errors.New("exchange cannot be empty")
	}
	m := types.Metric(c.Finalize.Metric)
	if m != types.MetricTrueRange && m != types.MetricATR {
		return fmt.Errorf("finalize.metric must be 'TRUE_RANGE' or 'ATR', got '%s'", c.Finalize.Metric)
	}
	if c.Finalize.Multiplier < 0 {
		return fmt.Errorf("finalize.multiplier must be non-negative, got %.2f", c.Finalize.Multiplier)
	}
	s := types.Strategy(c.Finalize.Strategy)
	if s != types.StrategyOneEach && s != types.StrategyEqualDistribution {
		return fmt.Errorf("finalize.strategy must be 'ONE_EACH' or 'EQUAL_DISTRIBUTION', got '%s'", c.Finalize.Strategy)
	}
	if s == types.StrategyEqualDistribution && c.Finalize.Capital <= 0 {
		return fmt.Errorf("finalize.capital must be positive for EQUAL_DISTRIBUTION, got %.2f", c.Finalize.Capital)
	}
	return nil
}

// ScannerCredentials resolves the hosted store URL and key from the environment.
func (c *Config) ScannerCredentials() (url, key string) {
	return os.Getenv(c.Scanner.URLEnv), os.Getenv(c.Scanner.KeyEnv)
}

// LoadConfig reads path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
