// Package config loads the YAML configuration for backcast and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration.
type Config struct {
	Symbol   string         `yaml:"symbol"`
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	ParamsPath string `yaml:"params_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig defines simulation defaults.
type BacktestConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	Commission      float64 `yaml:"commission"`
	SlippagePct     float64 `yaml:"slippage_pct"`
	PositionSizePct float64 `yaml:"position_size_pct"` // 0 or 1 = full capital
}

// SweepConfig controls sensitivity sweep execution.
type SweepConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// Default returns a Config populated with sensible defaults, used when no
// config file is present.
func Default() *Config {
	return &Config{
		Symbol: "IBIT",
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/backcast.db",
			ParamsPath: "data/params.json",
		},
		Logging: Logging{Level: "info", Format: "json"},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
			Commission:     0,
			SlippagePct:    0.02,
		},
		Sweep: SweepConfig{MaxWorkers: 4},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.Backtest.InitialCapital <= 0 {
		return nil, fmt.Errorf("backtest.initial_capital must be positive, got %v", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.PositionSizePct < 0 || cfg.Backtest.PositionSizePct > 1 {
		return nil, fmt.Errorf("backtest.position_size_pct must be in [0,1], got %v", cfg.Backtest.PositionSizePct)
	}

	return cfg, nil
}

// LoadOrDefault is Load, falling back to defaults (plus environment
// overrides) when no config file exists at path.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return Load(path)
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
