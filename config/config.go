package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tradeflow TradeflowConfig `yaml:"tradeflow"`
	Server    ServerConfig    `yaml:"server"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Trade     TradeConfig     `yaml:"trade"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type TradeflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ExchangeConfig struct {
	APIKey         string               `yaml:"api_key"`
	APISecret      string               `yaml:"api_secret"`
	Testnet        bool                 `yaml:"testnet"`
	Endpoint       string               `yaml:"endpoint"`
	Timeout        time.Duration        `yaml:"timeout"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type TradeConfig struct {
	// NotionalUSDT is the fixed quote-currency budget allocated per trade,
	// independent of leverage.
	NotionalUSDT     float64       `yaml:"notional_usdt"`
	Leverage         int           `yaml:"leverage"`
	FillPollInterval time.Duration `yaml:"fill_poll_interval"`
	FillWaitTimeout  time.Duration `yaml:"fill_wait_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatchEnabled bool   `yaml:"cloudwatch_enabled"`
	Namespace         string `yaml:"namespace"`
	Region            string `yaml:"region"`
}

// LoadConfig reads the yaml configuration file at path, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Tradeflow: TradeflowConfig{Name: "tradeflow", Version: "dev"},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    90 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Exchange: ExchangeConfig{
			Testnet: true,
			Timeout: 15 * time.Second,
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    16,
				MaxConnsPerHost: 16,
				IdleConnTimeout: 90 * time.Second,
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 10, BurstSize: 20},
		},
		Trade: TradeConfig{
			NotionalUSDT:     250,
			Leverage:         1,
			FillPollInterval: 100 * time.Millisecond,
			FillWaitTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// applyEnvOverrides keeps the deployment surface of the original service:
// credentials, testnet switch, budget and leverage are all settable through
// environment variables and win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		cfg.Exchange.Testnet = parseBool(v, cfg.Exchange.Testnet)
	}
	if v := os.Getenv("FIX_USDT_AMOUNT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trade.NotionalUSDT = f
		}
	}
	if v := os.Getenv("LEVERAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trade.Leverage = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func parseBool(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// Validate checks the invariants the rest of the service relies on. It is
// called from LoadConfig but exported so tests can exercise it directly.
func (c *Config) Validate() error {
	if c.Trade.NotionalUSDT <= 0 {
		return fmt.Errorf("trade.notional_usdt must be positive, got %v", c.Trade.NotionalUSDT)
	}
	if c.Trade.Leverage <= 0 {
		return fmt.Errorf("trade.leverage must be positive, got %d", c.Trade.Leverage)
	}
	if c.Trade.FillPollInterval <= 0 {
		return fmt.Errorf("trade.fill_poll_interval must be positive, got %v", c.Trade.FillPollInterval)
	}
	if c.Trade.FillWaitTimeout <= c.Trade.FillPollInterval {
		return fmt.Errorf("trade.fill_wait_timeout (%v) must exceed fill_poll_interval (%v)",
			c.Trade.FillWaitTimeout, c.Trade.FillPollInterval)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Exchange.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("exchange.rate_limit.requests_per_second must be positive")
	}
	if c.Exchange.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("exchange.rate_limit.burst_size must be positive")
	}
	if IsProductionLike(AppEnvironment()) {
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange credentials are required in %s", AppEnvironment())
		}
	}
	return nil
}
