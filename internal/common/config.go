// Package common provides shared utilities for Skew
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Skew
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Logging     LoggingConfig  `toml:"logging"`
	Targets     TargetsConfig  `toml:"targets"`
	Criteria    CriteriaConfig `toml:"criteria"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds cache storage configuration.
// Backend is "badger" (durable across restarts) or "memory" (ephemeral).
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	FMP    FMPConfig    `toml:"fmp"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration (primary market data source)
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FMPConfig holds Financial Modeling Prep API configuration (secondary source)
type FMPConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FMPConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Enabled bool   `toml:"enabled"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GeminiConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// TargetsConfig holds the target-allocation table: ticker → target portfolio
// percentage, plus the default cap applied to tickers absent from the table.
type TargetsConfig struct {
	Allocations map[string]float64 `toml:"allocations"`
	MaxPerAsset float64            `toml:"max_per_asset"`
}

// CriteriaConfig holds the system-wide default strategy criteria.
// A strategy's declared criteria are merged over these per request.
type CriteriaConfig struct {
	DividendYieldMin       float64  `toml:"dividend_yield_min"`
	DividendYieldMax       float64  `toml:"dividend_yield_max"`
	PERatioMax             float64  `toml:"pe_ratio_max"`
	PriceToBookMax         float64  `toml:"price_to_book_max"`
	AllowedSectors         []string `toml:"allowed_sectors"`
	ExcludedSectors        []string `toml:"excluded_sectors"`
	MaxConcentrationPct    float64  `toml:"max_concentration_per_asset"`
	MinDiversification     int      `toml:"min_diversification"`
	PriceCeilingMultiplier float64  `toml:"price_ceiling_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/cache",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			FMP: FMPConfig{
				BaseURL:   "https://financialmodelingprep.com/api/v3",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Enabled: true,
				Timeout: "60s",
			},
		},
		Targets: TargetsConfig{
			Allocations: map[string]float64{},
			MaxPerAsset: 10,
		},
		Criteria: CriteriaConfig{
			DividendYieldMin:       0.06,
			DividendYieldMax:       0,
			PERatioMax:             10,
			PriceToBookMax:         2,
			MaxConcentrationPct:    10,
			MinDiversification:     5,
			PriceCeilingMultiplier: 0.06,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SKEW_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SKEW_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SKEW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SKEW_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("SKEW_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if backend := os.Getenv("SKEW_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if v := os.Getenv("SKEW_GEMINI_DISABLED"); v == "1" || strings.EqualFold(v, "true") {
		config.Clients.Gemini.Enabled = false
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or config fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "SKEW_EODHD_API_KEY"},
		"fmp_api_key":    {"FMP_API_KEY", "SKEW_FMP_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "SKEW_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
