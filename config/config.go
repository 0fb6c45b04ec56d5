/*
config.go - YAML configuration with defaults and environment overrides

PURPOSE:
  Single place where runtime settings are declared. Every field is optional:
  Default() is a runnable configuration and the file only overrides it.

FILE: incentive.yaml
  server:    port, allowed_origins, static_dir
  database:  path (":memory:" for a throwaway database)
  logging:   level (debug|info|warn|error), development
  plan:      base_pct, seller_pct, excluded_products, invalid_stages
  sentinels: per-dimension fallback text
  source:    base_url, token_url, client credentials, paging and retry limits
  sync:      cron spec, enabled

ENVIRONMENT (applied after the file):
  INCENTIVE_DB, INCENTIVE_PORT, INCENTIVE_LOG_LEVEL, INCENTIVE_SOURCE_URL,
  INCENTIVE_SOURCE_CLIENT_ID, INCENTIVE_SOURCE_CLIENT_SECRET,
  INCENTIVE_SOURCE_REFRESH_TOKEN

SEE ALSO:
  - cmd/incentive: loads the file and wires the components
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/source"
)

// Config holds all engine configuration.
type Config struct {
	Server    ServerConfig       `yaml:"server"`
	Database  DatabaseConfig     `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
	Plan      PlanConfig         `yaml:"plan"`
	Sentinels contract.Sentinels `yaml:"sentinels"`
	Source    SourceConfig       `yaml:"source"`
	Sync      SyncConfig         `yaml:"sync"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// PlanConfig keeps fractions as strings so YAML floats never reach the money
// path.
type PlanConfig struct {
	BasePct          string   `yaml:"base_pct"`
	SellerPct        string   `yaml:"seller_pct"`
	ExcludedProducts []string `yaml:"excluded_products"`
	InvalidStages    []string `yaml:"invalid_stages"`
}

// SourceConfig describes the external contract source. Durations use
// time.ParseDuration syntax ("250ms", "2s").
type SourceConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	PageSize     int    `yaml:"page_size"`
	MinInterval  string `yaml:"min_interval"`
	MaxRetries   int    `yaml:"max_retries"`
	BaseBackoff  string `yaml:"base_backoff"`
	Timeout      string `yaml:"timeout"`
}

type SyncConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	plan := commission.DefaultPlan()
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
			StaticDir:      "./web/dist",
		},
		Database: DatabaseConfig{Path: "incentive.db"},
		Logging:  LoggingConfig{Level: "info"},
		Plan: PlanConfig{
			BasePct:          plan.BasePct.String(),
			SellerPct:        plan.SellerPct.String(),
			ExcludedProducts: append([]string(nil), plan.ExcludedProducts...),
			InvalidStages:    append([]string(nil), plan.InvalidStages...),
		},
		Sentinels: contract.DefaultSentinels(),
		Source: SourceConfig{
			PageSize:    200,
			MinInterval: "250ms",
			MaxRetries:  5,
			BaseBackoff: "1s",
			Timeout:     "30s",
		},
		Sync: SyncConfig{Enabled: false, Cron: "*/30 * * * *"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("INCENTIVE_DB"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("INCENTIVE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("INCENTIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("INCENTIVE_SOURCE_URL"); url != "" {
		c.Source.BaseURL = url
	}
	if id := os.Getenv("INCENTIVE_SOURCE_CLIENT_ID"); id != "" {
		c.Source.ClientID = id
	}
	if secret := os.Getenv("INCENTIVE_SOURCE_CLIENT_SECRET"); secret != "" {
		c.Source.ClientSecret = secret
	}
	if token := os.Getenv("INCENTIVE_SOURCE_REFRESH_TOKEN"); token != "" {
		c.Source.RefreshToken = token
	}
}

// Validate checks the fields that have no safe fallback.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.CommissionPlan(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// CommissionPlan converts the plan section. Blank fractions keep the default.
func (c *Config) CommissionPlan() (commission.Plan, error) {
	plan := commission.DefaultPlan()
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"plan.base_pct", c.Plan.BasePct, &plan.BasePct},
		{"plan.seller_pct", c.Plan.SellerPct, &plan.SellerPct},
	} {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return commission.Plan{}, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return commission.Plan{}, fmt.Errorf("invalid %s %q: must be a fraction in [0, 1]", f.name, f.raw)
		}
		*f.dst = d
	}
	if c.Plan.ExcludedProducts != nil {
		plan.ExcludedProducts = c.Plan.ExcludedProducts
	}
	if c.Plan.InvalidStages != nil {
		plan.InvalidStages = c.Plan.InvalidStages
	}
	return plan, nil
}

// SourceClient converts the source section.
func (c *Config) SourceClient() source.Config {
	return source.Config{
		BaseURL:      c.Source.BaseURL,
		TokenURL:     c.Source.TokenURL,
		ClientID:     c.Source.ClientID,
		ClientSecret: c.Source.ClientSecret,
		RefreshToken: c.Source.RefreshToken,
		PageSize:     c.Source.PageSize,
		MinInterval:  duration(c.Source.MinInterval, 250*time.Millisecond),
		MaxRetries:   c.Source.MaxRetries,
		BaseBackoff:  duration(c.Source.BaseBackoff, time.Second),
	}
}

// SourceTimeout is the per-request HTTP timeout for the source client.
func (c *Config) SourceTimeout() time.Duration {
	return duration(c.Source.Timeout, 30*time.Second)
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Logger builds the process logger from the logging section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
