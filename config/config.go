// Package config reads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds runtime configuration for the server and the CLI.
type Config struct {
	Env          string        `envconfig:"STOCK_ENV" default:"development"`
	Addr         string        `envconfig:"STOCK_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"STOCK_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"STOCK_WRITE_TIMEOUT" default:"15s"`

	LogLevel string `envconfig:"STOCK_LOG_LEVEL" default:"info"`

	Store       string `envconfig:"STOCK_STORE" default:"sqlite"`
	SQLitePath  string `envconfig:"STOCK_SQLITE_PATH" default:"stock.db"`
	RedisAddr   string `envconfig:"STOCK_REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPrefix string `envconfig:"STOCK_REDIS_PREFIX" default:"stock:"`

	SeedDefaults     bool `envconfig:"STOCK_SEED_DEFAULTS" default:"true"`
	EnforceUniqueSKU bool `envconfig:"STOCK_ENFORCE_UNIQUE_SKU" default:"false"`

	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit int `envconfig:"STOCK_RATE_LIMIT" default:"120"`
}

// Load reads configuration from STOCK_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig can't.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store %q (want memory, sqlite or redis)", c.Store)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}
