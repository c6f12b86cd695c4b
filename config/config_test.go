package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-master/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, "stock.db", cfg.SQLitePath)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.True(t, cfg.SeedDefaults)
	assert.False(t, cfg.EnforceUniqueSKU)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STOCK_ENV", "production")
	t.Setenv("STOCK_STORE", "redis")
	t.Setenv("STOCK_REDIS_ADDR", "cache:6379")
	t.Setenv("STOCK_ENFORCE_UNIQUE_SKU", "true")
	t.Setenv("STOCK_RATE_LIMIT", "0")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.True(t, cfg.EnforceUniqueSKU)
	assert.Equal(t, 0, cfg.RateLimit)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STOCK_STORE", "postgres")

	_, err := config.Load()
	assert.ErrorContains(t, err, "unknown store")
}
