// Package store opens the KVStore backend selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/warp/stock-master/config"
	"github.com/warp/stock-master/inventory"
	memstore "github.com/warp/stock-master/inventory/store"
	"github.com/warp/stock-master/store/redis"
	"github.com/warp/stock-master/store/sqlite"
)

// Backend is a KVStore that holds resources until closed.
type Backend interface {
	inventory.KVStore
	Close() error
}

type memoryBackend struct {
	*memstore.Memory
}

func (memoryBackend) Close() error { return nil }

// Open returns the backend named by cfg.Store.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memoryBackend{memstore.NewMemory()}, nil
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", cfg.Store)
}
