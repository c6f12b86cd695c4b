// Package store provides KVStore implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/stock-master/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ inventory.KVStore   = (*Memory)(nil)
	_ inventory.KeyLister = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, inventory.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// SetBatch writes all entries under one lock, so readers never see half a batch.
func (m *Memory) SetBatch(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// =============================================================================
// FAILING STORE - wraps another store and fails writes on demand
// =============================================================================

// Failing delegates to an inner store but returns Err from writes while Fail is set.
// Tests use it to exercise checkpoint failures.
type Failing struct {
	inventory.KVStore

	mu   sync.Mutex
	fail bool
	Err  error
}

func NewFailing(inner inventory.KVStore, err error) *Failing {
	return &Failing{KVStore: inner, Err: err}
}

// SetFail toggles write failures.
func (f *Failing) SetFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *Failing) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *Failing) Set(ctx context.Context, key string, value []byte) error {
	if f.failing() {
		return f.Err
	}
	return f.KVStore.Set(ctx, key, value)
}

func (f *Failing) SetBatch(ctx context.Context, entries map[string][]byte) error {
	if f.failing() {
		return f.Err
	}
	return f.KVStore.SetBatch(ctx, entries)
}

func (f *Failing) Delete(ctx context.Context, keys ...string) error {
	if f.failing() {
		return f.Err
	}
	return f.KVStore.Delete(ctx, keys...)
}
