package redis_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-master/inventory"
	"github.com/warp/stock-master/store/redis"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := redis.Dial(context.Background(), mr.Addr(), "stock:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// =============================================================================
// KV CONTRACT
// =============================================================================

func TestRedis_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, inventory.ErrKeyNotFound)
}

func TestRedis_KeysArePrefixed(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.Set(ctx, "inventory_products_u1", []byte(`[]`)))

	raw, err := mr.Get("stock:inventory_products_u1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
	v, err := s.Get(ctx, "inventory_products_u1")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))
}

func TestRedis_Keys_ScopedToPrefix(t *testing.T) {
	// GIVEN: Keys under the store prefix, a foreign key and a literal glob character
	// WHEN: Keys are listed by prefix
	// THEN: Only matching keys come back, without the store prefix, sorted

	ctx := context.Background()
	s, mr := newTestStore(t)
	require.NoError(t, s.SetBatch(ctx, map[string][]byte{
		"inventory_products_u2":  []byte(`[]`),
		"inventory_products_u1":  []byte(`[]`),
		"inventory_movements_u1": []byte(`[]`),
		"odd*key":                []byte(`x`),
	}))
	require.NoError(t, mr.Set("other:inventory_products_u3", "[]"))

	keys, err := s.Keys(ctx, "inventory_products_")
	require.NoError(t, err)
	assert.Equal(t, []string{"inventory_products_u1", "inventory_products_u2"}, keys)

	keys, err = s.Keys(ctx, "odd*")
	require.NoError(t, err)
	assert.Equal(t, []string{"odd*key"}, keys)

	keys, err = s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 4)
}

func TestRedis_ListScopes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, user := range []string{"carol", "alice"} {
		_, err := inventory.NewGateway(s, user).Initialize(ctx, inventory.Seed{})
		require.NoError(t, err)
	}

	users, err := inventory.ListScopes(ctx, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, users)
}

func TestRedis_SetBatchAndDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, s.SetBatch(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))
	mr.CheckGet(t, "stock:a", "1")
	mr.CheckGet(t, "stock:b", "2")

	require.NoError(t, s.Delete(ctx, "a", "missing"))
	assert.False(t, mr.Exists("stock:a"))
	assert.True(t, mr.Exists("stock:b"))

	require.NoError(t, s.SetBatch(ctx, nil))
	require.NoError(t, s.Delete(ctx))
}

func TestRedis_Dial_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redis.Dial(context.Background(), addr, "")

	assert.Error(t, err)
}

func TestRedis_New_WrapsExistingClient(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := redis.New(client, "")
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Set(ctx, "k", []byte("v")))

	mr.CheckGet(t, "k", "v")
}

// =============================================================================
// END TO END
// =============================================================================

func TestRedis_TwoProcessesShareAScope(t *testing.T) {
	// GIVEN: Two Inventory handles on the same Redis, same user
	// WHEN: One validates a delivery
	// THEN: The other sees it after a reload

	ctx := context.Background()
	mr := miniredis.RunT(t)
	open := func() *inventory.Inventory {
		s, err := redis.Dial(ctx, mr.Addr(), "stock:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		inv, err := inventory.Open(ctx, inventory.NewGateway(s, "u1"), inventory.Options{UserID: "u1", SeedDefaults: true})
		require.NoError(t, err)
		return inv
	}
	first := open()
	second := open()

	wh := first.Warehouses()[0]
	p := first.Products()[0]
	adj, err := first.AddAdjustment(ctx, inventory.AdjustmentInput{
		WarehouseID:    wh.ID,
		AdjustmentType: inventory.AdjustmentCount,
		Lines:          []inventory.AdjustmentLineInput{{ProductID: p.ID, Difference: 8}},
	})
	require.NoError(t, err)
	_, err = first.ValidateAdjustment(ctx, adj.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, second.QuantityAt(p.ID, wh.ID), "no reload yet")
	require.NoError(t, second.Reload(ctx))
	assert.Equal(t, 8, second.QuantityAt(p.ID, wh.ID))
}
