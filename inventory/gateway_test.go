package inventory_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-master/inventory"
	"github.com/warp/stock-master/inventory/store"
)

func TestGateway_KeysAreUserScoped(t *testing.T) {
	kv := store.NewMemory()

	assert.Equal(t, "inventory_products_alice", inventory.NewGateway(kv, "alice").Key(inventory.NamespaceProducts))
	assert.Equal(t, "inventory_products", inventory.NewGateway(kv, "").Key(inventory.NamespaceProducts))
}

func TestGateway_Initialize_SeedsOnce(t *testing.T) {
	// GIVEN: An untouched scope
	// WHEN: It is initialized twice
	// THEN: The seed is written once, every namespace exists, and the marker is set

	ctx := context.Background()
	kv := store.NewMemory()
	gw := inventory.NewGateway(kv, "alice")
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	initialized, err := gw.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, initialized)

	seeded, err := gw.Initialize(ctx, inventory.DefaultSeed(&inventory.SequenceGenerator{}, now))
	require.NoError(t, err)
	assert.True(t, seeded)
	keys, err := kv.Keys(ctx, "inventory_")
	require.NoError(t, err)
	assert.Len(t, keys, len(inventory.Namespaces)+1)

	seeded, err = gw.Initialize(ctx, inventory.Seed{})
	require.NoError(t, err)
	assert.False(t, seeded)

	s, err := gw.Load(ctx)
	require.NoError(t, err)
	require.Len(t, s.Warehouses, 1)
	assert.Equal(t, "WH-001", s.Warehouses[0].Code)
	require.Len(t, s.Products, 1)
	assert.Equal(t, "SAMPLE-001", s.Products[0].SKU)
	assert.True(t, s.Products[0].CreatedAt.Equal(now))

	raw, err := kv.Get(ctx, gw.Key(inventory.NamespaceMovements))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGateway_Load_EmptyScope(t *testing.T) {
	s, err := inventory.NewGateway(store.NewMemory(), "bob").Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, s.Products)
	assert.Empty(t, s.Movements)
}

func TestGateway_Load_CorruptNamespace(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	gw := inventory.NewGateway(kv, "bob")
	require.NoError(t, kv.Set(ctx, gw.Key(inventory.NamespaceDeliveries), []byte(`{"not":"a list"}`)))

	_, err := gw.Load(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), string(inventory.NamespaceDeliveries))
}

func TestGateway_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	alice := newFixtureWith(t, kv, inventory.Options{UserID: "alice"})
	alice.warehouse("WH-001")

	bob := newFixtureWith(t, kv, inventory.Options{UserID: "bob"})

	assert.Empty(t, bob.inv.Warehouses())
	_, err := bob.inv.AddWarehouse(ctx, inventory.WarehouseInput{Name: "Bob's", Code: "WH-001"})
	assert.NoError(t, err, "codes are unique per scope")
}

func TestGateway_DatesRoundTripAsISO8601(t *testing.T) {
	f := newFixture(t)
	wh := f.warehouse("WH-001")
	p := f.product("SKU1", 0)
	res := f.adjust(p, wh, 1)

	raw, err := f.kv.Get(f.ctx, inventory.NewGateway(f.kv, "u1").Key(inventory.NamespaceMovements))
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, res.Movements[0].Timestamp.Format(time.RFC3339Nano), rows[0]["timestamp"])
	assert.Equal(t, "Adjustment", rows[0]["movementType"])

	adj := f.inv.Adjustments()[0]
	require.NoError(t, f.inv.Reload(f.ctx))
	reloaded := f.inv.Adjustments()[0]
	assert.True(t, adj.CreatedAt.Equal(reloaded.CreatedAt))
	require.NotNil(t, reloaded.ValidatedAt)
	assert.True(t, adj.ValidatedAt.Equal(*reloaded.ValidatedAt))
	assert.Equal(t, inventory.StatusDone, reloaded.Status)
}

// =============================================================================
// LEGACY MIGRATION
// =============================================================================

func TestGateway_MigrateLegacy_MovesUnsuffixedKeys(t *testing.T) {
	// GIVEN: Data written under the unsuffixed keys
	// WHEN: A user scope is opened for the first time
	// THEN: The data moves into the user's keys and the legacy keys are removed

	ctx := context.Background()
	kv := store.NewMemory()
	legacyGW := inventory.NewGateway(kv, "")
	seeded, err := legacyGW.Initialize(ctx, inventory.DefaultSeed(&inventory.SequenceGenerator{}, time.Now()))
	require.NoError(t, err)
	require.True(t, seeded)

	gw := inventory.NewGateway(kv, "carol")
	migrated, err := gw.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.True(t, migrated)

	initialized, err := gw.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
	s, err := gw.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Warehouses, 1)

	_, err = kv.Get(ctx, legacyGW.Key(inventory.NamespaceProducts))
	assert.ErrorIs(t, err, inventory.ErrKeyNotFound)
	legacyInit, err := legacyGW.IsInitialized(ctx)
	require.NoError(t, err)
	assert.False(t, legacyInit)

	// A second user finds nothing left to migrate.
	migrated, err = inventory.NewGateway(kv, "dave").MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.False(t, migrated)
}

func TestGateway_MigrateLegacy_SkipsInitializedScope(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	legacyGW := inventory.NewGateway(kv, "")
	_, err := legacyGW.Initialize(ctx, inventory.DefaultSeed(&inventory.SequenceGenerator{}, time.Now()))
	require.NoError(t, err)
	gw := inventory.NewGateway(kv, "erin")
	_, err = gw.Initialize(ctx, inventory.Seed{})
	require.NoError(t, err)

	migrated, err := gw.MigrateLegacy(ctx)

	require.NoError(t, err)
	assert.False(t, migrated)
	_, err = kv.Get(ctx, legacyGW.Key(inventory.NamespaceProducts))
	assert.NoError(t, err, "legacy data stays when nothing moved")
}

func TestGateway_Open_SeedsNewScope(t *testing.T) {
	f := newFixtureWith(t, store.NewMemory(), inventory.Options{SeedDefaults: true})

	require.Len(t, f.inv.Warehouses(), 1)
	require.Len(t, f.inv.Products(), 1)
	assert.Equal(t, "Main Warehouse", f.inv.Warehouses()[0].Name)
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func TestGateway_ExportImport_RoundTrip(t *testing.T) {
	// GIVEN: A scope with stock, documents and movements
	// WHEN: It is exported and imported into another scope
	// THEN: The second scope sees the same data

	src := newFixture(t)
	wh := src.warehouse("WH-001")
	p := src.product("SKU1", 0)
	src.adjust(p, wh, 11)

	bundle, err := src.inv.Export(src.ctx)
	require.NoError(t, err)
	for _, ns := range []inventory.Namespace{
		inventory.NamespaceProducts,
		inventory.NamespaceWarehouses,
		inventory.NamespaceStockLocations,
		inventory.NamespaceAdjustments,
		inventory.NamespaceMovements,
	} {
		assert.Contains(t, bundle, ns)
	}

	dst := newFixtureWith(t, src.kv, inventory.Options{UserID: "restore"})
	require.NoError(t, dst.inv.Import(dst.ctx, bundle))

	assert.Equal(t, 11, dst.inv.QuantityAt(p.ID, wh.ID))
	assert.Len(t, dst.inv.Movements(inventory.MovementFilter{}), 1)
	initialized, err := inventory.NewGateway(src.kv, "restore").IsInitialized(dst.ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
}

func TestGateway_Import_PartialBundleKeepsOtherNamespaces(t *testing.T) {
	f := newFixture(t)
	f.warehouse("WH-001")
	f.product("SKU1", 0)

	err := f.inv.Import(f.ctx, inventory.Bundle{
		inventory.NamespaceProducts: json.RawMessage(`[]`),
		"inventory_unknown":         json.RawMessage(`{"ignored":true}`),
		inventory.NamespaceReceipts: json.RawMessage(`null`),
	})
	require.NoError(t, err)

	assert.Empty(t, f.inv.Products())
	assert.Len(t, f.inv.Warehouses(), 1)
}

func TestGateway_Import_MalformedNamespaceWritesNothing(t *testing.T) {
	// GIVEN: A bundle whose products are fine but whose movements are not
	// WHEN: It is imported
	// THEN: Validation error naming the movements namespace, nothing written

	f := newFixture(t)
	f.warehouse("WH-001")

	err := f.inv.Import(f.ctx, inventory.Bundle{
		inventory.NamespaceProducts:  json.RawMessage(`[]`),
		inventory.NamespaceMovements: json.RawMessage(`[{"quantity":"lots"}]`),
	})

	var ve *inventory.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, string(inventory.NamespaceMovements), ve.Field)

	require.NoError(t, f.inv.Reload(f.ctx))
	assert.Len(t, f.inv.Warehouses(), 1)
}

func TestGateway_Import_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	err := f.inv.Import(f.ctx, inventory.Bundle{
		inventory.NamespaceDeliveries: json.RawMessage(`[{"id":"del-1","status":"Shipped","lines":[]}]`),
	})

	assert.ErrorIs(t, err, inventory.ErrValidation)
}

func TestGateway_Import_RejectsDocumentWithoutStatus(t *testing.T) {
	// GIVEN: A scope with one receipt
	// WHEN: A bundle holds a receipt with no status field
	// THEN: Validation error, and later checkpoints of receipts still work

	f := newFixture(t)
	wh := f.warehouse("WH-001")
	p := f.product("SKU1", 0)
	f.receipt(wh, line(p, 1))

	err := f.inv.Import(f.ctx, inventory.Bundle{
		inventory.NamespaceReceipts: json.RawMessage(`[{"id":"rec-x","documentNumber":"REC-100","lines":[]}]`),
	})

	var ve *inventory.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, string(inventory.NamespaceReceipts), ve.Field)

	f.receipt(wh, line(p, 2))
	require.NoError(t, f.inv.Reload(f.ctx))
	assert.Len(t, f.inv.Receipts(), 2)
}

func TestGateway_Import_RejectsInconsistentData(t *testing.T) {
	cases := []struct {
		name string
		ns   inventory.Namespace
		raw  string
	}{
		{
			name: "negative stock row",
			ns:   inventory.NamespaceStockLocations,
			raw:  `[{"productId":"p1","warehouseId":"w1","quantity":-7}]`,
		},
		{
			name: "repeated stock pair",
			ns:   inventory.NamespaceStockLocations,
			raw: `[{"productId":"p1","warehouseId":"w1","quantity":5},
				{"productId":"p1","warehouseId":"w1","quantity":3}]`,
		},
		{
			name: "repeated warehouse code",
			ns:   inventory.NamespaceWarehouses,
			raw: `[{"id":"w1","name":"A","code":"WH-001","racks":[]},
				{"id":"w2","name":"B","code":" wh-001","racks":[]}]`,
		},
		{
			name: "delivery without status",
			ns:   inventory.NamespaceDeliveries,
			raw:  `[{"id":"del-x","documentNumber":"DEL-001","lines":[]}]`,
		},
		{
			name: "transfer without status",
			ns:   inventory.NamespaceTransfers,
			raw:  `[{"id":"trans-x","documentNumber":"INT-001","lines":[]}]`,
		},
		{
			name: "adjustment without status",
			ns:   inventory.NamespaceAdjustments,
			raw:  `[{"id":"adj-x","documentNumber":"ADJ-001","lines":[]}]`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			wh := f.warehouse("WH-009")
			p := f.product("SKU1", 0)
			f.adjust(p, wh, 4)

			err := f.inv.Import(f.ctx, inventory.Bundle{tc.ns: json.RawMessage(tc.raw)})

			assert.ErrorIs(t, err, inventory.ErrValidation)
			require.NoError(t, f.inv.Reload(f.ctx))
			assert.Equal(t, 4, f.inv.QuantityAt(p.ID, wh.ID))
			assert.Equal(t, 4, f.inv.TotalQuantity(p.ID))
			assert.Len(t, f.inv.Warehouses(), 1)
			assert.Len(t, f.inv.Adjustments(), 1)
		})
	}
}

func TestGateway_ListScopes(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	newFixtureWith(t, kv, inventory.Options{UserID: "bob", SeedDefaults: true})
	newFixtureWith(t, kv, inventory.Options{UserID: "alice", SeedDefaults: true})
	_, err := inventory.NewGateway(kv, "").Initialize(ctx, inventory.Seed{})
	require.NoError(t, err)

	users, err := inventory.ListScopes(ctx, kv)

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	_, err = inventory.ListScopes(ctx, store.NewFailing(kv, nil))
	assert.Error(t, err, "a store without key listing")
}

// =============================================================================
// CLEAR / STATS
// =============================================================================

func TestGateway_Reset_ClearsAndReseeds(t *testing.T) {
	f := newFixtureWith(t, store.NewMemory(), inventory.Options{SeedDefaults: true})
	f.warehouse("WH-002")
	require.Len(t, f.inv.Warehouses(), 2)

	require.NoError(t, f.inv.Reset(f.ctx))

	require.Len(t, f.inv.Warehouses(), 1)
	assert.Equal(t, "WH-001", f.inv.Warehouses()[0].Code)
}

func TestGateway_Reset_WithoutSeedLeavesEmptyScope(t *testing.T) {
	f := newFixture(t)
	f.warehouse("WH-001")

	require.NoError(t, f.inv.Reset(f.ctx))

	assert.Empty(t, f.inv.Warehouses())
	keys, err := f.kv.Keys(f.ctx, "inventory_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGateway_Stats(t *testing.T) {
	f := newFixtureWith(t, store.NewMemory(), inventory.Options{SeedDefaults: true})

	stats, err := f.inv.Stats(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, len(inventory.Namespaces)+1, stats.ItemCount)
	sum := 0
	for _, n := range stats.Breakdown {
		sum += n
	}
	assert.Equal(t, stats.TotalSize, sum)
	assert.Equal(t, len(`[]`), stats.Breakdown[inventory.NamespaceMovements])
	assert.Greater(t, stats.Breakdown[inventory.NamespaceProducts], 2)
}
