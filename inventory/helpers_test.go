package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/warp/stock-master/inventory"
	"github.com/warp/stock-master/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// tickClock advances one second on every call so timestamps are ordered.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickClock() *tickClock {
	return &tickClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	kv    *store.Memory
	clock *tickClock
	inv   *inventory.Inventory
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, store.NewMemory(), inventory.Options{})
}

// newFixtureWith opens user "u1" over kv. IDs and clock are filled in when unset.
func newFixtureWith(t *testing.T, kv inventory.KVStore, opts inventory.Options) *fixture {
	t.Helper()
	clock := newTickClock()
	if opts.UserID == "" {
		opts.UserID = "u1"
	}
	if opts.IDs == nil {
		opts.IDs = &inventory.SequenceGenerator{}
	}
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	ctx := context.Background()
	inv, err := inventory.Open(ctx, inventory.NewGateway(kv, opts.UserID), opts)
	require.NoError(t, err)

	f := &fixture{t: t, ctx: ctx, clock: clock, inv: inv}
	if mem, ok := kv.(*store.Memory); ok {
		f.kv = mem
	}
	return f
}

func (f *fixture) warehouse(code string) inventory.Warehouse {
	f.t.Helper()
	w, err := f.inv.AddWarehouse(f.ctx, inventory.WarehouseInput{Name: "Warehouse " + code, Code: code})
	require.NoError(f.t, err)
	return w
}

func (f *fixture) product(sku string, reorderLevel int) inventory.Product {
	f.t.Helper()
	return f.productIn(sku, inventory.CategoryOther, reorderLevel)
}

func (f *fixture) productIn(sku string, category inventory.Category, reorderLevel int) inventory.Product {
	f.t.Helper()
	p, err := f.inv.AddProduct(f.ctx, inventory.ProductInput{
		SKU:          sku,
		Name:         "Product " + sku,
		Category:     category,
		UOM:          inventory.UnitPieces,
		ReorderLevel: reorderLevel,
	})
	require.NoError(f.t, err)
	return p
}

// adjust creates and validates a one-line adjustment.
func (f *fixture) adjust(p inventory.Product, w inventory.Warehouse, difference int) inventory.Result {
	f.t.Helper()
	a, err := f.inv.AddAdjustment(f.ctx, inventory.AdjustmentInput{
		WarehouseID:    w.ID,
		AdjustmentType: inventory.AdjustmentCount,
		Lines:          []inventory.AdjustmentLineInput{{ProductID: p.ID, Difference: difference}},
	})
	require.NoError(f.t, err)
	res, err := f.inv.ValidateAdjustment(f.ctx, a.ID)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) delivery(w inventory.Warehouse, status inventory.Status, lines ...inventory.LineInput) inventory.Delivery {
	f.t.Helper()
	d, err := f.inv.AddDelivery(f.ctx, inventory.DeliveryInput{
		CustomerName: "Acme",
		WarehouseID:  w.ID,
		Status:       status,
		Lines:        lines,
	})
	require.NoError(f.t, err)
	return d
}

func (f *fixture) transfer(from, to inventory.Warehouse, lines ...inventory.LineInput) inventory.InternalTransfer {
	f.t.Helper()
	tr, err := f.inv.AddTransfer(f.ctx, inventory.TransferInput{
		SourceWarehouseID:      from.ID,
		DestinationWarehouseID: to.ID,
		Lines:                  lines,
	})
	require.NoError(f.t, err)
	return tr
}

func (f *fixture) receipt(w inventory.Warehouse, lines ...inventory.LineInput) inventory.Receipt {
	f.t.Helper()
	r, err := f.inv.AddReceipt(f.ctx, inventory.ReceiptInput{
		VendorName:  "Supplier",
		WarehouseID: w.ID,
		Lines:       lines,
	})
	require.NoError(f.t, err)
	return r
}

func line(p inventory.Product, qty int) inventory.LineInput {
	return inventory.LineInput{ProductID: p.ID, Quantity: qty}
}
