/*
Package demo loads predefined scenarios into a user scope.

PURPOSE:
  Populates a scope with realistic data for demos and manual testing.
  Every scenario goes through the public mutation API (create, validate,
  cancel), so stock rows and movements are always derived from documents
  and the ledger invariants hold for demo data too.

AVAILABLE SCENARIOS:
  starter:      default seed only (Main Warehouse, one sample product)
  sample-data:  two warehouses, eight products, opening stock counts,
                receipts and deliveries in mixed statuses
  rebalancing:  sample-data plus internal transfers and a damage write-off,
                leaving some products low or out of stock

HOW SCENARIOS WORK:
  1. Reset the scope (re-seeded when the scope seeds defaults)
  2. Create warehouses and products, reusing codes/SKUs already present
  3. Count opening stock with validated Physical Count adjustments
  4. Create documents, then validate or cancel them to reach their status

NOTE:
  Scenarios reset the scope. Only use in development/demo environments.

SEE ALSO:
  - api/scenarios.go: HTTP endpoints
  - cmd/stockctl: seed command
*/
package demo

import (
	"context"
	"fmt"

	"github.com/warp/stock-master/inventory"
)

// Scenario describes a loadable data set.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	load func(ctx context.Context, inv *inventory.Inventory) error
}

var scenarios = []Scenario{
	{
		ID:          "starter",
		Name:        "Starter",
		Description: "Empty scope with the default warehouse and sample product",
		load:        func(context.Context, *inventory.Inventory) error { return nil },
	},
	{
		ID:          "sample-data",
		Name:        "Sample Data",
		Description: "Two warehouses, eight products, receipts and deliveries in mixed statuses",
		load:        loadSampleData,
	},
	{
		ID:          "rebalancing",
		Name:        "Rebalancing",
		Description: "Sample data plus transfers between warehouses and a damage write-off",
		load:        loadRebalancing,
	},
}

// Scenarios lists the available scenarios.
func Scenarios() []Scenario {
	return append([]Scenario(nil), scenarios...)
}

// Find returns the scenario with the given id.
func Find(id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Load resets the scope and loads the named scenario into it.
func Load(ctx context.Context, inv *inventory.Inventory, id string) error {
	s, ok := Find(id)
	if !ok {
		return &inventory.NotFoundError{Entity: "scenario", ID: id}
	}
	if err := inv.Reset(ctx); err != nil {
		return fmt.Errorf("demo: reset: %w", err)
	}
	if err := s.load(ctx, inv); err != nil {
		return fmt.Errorf("demo: load %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// SAMPLE DATA
// =============================================================================

var sampleWarehouses = []inventory.WarehouseInput{
	{Name: "Main Warehouse", Code: "WH-001", Address: "123 Industrial Blvd, City, State 12345"},
	{Name: "Secondary Warehouse", Code: "WH-002", Address: "456 Commerce St, City, State 12346"},
}

var sampleProducts = []inventory.ProductInput{
	{SKU: "ELC-001", Name: "Wireless Mouse", Category: inventory.CategoryElectronics, UOM: inventory.UnitPieces, ReorderLevel: 20},
	{SKU: "ELC-002", Name: "Bluetooth Keyboard", Category: inventory.CategoryElectronics, UOM: inventory.UnitPieces, ReorderLevel: 15},
	{SKU: "FUR-001", Name: "Office Chair", Category: inventory.CategoryFurniture, UOM: inventory.UnitPieces, ReorderLevel: 5},
	{SKU: "FUR-002", Name: "Desk Lamp", Category: inventory.CategoryFurniture, UOM: inventory.UnitPieces, ReorderLevel: 10},
	{SKU: "CLO-001", Name: "T-Shirt", Category: inventory.CategoryClothing, UOM: inventory.UnitPieces, ReorderLevel: 50},
	{SKU: "FOD-001", Name: "Coffee Beans", Category: inventory.CategoryFood, UOM: inventory.UnitKilos, ReorderLevel: 25},
	{SKU: "BOK-001", Name: "Programming Book", Category: inventory.CategoryBooks, UOM: inventory.UnitPieces, ReorderLevel: 12},
	{SKU: "TOL-001", Name: "Screwdriver Set", Category: inventory.CategoryTools, UOM: inventory.UnitBox, ReorderLevel: 8},
}

// openingStock[w][p] is the counted quantity of product p in warehouse w. 0 means not stocked.
var openingStock = [][]int{
	{64, 38, 12, 27, 95, 41, 18, 22},
	{25, 0, 9, 0, 60, 33, 0, 14},
}

type catalog struct {
	warehouses []inventory.Warehouse
	products   []inventory.Product
}

func ensureCatalog(ctx context.Context, inv *inventory.Inventory) (catalog, error) {
	var c catalog
	for _, in := range sampleWarehouses {
		w, ok := inv.WarehouseByCode(in.Code)
		if !ok {
			var err error
			if w, err = inv.AddWarehouse(ctx, in); err != nil {
				return c, err
			}
		}
		c.warehouses = append(c.warehouses, w)
	}
	for _, in := range sampleProducts {
		p, ok := inv.ProductBySKU(in.SKU)
		if !ok {
			in.Description = fmt.Sprintf("Sample %s for demonstration purposes", in.Name)
			var err error
			if p, err = inv.AddProduct(ctx, in); err != nil {
				return c, err
			}
		}
		c.products = append(c.products, p)
	}
	return c, nil
}

func countOpeningStock(ctx context.Context, inv *inventory.Inventory, c catalog) error {
	for wi, w := range c.warehouses {
		var lines []inventory.AdjustmentLineInput
		for pi, p := range c.products {
			if qty := openingStock[wi][pi]; qty > 0 {
				lines = append(lines, inventory.AdjustmentLineInput{ProductID: p.ID, Difference: qty})
			}
		}
		adj, err := inv.AddAdjustment(ctx, inventory.AdjustmentInput{
			WarehouseID:    w.ID,
			AdjustmentType: inventory.AdjustmentCount,
			Notes:          "Opening stock count",
			Lines:          lines,
		})
		if err != nil {
			return err
		}
		if _, err := inv.ValidateAdjustment(ctx, adj.ID); err != nil {
			return err
		}
	}
	return nil
}

// finish drives a freshly created document to the wanted status.
func finish(ctx context.Context, inv *inventory.Inventory, kind inventory.DocumentKind, id inventory.DocumentID, want inventory.Status) error {
	var err error
	switch want {
	case inventory.StatusDone:
		_, err = inv.Validate(ctx, kind, id)
	case inventory.StatusCanceled:
		_, err = inv.Cancel(ctx, kind, id)
	}
	return err
}

func createReceipts(ctx context.Context, inv *inventory.Inventory, c catalog) error {
	vendors := []string{"Tech Supplies Inc.", "Office Furniture Co.", "Tool Distributors", "Electronics Wholesale"}
	statuses := []inventory.Status{
		inventory.StatusDone, inventory.StatusDraft, inventory.StatusWaiting, inventory.StatusDone, inventory.StatusDraft,
	}
	for i, want := range statuses {
		var lines []inventory.LineInput
		for j := 0; j <= i%3; j++ {
			lines = append(lines, inventory.LineInput{ProductID: c.products[j].ID, Quantity: 10 + 7*(i+j)})
		}
		initial := want
		if want.IsTerminal() {
			initial = inventory.StatusReady
		}
		rec, err := inv.AddReceipt(ctx, inventory.ReceiptInput{
			VendorName:    vendors[i%len(vendors)],
			VendorContact: fmt.Sprintf("vendor%d@example.com", i+1),
			WarehouseID:   c.warehouses[i%len(c.warehouses)].ID,
			Status:        initial,
			Notes:         fmt.Sprintf("Sample receipt #%d", i+1),
			Lines:         lines,
		})
		if err != nil {
			return err
		}
		if err := finish(ctx, inv, inventory.KindReceipt, rec.ID, want); err != nil {
			return err
		}
	}
	return nil
}

func createDeliveries(ctx context.Context, inv *inventory.Inventory, c catalog) error {
	customers := []string{"ABC Corp", "XYZ Retail", "Tech Solutions Ltd", "Office Supplies Co"}
	statuses := []inventory.Status{
		inventory.StatusDone, inventory.StatusReady, inventory.StatusDraft, inventory.StatusDone,
	}
	for i, want := range statuses {
		wh := c.warehouses[0]
		var lines []inventory.LineInput
		for j := 0; j <= i%2; j++ {
			lines = append(lines, inventory.LineInput{ProductID: c.products[j].ID, Quantity: 5 + 3*(i+j)})
		}
		initial := want
		if want.IsTerminal() {
			initial = inventory.StatusReady
		}
		del, err := inv.AddDelivery(ctx, inventory.DeliveryInput{
			CustomerName:    customers[i%len(customers)],
			CustomerContact: fmt.Sprintf("customer%d@example.com", i+1),
			WarehouseID:     wh.ID,
			Status:          initial,
			Notes:           fmt.Sprintf("Sample delivery #%d", i+1),
			Lines:           lines,
		})
		if err != nil {
			return err
		}
		if err := finish(ctx, inv, inventory.KindDelivery, del.ID, want); err != nil {
			return err
		}
	}
	return nil
}

func loadSampleData(ctx context.Context, inv *inventory.Inventory) error {
	c, err := ensureCatalog(ctx, inv)
	if err != nil {
		return err
	}
	if err := countOpeningStock(ctx, inv, c); err != nil {
		return err
	}
	if err := createReceipts(ctx, inv, c); err != nil {
		return err
	}
	return createDeliveries(ctx, inv, c)
}

// =============================================================================
// REBALANCING
// =============================================================================

func loadRebalancing(ctx context.Context, inv *inventory.Inventory) error {
	if err := loadSampleData(ctx, inv); err != nil {
		return err
	}
	c, err := ensureCatalog(ctx, inv)
	if err != nil {
		return err
	}
	primary, secondary := c.warehouses[0], c.warehouses[1]

	transfers := []struct {
		from, to inventory.Warehouse
		product  int
		qty      int
		want     inventory.Status
	}{
		{primary, secondary, 1, 20, inventory.StatusDone},    // keyboards to secondary
		{secondary, primary, 4, 30, inventory.StatusDone},    // t-shirts back to main
		{primary, secondary, 6, 10, inventory.StatusWaiting}, // books, scheduled
		{primary, secondary, 3, 5, inventory.StatusCanceled}, // lamps, called off
	}
	for _, tr := range transfers {
		initial := tr.want
		if tr.want.IsTerminal() {
			initial = inventory.StatusReady
		}
		t, err := inv.AddTransfer(ctx, inventory.TransferInput{
			SourceWarehouseID:      tr.from.ID,
			DestinationWarehouseID: tr.to.ID,
			Status:                 initial,
			Lines:                  []inventory.LineInput{{ProductID: c.products[tr.product].ID, Quantity: tr.qty}},
		})
		if err != nil {
			return err
		}
		if err := finish(ctx, inv, inventory.KindTransfer, t.ID, tr.want); err != nil {
			return err
		}
	}

	// Write off every screwdriver set in the secondary warehouse and most of the chairs.
	adj, err := inv.AddAdjustment(ctx, inventory.AdjustmentInput{
		WarehouseID:    secondary.ID,
		AdjustmentType: inventory.AdjustmentDamage,
		Notes:          "Water damage",
		Lines: []inventory.AdjustmentLineInput{
			{ProductID: c.products[7].ID, Difference: -inv.QuantityAt(c.products[7].ID, secondary.ID)},
			{ProductID: c.products[2].ID, Difference: -7},
		},
	})
	if err != nil {
		return err
	}
	_, err = inv.ValidateAdjustment(ctx, adj.ID)
	return err
}
