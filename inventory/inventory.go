/*
inventory.go - Per-user facade over catalog, documents, ledger and engine

PURPOSE:
  Inventory is what callers hold for one user scope. Every mutating method
  runs the operation on the in-memory components and then checkpoints the
  touched namespaces through the Gateway. Reads never touch storage.

LIFECYCLE:
  inv, err := inventory.Open(ctx, inventory.NewGateway(kv, userID), inventory.Options{
      UserID:       userID,
      SeedDefaults: true,
  })

  Open migrates legacy unsuffixed keys, seeds an untouched scope when asked
  to, then loads the eight namespaces.

CHECKPOINT FAILURES:
  If the mutation succeeded but the checkpoint failed, the method returns
  the mutation's result together with the storage error. The in-memory
  scope stays ahead of the store until the next successful save.

CONCURRENCY:
  All methods take the scope mutex. Stock mutations within a scope are
  serialized.

SEE ALSO:
  - engine.go: validate/cancel/status
  - gateway.go: checkpoints
  - dashboard.go: Summarize
*/
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Options configures Open. Zero values pick sensible defaults.
type Options struct {
	// UserID is recorded on movements. Empty records UnknownUser.
	UserID string
	// IDs generates entity ids. Defaults to UUIDGenerator.
	IDs IDGenerator
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	// SeedDefaults writes DefaultSeed into an uninitialized scope.
	SeedDefaults bool
	// EnforceUniqueSKU rejects a second product with the same SKU.
	EnforceUniqueSKU bool
}

// Inventory is the handle on one user scope.
type Inventory struct {
	mu sync.Mutex

	gw       *Gateway
	opts     Options
	log      zerolog.Logger
	validate *validator.Validate

	catalog *Catalog
	docs    *DocumentStore
	ledger  *Ledger
	engine  *Engine
}

// Open loads a user scope, migrating and seeding it first when needed.
func Open(ctx context.Context, gw *Gateway, opts Options) (*Inventory, error) {
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	inv := &Inventory{
		gw:       gw,
		opts:     opts,
		log:      log.With().Str("scope", gw.UserID()).Logger(),
		validate: newValidator(),
	}

	migrated, err := gw.MigrateLegacy(ctx)
	if err != nil {
		return nil, err
	}
	if migrated {
		inv.log.Info().Msg("migrated legacy data into user scope")
	}
	if opts.SeedDefaults {
		seeded, err := gw.Initialize(ctx, DefaultSeed(opts.IDs, opts.Now()))
		if err != nil {
			return nil, err
		}
		if seeded {
			inv.log.Info().Msg("initialized user scope with default data")
		}
	}
	if err := inv.reload(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Inventory) reload(ctx context.Context) error {
	s, err := inv.gw.Load(ctx)
	if err != nil {
		return err
	}
	inv.rebuild(s)
	return nil
}

func (inv *Inventory) rebuild(s State) {
	o := inv.opts
	inv.catalog = newCatalog(s.Products, s.Warehouses, o.IDs, o.Now, inv.validate, o.EnforceUniqueSKU)
	inv.docs = newDocumentStore(s, o.IDs, o.Now, inv.validate)
	inv.ledger = NewLedger(s.StockLocations, s.Movements)
	inv.engine = NewEngine(inv.docs, inv.ledger, o.IDs, o.Now, o.UserID)
}

// Reload discards in-memory state and reads the scope from storage again.
func (inv *Inventory) Reload(ctx context.Context) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.reload(ctx)
}

// snapshot must be called with mu held.
func (inv *Inventory) snapshot() State {
	s := State{
		Products:       inv.catalog.Products(),
		Warehouses:     inv.catalog.Warehouses(),
		StockLocations: inv.ledger.Locations(),
		Movements:      inv.ledger.Movements(MovementFilter{}),
	}
	inv.docs.fill(&s)
	return s
}

// Snapshot returns a deep copy of the whole scope.
func (inv *Inventory) Snapshot() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.snapshot()
}

// checkpoint must be called with mu held.
func (inv *Inventory) checkpoint(ctx context.Context, namespaces ...Namespace) error {
	if err := inv.gw.Save(ctx, inv.snapshot(), namespaces...); err != nil {
		inv.log.Error().Err(err).Interface("namespaces", namespaces).Msg("checkpoint failed")
		return err
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (inv *Inventory) AddProduct(ctx context.Context, in ProductInput) (Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, err := inv.catalog.AddProduct(in)
	if err != nil {
		return Product{}, err
	}
	inv.log.Debug().Str("product", string(p.ID)).Str("sku", p.SKU).Msg("product added")
	return p, inv.checkpoint(ctx, NamespaceProducts)
}

func (inv *Inventory) UpdateProduct(ctx context.Context, id ProductID, upd ProductUpdate) (Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, err := inv.catalog.UpdateProduct(id, upd)
	if err != nil {
		return Product{}, err
	}
	return p, inv.checkpoint(ctx, NamespaceProducts)
}

// Product returns a product or *NotFoundError.
func (inv *Inventory) Product(id ProductID) (Product, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	p, ok := inv.catalog.Product(id)
	if !ok {
		return Product{}, &NotFoundError{Entity: "product", ID: string(id)}
	}
	return p, nil
}

func (inv *Inventory) ProductBySKU(sku string) (Product, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.catalog.ProductBySKU(sku)
}

func (inv *Inventory) Products() []Product {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.catalog.Products()
}

func (inv *Inventory) AddWarehouse(ctx context.Context, in WarehouseInput) (Warehouse, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	w, err := inv.catalog.AddWarehouse(in)
	if err != nil {
		return Warehouse{}, err
	}
	inv.log.Debug().Str("warehouse", string(w.ID)).Str("code", w.Code).Msg("warehouse added")
	return w, inv.checkpoint(ctx, NamespaceWarehouses)
}

func (inv *Inventory) UpdateWarehouse(ctx context.Context, id WarehouseID, upd WarehouseUpdate) (Warehouse, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	w, err := inv.catalog.UpdateWarehouse(id, upd)
	if err != nil {
		return Warehouse{}, err
	}
	return w, inv.checkpoint(ctx, NamespaceWarehouses)
}

// Warehouse returns a warehouse or *NotFoundError.
func (inv *Inventory) Warehouse(id WarehouseID) (Warehouse, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	w, ok := inv.catalog.Warehouse(id)
	if !ok {
		return Warehouse{}, &NotFoundError{Entity: "warehouse", ID: string(id)}
	}
	return w, nil
}

func (inv *Inventory) WarehouseByCode(code string) (Warehouse, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.catalog.WarehouseByCode(code)
}

func (inv *Inventory) Warehouses() []Warehouse {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.catalog.Warehouses()
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// checkRefs verifies that warehouses and line products exist.
func (inv *Inventory) checkRefs(warehouses []WarehouseID, products []ProductID) error {
	for _, id := range warehouses {
		if id == "" {
			continue
		}
		if _, ok := inv.catalog.Warehouse(id); !ok {
			return &NotFoundError{Entity: "warehouse", ID: string(id)}
		}
	}
	for _, id := range products {
		if id == "" {
			continue
		}
		if _, ok := inv.catalog.Product(id); !ok {
			return &NotFoundError{Entity: "product", ID: string(id)}
		}
	}
	return nil
}

func lineProducts(lines []LineInput) []ProductID {
	ids := make([]ProductID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}

func adjustmentLineProducts(lines []AdjustmentLineInput) []ProductID {
	ids := make([]ProductID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}

func (inv *Inventory) AddReceipt(ctx context.Context, in ReceiptInput) (Receipt, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkRefs([]WarehouseID{in.WarehouseID}, lineProducts(in.Lines)); err != nil {
		return Receipt{}, err
	}
	r, err := inv.docs.AddReceipt(in)
	if err != nil {
		return Receipt{}, err
	}
	inv.log.Debug().Str("receipt", string(r.ID)).Str("number", r.DocumentNumber).Msg("receipt created")
	return r, inv.checkpoint(ctx, NamespaceReceipts)
}

func (inv *Inventory) AddDelivery(ctx context.Context, in DeliveryInput) (Delivery, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkRefs([]WarehouseID{in.WarehouseID}, lineProducts(in.Lines)); err != nil {
		return Delivery{}, err
	}
	d, err := inv.docs.AddDelivery(in)
	if err != nil {
		return Delivery{}, err
	}
	inv.log.Debug().Str("delivery", string(d.ID)).Str("number", d.DocumentNumber).Msg("delivery created")
	return d, inv.checkpoint(ctx, NamespaceDeliveries)
}

func (inv *Inventory) AddTransfer(ctx context.Context, in TransferInput) (InternalTransfer, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	whs := []WarehouseID{in.SourceWarehouseID, in.DestinationWarehouseID}
	if err := inv.checkRefs(whs, lineProducts(in.Lines)); err != nil {
		return InternalTransfer{}, err
	}
	t, err := inv.docs.AddTransfer(in)
	if err != nil {
		return InternalTransfer{}, err
	}
	inv.log.Debug().Str("transfer", string(t.ID)).Str("number", t.DocumentNumber).Msg("transfer created")
	return t, inv.checkpoint(ctx, NamespaceTransfers)
}

func (inv *Inventory) AddAdjustment(ctx context.Context, in AdjustmentInput) (StockAdjustment, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkRefs([]WarehouseID{in.WarehouseID}, adjustmentLineProducts(in.Lines)); err != nil {
		return StockAdjustment{}, err
	}
	a, err := inv.docs.AddAdjustment(in)
	if err != nil {
		return StockAdjustment{}, err
	}
	inv.log.Debug().Str("adjustment", string(a.ID)).Str("number", a.DocumentNumber).Msg("adjustment created")
	return a, inv.checkpoint(ctx, NamespaceAdjustments)
}

func (inv *Inventory) Receipt(id DocumentID) (Receipt, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Receipt(id)
}

func (inv *Inventory) Delivery(id DocumentID) (Delivery, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Delivery(id)
}

func (inv *Inventory) Transfer(id DocumentID) (InternalTransfer, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Transfer(id)
}

func (inv *Inventory) Adjustment(id DocumentID) (StockAdjustment, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Adjustment(id)
}

func (inv *Inventory) Receipts() []Receipt {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Receipts()
}

func (inv *Inventory) Deliveries() []Delivery {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Deliveries()
}

func (inv *Inventory) Transfers() []InternalTransfer {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Transfers()
}

func (inv *Inventory) Adjustments() []StockAdjustment {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.docs.Adjustments()
}

// ReplaceLines swaps the lines of an open receipt, delivery or transfer.
func (inv *Inventory) ReplaceLines(ctx context.Context, kind DocumentKind, id DocumentID, lines []LineInput) ([]Line, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkRefs(nil, lineProducts(lines)); err != nil {
		return nil, err
	}
	out, err := inv.docs.ReplaceLines(kind, id, lines)
	if err != nil {
		return nil, err
	}
	return out, inv.checkpoint(ctx, namespaceOf(kind))
}

// ReplaceAdjustmentLines swaps the lines of an open adjustment.
func (inv *Inventory) ReplaceAdjustmentLines(ctx context.Context, id DocumentID, lines []AdjustmentLineInput) ([]AdjustmentLine, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkRefs(nil, adjustmentLineProducts(lines)); err != nil {
		return nil, err
	}
	out, err := inv.docs.ReplaceAdjustmentLines(id, lines)
	if err != nil {
		return nil, err
	}
	return out, inv.checkpoint(ctx, NamespaceAdjustments)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Validate finalizes a document and checkpoints the document, stock rows and
// movements together.
func (inv *Inventory) Validate(ctx context.Context, kind DocumentKind, id DocumentID) (Result, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	res, err := inv.engine.Validate(kind, id)
	if err != nil {
		inv.log.Debug().Err(err).Str("kind", kind.String()).Str("document", string(id)).Msg("validate rejected")
		return Result{}, err
	}
	inv.log.Debug().
		Str("kind", kind.String()).
		Str("document", string(id)).
		Int("movements", len(res.Movements)).
		Msg("document validated")
	namespaces := []Namespace{namespaceOf(kind)}
	if len(res.Movements) > 0 {
		namespaces = append(namespaces, NamespaceStockLocations, NamespaceMovements)
	}
	return res, inv.checkpoint(ctx, namespaces...)
}

// Cancel moves an open document to Canceled. Stock is never touched.
func (inv *Inventory) Cancel(ctx context.Context, kind DocumentKind, id DocumentID) (Result, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	res, err := inv.engine.Cancel(kind, id)
	if err != nil {
		return Result{}, err
	}
	if !res.Changed {
		return res, nil
	}
	inv.log.Debug().Str("kind", kind.String()).Str("document", string(id)).Msg("document canceled")
	return res, inv.checkpoint(ctx, namespaceOf(kind))
}

// UpdateStatus moves an open document between Draft, Waiting and Ready.
func (inv *Inventory) UpdateStatus(ctx context.Context, kind DocumentKind, id DocumentID, status Status) (Result, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	res, err := inv.engine.UpdateStatus(kind, id, status)
	if err != nil {
		return Result{}, err
	}
	return res, inv.checkpoint(ctx, namespaceOf(kind))
}

func (inv *Inventory) UpdateDeliveryStatus(ctx context.Context, id DocumentID, status Status) (Result, error) {
	return inv.UpdateStatus(ctx, KindDelivery, id, status)
}

func (inv *Inventory) ValidateReceipt(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Validate(ctx, KindReceipt, id)
}

func (inv *Inventory) ValidateDelivery(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Validate(ctx, KindDelivery, id)
}

func (inv *Inventory) ValidateTransfer(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Validate(ctx, KindTransfer, id)
}

func (inv *Inventory) ValidateAdjustment(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Validate(ctx, KindAdjustment, id)
}

func (inv *Inventory) CancelReceipt(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Cancel(ctx, KindReceipt, id)
}

func (inv *Inventory) CancelDelivery(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Cancel(ctx, KindDelivery, id)
}

func (inv *Inventory) CancelTransfer(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Cancel(ctx, KindTransfer, id)
}

func (inv *Inventory) CancelAdjustment(ctx context.Context, id DocumentID) (Result, error) {
	return inv.Cancel(ctx, KindAdjustment, id)
}

// =============================================================================
// STOCK READS
// =============================================================================

func (inv *Inventory) QuantityAt(productID ProductID, warehouseID WarehouseID) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.ledger.QuantityAt(productID, warehouseID)
}

func (inv *Inventory) TotalQuantity(productID ProductID) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.ledger.TotalQuantity(productID)
}

// ListStockForProduct returns every stock row of a product, empty if none.
func (inv *Inventory) ListStockForProduct(productID ProductID) []StockLocation {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	rows := inv.ledger.StockForProduct(productID)
	if rows == nil {
		rows = []StockLocation{}
	}
	return rows
}

func (inv *Inventory) CheckAvailability(productID ProductID, warehouseID WarehouseID, quantity int) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.ledger.CheckAvailability(productID, warehouseID, quantity)
}

func (inv *Inventory) StockLocations() []StockLocation {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.ledger.Locations()
}

func (inv *Inventory) Movements(filter MovementFilter) []StockMovement {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.ledger.Movements(filter)
}

// Summary computes the dashboard over the current scope.
func (inv *Inventory) Summary(filter DashboardFilter) Dashboard {
	return Summarize(inv.Snapshot(), filter)
}

// =============================================================================
// DATA MANAGEMENT
// =============================================================================

func (inv *Inventory) Export(ctx context.Context) (Bundle, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.gw.Export(ctx)
}

// Import replaces the namespaces present in b and reloads the scope.
func (inv *Inventory) Import(ctx context.Context, b Bundle) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.gw.Import(ctx, b); err != nil {
		return err
	}
	inv.log.Info().Int("namespaces", len(b)).Msg("data imported")
	return inv.reload(ctx)
}

// Reset clears the scope, re-seeds it when SeedDefaults is set, and reloads.
func (inv *Inventory) Reset(ctx context.Context) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.gw.Clear(ctx); err != nil {
		return err
	}
	if inv.opts.SeedDefaults {
		if _, err := inv.gw.Initialize(ctx, DefaultSeed(inv.opts.IDs, inv.opts.Now())); err != nil {
			return err
		}
	}
	inv.log.Info().Msg("scope reset")
	return inv.reload(ctx)
}

func (inv *Inventory) Stats(ctx context.Context) (StorageStats, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.gw.Stats(ctx)
}

// Persist writes every namespace of the current scope.
func (inv *Inventory) Persist(ctx context.Context) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.checkpoint(ctx); err != nil {
		return fmt.Errorf("inventory: persist: %w", err)
	}
	return nil
}
