/*
gateway.go - Per-user serialization on top of a KVStore

PURPOSE:
  The Gateway is the persistence boundary of one user scope. It knows the
  key layout and the JSON encoding of every entity sequence; the KVStore
  underneath only sees bytes.

KEY LAYOUT:
  <namespace>_<userID>, e.g. inventory_deliveries_u-42

    inventory_products         []Product
    inventory_warehouses       []Warehouse
    inventory_stock_locations  []StockLocation
    inventory_receipts         []Receipt
    inventory_deliveries       []Delivery
    inventory_transfers        []InternalTransfer
    inventory_adjustments      []StockAdjustment
    inventory_movements        []StockMovement
    inventory_data_initialized "true" once the scope has been set up

  Times are ISO-8601 (RFC 3339) strings and come back as time.Time.

CHECKPOINTS:
  Save() encodes the requested namespaces and writes them in one SetBatch,
  or a single Set when only one namespace changed.
  There is no write-ahead log: if a checkpoint fails the in-memory state is
  ahead of the store until the next successful save.

SEE ALSO:
  - store.go: KVStore
  - inventory.go: calls Save after every mutation
*/
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Namespace names one persisted entity sequence.
type Namespace string

const (
	NamespaceProducts       Namespace = "inventory_products"
	NamespaceWarehouses     Namespace = "inventory_warehouses"
	NamespaceStockLocations Namespace = "inventory_stock_locations"
	NamespaceReceipts       Namespace = "inventory_receipts"
	NamespaceDeliveries     Namespace = "inventory_deliveries"
	NamespaceTransfers      Namespace = "inventory_transfers"
	NamespaceAdjustments    Namespace = "inventory_adjustments"
	NamespaceMovements      Namespace = "inventory_movements"

	// namespaceInitialized marks a scope that has been set up, possibly empty.
	namespaceInitialized Namespace = "inventory_data_initialized"
)

// Namespaces lists the eight entity namespaces in persisted order.
var Namespaces = []Namespace{
	NamespaceProducts,
	NamespaceWarehouses,
	NamespaceStockLocations,
	NamespaceReceipts,
	NamespaceDeliveries,
	NamespaceTransfers,
	NamespaceAdjustments,
	NamespaceMovements,
}

func namespaceOf(kind DocumentKind) Namespace {
	switch kind {
	case KindReceipt:
		return NamespaceReceipts
	case KindDelivery:
		return NamespaceDeliveries
	case KindTransfer:
		return NamespaceTransfers
	case KindAdjustment:
		return NamespaceAdjustments
	}
	return ""
}

// Bundle is the export/import document: raw JSON per namespace.
type Bundle map[Namespace]json.RawMessage

// Seed is written into a scope the first time it is initialized.
type Seed struct {
	Warehouses []Warehouse
	Products   []Product
}

// DefaultSeed is the starter data for a new user: one warehouse, one product.
func DefaultSeed(ids IDGenerator, now time.Time) Seed {
	return Seed{
		Warehouses: []Warehouse{{
			ID:      WarehouseID(ids.NewID("wh")),
			Name:    "Main Warehouse",
			Code:    "WH-001",
			Address: "123 Industrial Blvd, City, State 12345",
			Racks:   []Rack{},
		}},
		Products: []Product{{
			ID:           ProductID(ids.NewID("prod")),
			SKU:          "SAMPLE-001",
			Name:         "Sample Product",
			Category:     CategoryOther,
			UOM:          UnitPieces,
			ReorderLevel: 10,
			Description:  "This is a sample product. You can edit it.",
			CreatedAt:    now,
			UpdatedAt:    now,
		}},
	}
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway reads and writes one user scope.
type Gateway struct {
	kv     KVStore
	userID string
}

// NewGateway scopes kv to userID. An empty userID addresses the legacy,
// unsuffixed keys.
func NewGateway(kv KVStore, userID string) *Gateway {
	return &Gateway{kv: kv, userID: userID}
}

// UserID returns the scope this gateway addresses.
func (g *Gateway) UserID() string { return g.userID }

// Key returns the storage key of a namespace in this scope.
func (g *Gateway) Key(ns Namespace) string {
	if g.userID == "" {
		return string(ns)
	}
	return string(ns) + "_" + g.userID
}

// Load reads every namespace. Absent namespaces load as empty sequences.
func (g *Gateway) Load(ctx context.Context) (State, error) {
	var s State
	for _, ns := range Namespaces {
		raw, err := g.kv.Get(ctx, g.Key(ns))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return State{}, fmt.Errorf("inventory: load %s: %w", ns, err)
		}
		if err := decodeInto(&s, ns, raw); err != nil {
			return State{}, fmt.Errorf("inventory: decode %s: %w", ns, err)
		}
	}
	return s, nil
}

// Save writes the given namespaces of s in one atomic batch. No namespaces means all.
func (g *Gateway) Save(ctx context.Context, s State, namespaces ...Namespace) error {
	if len(namespaces) == 0 {
		namespaces = Namespaces
	}
	entries := make(map[string][]byte, len(namespaces))
	for _, ns := range namespaces {
		raw, err := encodeFrom(s, ns)
		if err != nil {
			return fmt.Errorf("inventory: encode %s: %w", ns, err)
		}
		entries[g.Key(ns)] = raw
	}
	if len(entries) == 1 {
		for k, v := range entries {
			if err := g.kv.Set(ctx, k, v); err != nil {
				return fmt.Errorf("inventory: save: %w", err)
			}
		}
		return nil
	}
	if err := g.kv.SetBatch(ctx, entries); err != nil {
		return fmt.Errorf("inventory: save: %w", err)
	}
	return nil
}

// IsInitialized reports whether the scope has been set up.
func (g *Gateway) IsInitialized(ctx context.Context) (bool, error) {
	raw, err := g.kv.Get(ctx, g.Key(namespaceInitialized))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inventory: read init marker: %w", err)
	}
	return string(raw) == "true", nil
}

// Initialize sets up an untouched scope with seed data and empty sequences.
// It returns false without writing anything if the scope is already initialized.
func (g *Gateway) Initialize(ctx context.Context, seed Seed) (bool, error) {
	ok, err := g.IsInitialized(ctx)
	if err != nil || ok {
		return false, err
	}
	s := State{Warehouses: seed.Warehouses, Products: seed.Products}
	entries := make(map[string][]byte, len(Namespaces)+1)
	for _, ns := range Namespaces {
		raw, err := encodeFrom(s, ns)
		if err != nil {
			return false, fmt.Errorf("inventory: encode %s: %w", ns, err)
		}
		entries[g.Key(ns)] = raw
	}
	entries[g.Key(namespaceInitialized)] = []byte("true")
	if err := g.kv.SetBatch(ctx, entries); err != nil {
		return false, fmt.Errorf("inventory: initialize: %w", err)
	}
	return true, nil
}

// Clear deletes every namespace and the initialization marker of the scope.
func (g *Gateway) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(Namespaces)+1)
	for _, ns := range Namespaces {
		keys = append(keys, g.Key(ns))
	}
	keys = append(keys, g.Key(namespaceInitialized))
	if err := g.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("inventory: clear: %w", err)
	}
	return nil
}

// MigrateLegacy moves unsuffixed keys written before per-user scoping into
// this scope. It only runs on an uninitialized scope and reports whether
// anything moved.
func (g *Gateway) MigrateLegacy(ctx context.Context) (bool, error) {
	if g.userID == "" {
		return false, nil
	}
	ok, err := g.IsInitialized(ctx)
	if err != nil || ok {
		return false, err
	}
	legacy := NewGateway(g.kv, "")
	entries := make(map[string][]byte)
	var moved []string
	for _, ns := range Namespaces {
		raw, err := g.kv.Get(ctx, legacy.Key(ns))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("inventory: migrate %s: %w", ns, err)
		}
		entries[g.Key(ns)] = raw
		moved = append(moved, legacy.Key(ns))
	}
	if len(moved) == 0 {
		return false, nil
	}
	entries[g.Key(namespaceInitialized)] = []byte("true")
	if err := g.kv.SetBatch(ctx, entries); err != nil {
		return false, fmt.Errorf("inventory: migrate: %w", err)
	}
	moved = append(moved, legacy.Key(namespaceInitialized))
	if err := g.kv.Delete(ctx, moved...); err != nil {
		return true, fmt.Errorf("inventory: migrate cleanup: %w", err)
	}
	return true, nil
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export bundles every present namespace of the scope.
func (g *Gateway) Export(ctx context.Context) (Bundle, error) {
	b := make(Bundle, len(Namespaces))
	for _, ns := range Namespaces {
		raw, err := g.kv.Get(ctx, g.Key(ns))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inventory: export %s: %w", ns, err)
		}
		b[ns] = json.RawMessage(raw)
	}
	return b, nil
}

// Import overwrites the namespaces present in b and marks the scope initialized.
// Every namespace is decoded and checked first; a malformed one aborts before
// any write.
// Unknown namespaces and null payloads are ignored.
func (g *Gateway) Import(ctx context.Context, b Bundle) error {
	entries := make(map[string][]byte, len(b)+1)
	for _, ns := range Namespaces {
		raw, ok := b[ns]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var decoded State
		if err := decodeInto(&decoded, ns, raw); err != nil {
			return &ValidationError{Field: string(ns), Message: err.Error()}
		}
		if err := checkImported(decoded, ns); err != nil {
			return err
		}
		entries[g.Key(ns)] = append([]byte(nil), raw...)
	}
	entries[g.Key(namespaceInitialized)] = []byte("true")
	if err := g.kv.SetBatch(ctx, entries); err != nil {
		return fmt.Errorf("inventory: import: %w", err)
	}
	return nil
}

// ListScopes returns the user ids of every initialized scope in kv, sorted.
// The legacy unsuffixed scope is not listed. kv must implement KeyLister.
func ListScopes(ctx context.Context, kv KVStore) ([]string, error) {
	lister, ok := kv.(KeyLister)
	if !ok {
		return nil, fmt.Errorf("inventory: list scopes: %T cannot list keys", kv)
	}
	prefix := string(namespaceInitialized) + "_"
	keys, err := lister.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("inventory: list scopes: %w", err)
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, k[len(prefix):])
	}
	return users, nil
}

// StorageStats summarizes how much the scope occupies.
type StorageStats struct {
	TotalSize int               `json:"totalSize"`
	ItemCount int               `json:"itemCount"`
	Breakdown map[Namespace]int `json:"breakdown"`
}

// Stats reports the byte size of every present key in the scope.
func (g *Gateway) Stats(ctx context.Context) (StorageStats, error) {
	stats := StorageStats{Breakdown: make(map[Namespace]int)}
	for _, ns := range append(append([]Namespace{}, Namespaces...), namespaceInitialized) {
		raw, err := g.kv.Get(ctx, g.Key(ns))
		if errors.Is(err, ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return StorageStats{}, fmt.Errorf("inventory: stats %s: %w", ns, err)
		}
		stats.TotalSize += len(raw)
		stats.ItemCount++
		stats.Breakdown[ns] = len(raw)
	}
	return stats, nil
}

// =============================================================================
// ENCODING
// =============================================================================

// checkImported rejects decoded data that the mutation API could never have
// produced: unknown statuses, negative or repeated stock rows and repeated
// warehouse codes.
func checkImported(s State, ns Namespace) error {
	bad := func(format string, args ...any) error {
		return &ValidationError{Field: string(ns), Message: fmt.Sprintf(format, args...)}
	}
	checkStatus := func(h DocumentHeader) error {
		if !h.Status.Valid() {
			return bad("document %s has no valid status", h.ID)
		}
		return nil
	}
	switch ns {
	case NamespaceStockLocations:
		type pair struct {
			p ProductID
			w WarehouseID
		}
		seen := make(map[pair]bool, len(s.StockLocations))
		for _, loc := range s.StockLocations {
			if loc.Quantity < 0 {
				return bad("negative stock %d for product %s in warehouse %s", loc.Quantity, loc.ProductID, loc.WarehouseID)
			}
			k := pair{loc.ProductID, loc.WarehouseID}
			if seen[k] {
				return bad("duplicate stock row for product %s in warehouse %s", loc.ProductID, loc.WarehouseID)
			}
			seen[k] = true
		}
	case NamespaceWarehouses:
		codes := make(map[string]bool, len(s.Warehouses))
		for _, w := range s.Warehouses {
			code := NormalizeCode(w.Code)
			if codes[code] {
				return bad("duplicate warehouse code %q", w.Code)
			}
			codes[code] = true
		}
	case NamespaceReceipts:
		for _, d := range s.Receipts {
			if err := checkStatus(d.DocumentHeader); err != nil {
				return err
			}
		}
	case NamespaceDeliveries:
		for _, d := range s.Deliveries {
			if err := checkStatus(d.DocumentHeader); err != nil {
				return err
			}
		}
	case NamespaceTransfers:
		for _, d := range s.Transfers {
			if err := checkStatus(d.DocumentHeader); err != nil {
				return err
			}
		}
	case NamespaceAdjustments:
		for _, d := range s.Adjustments {
			if err := checkStatus(d.DocumentHeader); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeInto(s *State, ns Namespace, raw []byte) error {
	switch ns {
	case NamespaceProducts:
		return json.Unmarshal(raw, &s.Products)
	case NamespaceWarehouses:
		return json.Unmarshal(raw, &s.Warehouses)
	case NamespaceStockLocations:
		return json.Unmarshal(raw, &s.StockLocations)
	case NamespaceReceipts:
		return json.Unmarshal(raw, &s.Receipts)
	case NamespaceDeliveries:
		return json.Unmarshal(raw, &s.Deliveries)
	case NamespaceTransfers:
		return json.Unmarshal(raw, &s.Transfers)
	case NamespaceAdjustments:
		return json.Unmarshal(raw, &s.Adjustments)
	case NamespaceMovements:
		return json.Unmarshal(raw, &s.Movements)
	}
	return fmt.Errorf("unknown namespace %q", ns)
}

func encodeFrom(s State, ns Namespace) ([]byte, error) {
	switch ns {
	case NamespaceProducts:
		return json.Marshal(nonNil(s.Products))
	case NamespaceWarehouses:
		return json.Marshal(nonNil(s.Warehouses))
	case NamespaceStockLocations:
		return json.Marshal(nonNil(s.StockLocations))
	case NamespaceReceipts:
		return json.Marshal(nonNil(s.Receipts))
	case NamespaceDeliveries:
		return json.Marshal(nonNil(s.Deliveries))
	case NamespaceTransfers:
		return json.Marshal(nonNil(s.Transfers))
	case NamespaceAdjustments:
		return json.Marshal(nonNil(s.Adjustments))
	case NamespaceMovements:
		return json.Marshal(nonNil(s.Movements))
	}
	return nil, fmt.Errorf("unknown namespace %q", ns)
}

// nonNil makes empty sequences encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
