/*
ledger.go - Stock on hand and the append-only movement log

PURPOSE:
  The Ledger is the source of truth for "how much stock exists where and
  how it got there". It owns two things:
  - StockLocation rows, one per (product, warehouse) pair
  - StockMovement records, one per applied delta

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: ApplyDelta refuses any delta that would drive a row below
     zero, independent of the engine's own pre-check.
  2. LAZY ROWS: a row is created on the first positive delta into a pair and
     never deleted.
  3. APPEND-ONLY: movements are never updated or removed.

ATOMIC SECTIONS:
  WithTx snapshots rows and movements, runs fn, and restores the snapshot if
  fn fails. The engine applies a whole document inside one section, so a
  document either lands completely or not at all.

SEE ALSO:
  - engine.go: the only writer of stock in normal operation
  - store/memory.go: same snapshot/restore approach for KV batches
*/
package inventory

import (
	"sort"
)

type stockKey struct {
	ProductID   ProductID
	WarehouseID WarehouseID
}

// Ledger holds stock rows and movements for one user scope.
// It is not safe for concurrent use.
type Ledger struct {
	locations []StockLocation
	index     map[stockKey]int
	movements []StockMovement
}

// NewLedger builds a ledger from persisted rows and movements.
func NewLedger(locations []StockLocation, movements []StockMovement) *Ledger {
	l := &Ledger{
		locations: append([]StockLocation(nil), locations...),
		movements: append([]StockMovement(nil), movements...),
	}
	l.reindex()
	return l
}

func (l *Ledger) reindex() {
	l.index = make(map[stockKey]int, len(l.locations))
	for i, loc := range l.locations {
		l.index[stockKey{loc.ProductID, loc.WarehouseID}] = i
	}
}

// =============================================================================
// READS
// =============================================================================

// QuantityAt returns stock on hand for a pair, 0 when no row exists.
func (l *Ledger) QuantityAt(productID ProductID, warehouseID WarehouseID) int {
	if i, ok := l.index[stockKey{productID, warehouseID}]; ok {
		return l.locations[i].Quantity
	}
	return 0
}

// TotalQuantity sums a product's stock across all warehouses.
func (l *Ledger) TotalQuantity(productID ProductID) int {
	total := 0
	for _, loc := range l.locations {
		if loc.ProductID == productID {
			total += loc.Quantity
		}
	}
	return total
}

// StockForProduct returns every row held for a product.
func (l *Ledger) StockForProduct(productID ProductID) []StockLocation {
	var rows []StockLocation
	for _, loc := range l.locations {
		if loc.ProductID == productID {
			rows = append(rows, loc)
		}
	}
	return rows
}

// CheckAvailability reports whether quantity can be taken from the pair.
func (l *Ledger) CheckAvailability(productID ProductID, warehouseID WarehouseID, quantity int) bool {
	return l.QuantityAt(productID, warehouseID) >= quantity
}

// Locations returns a copy of all stock rows.
func (l *Ledger) Locations() []StockLocation {
	return append([]StockLocation{}, l.locations...)
}

// MovementFilter narrows Movements. Zero fields match everything.
type MovementFilter struct {
	ProductID   ProductID
	WarehouseID WarehouseID
	DocumentID  DocumentID
	Type        MovementType
}

func (f MovementFilter) matches(m StockMovement) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
		return false
	}
	if f.DocumentID != "" && m.DocumentID != f.DocumentID {
		return false
	}
	if f.Type != "" && m.MovementType != f.Type {
		return false
	}
	return true
}

// Movements returns matching movements in the order they were recorded.
func (l *Ledger) Movements(filter MovementFilter) []StockMovement {
	result := []StockMovement{}
	for _, m := range l.movements {
		if filter.matches(m) {
			result = append(result, m)
		}
	}
	return result
}

// RecentMovements returns up to limit movements, newest first.
func (l *Ledger) RecentMovements(filter MovementFilter, limit int) []StockMovement {
	ms := l.Movements(filter)
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Timestamp.After(ms[j].Timestamp)
	})
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	return ms
}

// =============================================================================
// WRITES
// =============================================================================

// ApplyDelta adds delta to a pair's quantity and returns the quantities before
// and after. It fails with *InsufficientStockError if the result would be negative.
func (l *Ledger) ApplyDelta(productID ProductID, warehouseID WarehouseID, delta int) (previous, next int, err error) {
	key := stockKey{productID, warehouseID}
	i, ok := l.index[key]
	if !ok {
		if delta < 0 {
			return 0, 0, &InsufficientStockError{
				ProductID:   productID,
				WarehouseID: warehouseID,
				Available:   0,
				Requested:   -delta,
			}
		}
		if delta == 0 {
			return 0, 0, nil
		}
		l.locations = append(l.locations, StockLocation{ProductID: productID, WarehouseID: warehouseID, Quantity: delta})
		l.index[key] = len(l.locations) - 1
		return 0, delta, nil
	}

	previous = l.locations[i].Quantity
	next = previous + delta
	if next < 0 {
		return previous, previous, &InsufficientStockError{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Available:   previous,
			Requested:   -delta,
		}
	}
	l.locations[i].Quantity = next
	return previous, next, nil
}

// RecordMovement appends m to the log. Only structural completeness is checked.
func (l *Ledger) RecordMovement(m StockMovement) error {
	switch {
	case m.ID == "":
		return &ValidationError{Field: "id", Message: "movement id is required"}
	case m.ProductID == "":
		return &ValidationError{Field: "productId", Message: "movement product is required"}
	case m.WarehouseID == "":
		return &ValidationError{Field: "warehouseId", Message: "movement warehouse is required"}
	case m.MovementType == "":
		return &ValidationError{Field: "movementType", Message: "movement type is required"}
	case m.DocumentID == "":
		return &ValidationError{Field: "documentId", Message: "movement document is required"}
	}
	l.movements = append(l.movements, m)
	return nil
}

// =============================================================================
// ATOMIC SECTIONS
// =============================================================================

type ledgerSnapshot struct {
	locations []StockLocation
	movements int
}

// WithTx runs fn and rolls every row and movement back if fn returns an error.
func (l *Ledger) WithTx(fn func() error) error {
	snap := ledgerSnapshot{
		locations: append([]StockLocation(nil), l.locations...),
		movements: len(l.movements),
	}
	if err := fn(); err != nil {
		l.locations = snap.locations
		l.movements = l.movements[:snap.movements]
		l.reindex()
		return err
	}
	return nil
}
