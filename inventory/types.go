/*
Package inventory provides the stock ledger and document-validation engine.

PURPOSE:
  This package owns everything with a real invariant in the stock tracker:
  how draft documents become committed stock mutations, how stock-on-hand is
  derived and kept non-negative, and how every mutation is recorded as an
  immutable movement for audit. Screens, onboarding and file handling live
  elsewhere and only call into the API exposed here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product, Warehouse: catalog entities referenced by id
  - StockLocation: quantity on hand for one (product, warehouse) pair
  - Receipt, Delivery, InternalTransfer, StockAdjustment: documents
  - Status: closed lifecycle enum (Draft, Waiting, Ready, Done, Canceled)
  - StockMovement: immutable record of one applied delta
  - State: the eight persisted sequences for one user scope

DESIGN PRINCIPLES:
  1. Typed identifiers: a ProductID can't be passed where a WarehouseID goes
  2. Closed enums: Status is not a bare string, switches over it are exhaustive
  3. JSON field names match the persisted layout (camelCase, ISO-8601 times)

SEE ALSO:
  - ledger.go: StockLocation and StockMovement ownership
  - engine.go: validate/cancel state machine
  - gateway.go: serialization per user scope
*/
package inventory

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type WarehouseID string
type DocumentID string
type MovementID string

// =============================================================================
// STATUS - Document lifecycle
// =============================================================================

// Status is the lifecycle state of a document.
//
//	Draft ──┐
//	Waiting ├──▶ Done      (validate)
//	Ready ──┘──▶ Canceled  (cancel)
//
// Done and Canceled are terminal.
type Status uint8

const (
	statusUnknown Status = iota
	StatusDraft
	StatusWaiting
	StatusReady
	StatusDone
	StatusCanceled
)

var statusNames = map[Status]string{
	StatusDraft:    "Draft",
	StatusWaiting:  "Waiting",
	StatusReady:    "Ready",
	StatusDone:     "Done",
	StatusCanceled: "Canceled",
}

// AllStatuses lists statuses in display order.
var AllStatuses = []Status{StatusDraft, StatusWaiting, StatusReady, StatusDone, StatusCanceled}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDraft, StatusWaiting, StatusReady:
		return false
	case StatusDone, StatusCanceled:
		return true
	case statusUnknown:
		return false
	}
	return false
}

// Valid reports whether s is one of the five lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus parses the persisted name of a status.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return statusUnknown, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", name)}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("inventory: cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// =============================================================================
// DOCUMENT KIND
// =============================================================================

// DocumentKind identifies one of the four document variants.
type DocumentKind uint8

const (
	KindReceipt DocumentKind = iota + 1
	KindDelivery
	KindTransfer
	KindAdjustment
)

// AllKinds lists the document kinds in the order they are persisted.
var AllKinds = []DocumentKind{KindReceipt, KindDelivery, KindTransfer, KindAdjustment}

// String returns the document type recorded on movements.
func (k DocumentKind) String() string {
	switch k {
	case KindReceipt:
		return "Receipt"
	case KindDelivery:
		return "Delivery"
	case KindTransfer:
		return "Internal"
	case KindAdjustment:
		return "Adjustment"
	}
	return fmt.Sprintf("DocumentKind(%d)", uint8(k))
}

func (k DocumentKind) idPrefix() string {
	switch k {
	case KindReceipt:
		return "rec"
	case KindDelivery:
		return "del"
	case KindTransfer:
		return "trans"
	case KindAdjustment:
		return "adj"
	}
	return "doc"
}

func (k DocumentKind) numberPrefix() string {
	switch k {
	case KindReceipt:
		return "REC"
	case KindDelivery:
		return "DEL"
	case KindTransfer:
		return "INT"
	case KindAdjustment:
		return "ADJ"
	}
	return "DOC"
}

// ParseDocumentKind accepts the movement document type or the plural route name.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch s {
	case "Receipt", "receipt", "receipts":
		return KindReceipt, nil
	case "Delivery", "delivery", "deliveries":
		return KindDelivery, nil
	case "Internal", "internal", "transfer", "transfers":
		return KindTransfer, nil
	case "Adjustment", "adjustment", "adjustments":
		return KindAdjustment, nil
	}
	return 0, &ValidationError{Field: "documentType", Message: fmt.Sprintf("unknown document type %q", s)}
}

// =============================================================================
// CATALOG
// =============================================================================

type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryFurniture   Category = "Furniture"
	CategoryClothing    Category = "Clothing"
	CategoryFood        Category = "Food"
	CategoryBooks       Category = "Books"
	CategoryTools       Category = "Tools"
	CategoryOther       Category = "Other"
)

type UnitOfMeasure string

const (
	UnitPieces UnitOfMeasure = "pcs"
	UnitKilos  UnitOfMeasure = "kg"
	UnitPounds UnitOfMeasure = "lbs"
	UnitBox    UnitOfMeasure = "box"
	UnitCarton UnitOfMeasure = "carton"
	UnitDozen  UnitOfMeasure = "dozen"
)

// Product is a stock-keeping unit. Products are never deleted.
type Product struct {
	ID           ProductID     `json:"id"`
	SKU          string        `json:"sku"`
	Name         string        `json:"name"`
	Category     Category      `json:"category"`
	UOM          UnitOfMeasure `json:"uom"`
	ReorderLevel int           `json:"reorderLevel"`
	Description  string        `json:"description"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Rack is a named sub-location inside a warehouse. Stock is not tracked per rack.
type Rack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Warehouse is a physical stock location. Code is immutable after creation.
type Warehouse struct {
	ID      WarehouseID `json:"id"`
	Name    string      `json:"name"`
	Code    string      `json:"code"`
	Address string      `json:"address"`
	Racks   []Rack      `json:"racks"`
}

// =============================================================================
// STOCK
// =============================================================================

// StockLocation is the quantity on hand for one (product, warehouse) pair.
// Quantity is never negative.
type StockLocation struct {
	ProductID   ProductID   `json:"productId"`
	WarehouseID WarehouseID `json:"warehouseId"`
	Quantity    int         `json:"quantity"`
}

type MovementType string

const (
	MovementDelivery    MovementType = "Delivery"
	MovementTransferOut MovementType = "Transfer Out"
	MovementTransferIn  MovementType = "Transfer In"
	MovementAdjustment  MovementType = "Adjustment"
)

// UnknownUser is recorded on movements when no acting user is known.
const UnknownUser = "unknown"

// StockMovement is the audit record of one applied delta.
// NewStock - PreviousStock == Quantity always holds.
type StockMovement struct {
	ID             MovementID   `json:"id"`
	ProductID      ProductID    `json:"productId"`
	WarehouseID    WarehouseID  `json:"warehouseId"`
	MovementType   MovementType `json:"movementType"`
	DocumentType   string       `json:"documentType"`
	DocumentID     DocumentID   `json:"documentId"`
	DocumentNumber string       `json:"documentNumber"`
	Quantity       int          `json:"quantity"`
	PreviousStock  int          `json:"previousStock"`
	NewStock       int          `json:"newStock"`
	Timestamp      time.Time    `json:"timestamp"`
	UserID         string       `json:"userId"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentHeader holds the fields common to every document kind.
type DocumentHeader struct {
	ID             DocumentID `json:"id"`
	DocumentNumber string     `json:"documentNumber"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ValidatedAt    *time.Time `json:"validatedAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Line is a product quantity on a receipt, delivery or transfer.
type Line struct {
	ID        string    `json:"id"`
	ProductID ProductID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// AdjustmentLine carries a signed difference: positive adds stock, negative removes it.
type AdjustmentLine struct {
	ID         string    `json:"id"`
	ProductID  ProductID `json:"productId"`
	Difference int       `json:"difference"`
}

type Receipt struct {
	DocumentHeader
	VendorName    string      `json:"vendorName"`
	VendorContact string      `json:"vendorContact"`
	WarehouseID   WarehouseID `json:"warehouseId"`
	Lines         []Line      `json:"lines"`
}

type Delivery struct {
	DocumentHeader
	CustomerName    string      `json:"customerName"`
	CustomerContact string      `json:"customerContact"`
	WarehouseID     WarehouseID `json:"warehouseId"`
	Lines           []Line      `json:"lines"`
}

type InternalTransfer struct {
	DocumentHeader
	SourceWarehouseID      WarehouseID `json:"sourceWarehouseId"`
	DestinationWarehouseID WarehouseID `json:"destinationWarehouseId"`
	Lines                  []Line      `json:"lines"`
}

type AdjustmentType string

const (
	AdjustmentCount  AdjustmentType = "Physical Count"
	AdjustmentDamage AdjustmentType = "Damage"
	AdjustmentLoss   AdjustmentType = "Loss"
	AdjustmentFound  AdjustmentType = "Found"
	AdjustmentOther  AdjustmentType = "Other"
)

type StockAdjustment struct {
	DocumentHeader
	WarehouseID    WarehouseID      `json:"warehouseId"`
	AdjustmentType AdjustmentType   `json:"adjustmentType"`
	Lines          []AdjustmentLine `json:"lines"`
}

// document is implemented by the pointer form of every document kind so the
// engine can drive the shared lifecycle without caring about the variant.
type document interface {
	header() *DocumentHeader
	kind() DocumentKind
}

func (r *Receipt) header() *DocumentHeader          { return &r.DocumentHeader }
func (r *Receipt) kind() DocumentKind               { return KindReceipt }
func (d *Delivery) header() *DocumentHeader         { return &d.DocumentHeader }
func (d *Delivery) kind() DocumentKind              { return KindDelivery }
func (t *InternalTransfer) header() *DocumentHeader { return &t.DocumentHeader }
func (t *InternalTransfer) kind() DocumentKind      { return KindTransfer }
func (a *StockAdjustment) header() *DocumentHeader  { return &a.DocumentHeader }
func (a *StockAdjustment) kind() DocumentKind       { return KindAdjustment }

// clones keep callers from reaching into stored line slices.

func (h DocumentHeader) clone() DocumentHeader {
	if h.ValidatedAt != nil {
		at := *h.ValidatedAt
		h.ValidatedAt = &at
	}
	return h
}

func (r Receipt) clone() Receipt {
	r.DocumentHeader = r.DocumentHeader.clone()
	r.Lines = append([]Line{}, r.Lines...)
	return r
}

func (d Delivery) clone() Delivery {
	d.DocumentHeader = d.DocumentHeader.clone()
	d.Lines = append([]Line{}, d.Lines...)
	return d
}

func (t InternalTransfer) clone() InternalTransfer {
	t.DocumentHeader = t.DocumentHeader.clone()
	t.Lines = append([]Line{}, t.Lines...)
	return t
}

func (a StockAdjustment) clone() StockAdjustment {
	a.DocumentHeader = a.DocumentHeader.clone()
	a.Lines = append([]AdjustmentLine{}, a.Lines...)
	return a
}

func (w Warehouse) clone() Warehouse {
	w.Racks = append([]Rack{}, w.Racks...)
	return w
}

// =============================================================================
// STATE - Everything persisted for one user scope
// =============================================================================

// State is a point-in-time copy of one user scope.
type State struct {
	Products       []Product          `json:"products"`
	Warehouses     []Warehouse        `json:"warehouses"`
	StockLocations []StockLocation    `json:"stockLocations"`
	Receipts       []Receipt          `json:"receipts"`
	Deliveries     []Delivery         `json:"deliveries"`
	Transfers      []InternalTransfer `json:"transfers"`
	Adjustments    []StockAdjustment  `json:"adjustments"`
	Movements      []StockMovement    `json:"movements"`
}
