/*
engine.go - Document validation and cancellation

PURPOSE:
  Moves documents to their terminal states and, for stock-affecting kinds,
  turns their lines into ledger deltas and movement records.

PROTOCOL (validate):
  1. Resolve the document (unknown id -> *NotFoundError).
  2. Only Draft, Waiting or Ready documents can be validated. Validating a
     Done or Canceled document fails with ErrInvalidTransition, so stock is
     applied at most once per document.
  3. Plan the deltas, in line order:
       Receipt     -> none (record keeping only, no stock, no movement)
       Delivery    -> -quantity at warehouse                 ("Delivery")
       Transfer    -> -quantity at source, +quantity at dest ("Transfer Out"/"Transfer In")
       Adjustment  -> +difference at warehouse               ("Adjustment")
  4. Pre-check every decrease against current stock BEFORE any mutation.
     Demand is summed per (product, warehouse), so two lines drawing on the
     same pair are checked together.
  5. Apply every delta inside Ledger.WithTx, one movement per delta.
  6. Status = Done, validatedAt = now.

PROTOCOL (cancel):
  Draft/Waiting/Ready -> Canceled, validatedAt = now. Never touches the
  ledger. Done -> ErrInvalidTransition. Canceled -> no-op.

STATE MACHINE:
  ┌───────┐  status  ┌─────────┐  status  ┌───────┐
  │ Draft │ ◀──────▶ │ Waiting │ ◀──────▶ │ Ready │
  └───┬───┘          └────┬────┘          └───┬───┘
      └──────────────┬────┴───────────────────┘
             validate│            │cancel
                     ▼            ▼
                 ┌──────┐    ┌──────────┐
                 │ Done │    │ Canceled │
                 └──────┘    └──────────┘

SEE ALSO:
  - ledger.go: ApplyDelta keeps its own non-negative guard
  - inventory.go: persists after each successful call
*/
package inventory

import (
	"fmt"
	"time"
)

// Engine drives document transitions for one user scope.
type Engine struct {
	docs   *DocumentStore
	ledger *Ledger
	ids    IDGenerator
	now    func() time.Time
	userID string
}

// NewEngine wires an engine to its document store and ledger.
// An empty userID is recorded as UnknownUser on movements.
func NewEngine(docs *DocumentStore, ledger *Ledger, ids IDGenerator, now func() time.Time, userID string) *Engine {
	if userID == "" {
		userID = UnknownUser
	}
	return &Engine{docs: docs, ledger: ledger, ids: ids, now: now, userID: userID}
}

// Result describes a completed transition.
type Result struct {
	Kind        DocumentKind    `json:"-"`
	DocumentID  DocumentID      `json:"documentId"`
	Status      Status          `json:"status"`
	ValidatedAt *time.Time      `json:"validatedAt,omitempty"`
	Movements   []StockMovement `json:"movements"`
	Changed     bool            `json:"changed"`
}

func resultOf(doc document, movements []StockMovement, changed bool) Result {
	hdr := doc.header().clone()
	if movements == nil {
		movements = []StockMovement{}
	}
	return Result{
		Kind:        doc.kind(),
		DocumentID:  hdr.ID,
		Status:      hdr.Status,
		ValidatedAt: hdr.ValidatedAt,
		Movements:   movements,
		Changed:     changed,
	}
}

// =============================================================================
// VALIDATE
// =============================================================================

func (e *Engine) ValidateReceipt(id DocumentID) (Result, error) {
	return e.Validate(KindReceipt, id)
}

func (e *Engine) ValidateDelivery(id DocumentID) (Result, error) {
	return e.Validate(KindDelivery, id)
}

func (e *Engine) ValidateTransfer(id DocumentID) (Result, error) {
	return e.Validate(KindTransfer, id)
}

func (e *Engine) ValidateAdjustment(id DocumentID) (Result, error) {
	return e.Validate(KindAdjustment, id)
}

// Validate finalizes a document of any kind. On error nothing has changed.
func (e *Engine) Validate(kind DocumentKind, id DocumentID) (Result, error) {
	doc, err := e.docs.lookup(kind, id)
	if err != nil {
		return Result{}, err
	}
	hdr := doc.header()
	if !canValidate(hdr.Status) {
		return Result{}, &TransitionError{Kind: kind, DocumentID: id, From: hdr.Status, Action: "validate"}
	}

	plan, err := planDeltas(doc)
	if err != nil {
		return Result{}, err
	}
	if err := e.checkAvailability(plan); err != nil {
		return Result{}, err
	}

	now := e.now()
	var movements []StockMovement
	err = e.ledger.WithTx(func() error {
		for _, d := range plan {
			previous, next, err := e.ledger.ApplyDelta(d.productID, d.warehouseID, d.delta)
			if err != nil {
				return err
			}
			m := StockMovement{
				ID:             MovementID(e.ids.NewID("mov")),
				ProductID:      d.productID,
				WarehouseID:    d.warehouseID,
				MovementType:   d.movementType,
				DocumentType:   kind.String(),
				DocumentID:     hdr.ID,
				DocumentNumber: hdr.DocumentNumber,
				Quantity:       next - previous,
				PreviousStock:  previous,
				NewStock:       next,
				Timestamp:      now,
				UserID:         e.userID,
			}
			if err := e.ledger.RecordMovement(m); err != nil {
				return err
			}
			movements = append(movements, m)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	hdr.Status = StatusDone
	hdr.ValidatedAt = &now
	return resultOf(doc, movements, true), nil
}

func canValidate(s Status) bool {
	switch s {
	case StatusDraft, StatusWaiting, StatusReady:
		return true
	case StatusDone, StatusCanceled:
		return false
	case statusUnknown:
		return false
	}
	return false
}

// =============================================================================
// PLANNING
// =============================================================================

type plannedDelta struct {
	productID    ProductID
	warehouseID  WarehouseID
	delta        int
	movementType MovementType
}

// planDeltas turns a document's lines into ordered signed deltas.
func planDeltas(doc document) ([]plannedDelta, error) {
	var plan []plannedDelta
	switch d := doc.(type) {
	case *Receipt:
		// Receipts are record keeping only.
		return nil, nil
	case *Delivery:
		for _, l := range d.Lines {
			if l.Quantity <= 0 {
				return nil, lineError(l.ID, "quantity must be greater than 0")
			}
			plan = append(plan, plannedDelta{l.ProductID, d.WarehouseID, -l.Quantity, MovementDelivery})
		}
	case *InternalTransfer:
		if d.SourceWarehouseID == d.DestinationWarehouseID {
			return nil, errSameWarehouse()
		}
		for _, l := range d.Lines {
			if l.Quantity <= 0 {
				return nil, lineError(l.ID, "quantity must be greater than 0")
			}
			plan = append(plan,
				plannedDelta{l.ProductID, d.SourceWarehouseID, -l.Quantity, MovementTransferOut},
				plannedDelta{l.ProductID, d.DestinationWarehouseID, l.Quantity, MovementTransferIn},
			)
		}
	case *StockAdjustment:
		for _, l := range d.Lines {
			plan = append(plan, plannedDelta{l.ProductID, d.WarehouseID, l.Difference, MovementAdjustment})
		}
	default:
		return nil, fmt.Errorf("inventory: unsupported document %T", doc)
	}
	return plan, nil
}

func lineError(lineID, msg string) error {
	return &ValidationError{Field: "lines[" + lineID + "]", Message: msg}
}

// checkAvailability verifies every decrease in the plan against current stock.
// Nothing is mutated.
func (e *Engine) checkAvailability(plan []plannedDelta) error {
	demand := make(map[stockKey]int)
	var order []stockKey
	for _, d := range plan {
		if d.delta >= 0 {
			continue
		}
		k := stockKey{d.productID, d.warehouseID}
		if _, seen := demand[k]; !seen {
			order = append(order, k)
		}
		demand[k] += -d.delta
	}
	for _, k := range order {
		available := e.ledger.QuantityAt(k.ProductID, k.WarehouseID)
		if available < demand[k] {
			return &InsufficientStockError{
				ProductID:   k.ProductID,
				WarehouseID: k.WarehouseID,
				Available:   available,
				Requested:   demand[k],
			}
		}
	}
	return nil
}

// =============================================================================
// CANCEL
// =============================================================================

func (e *Engine) CancelReceipt(id DocumentID) (Result, error) {
	return e.Cancel(KindReceipt, id)
}

func (e *Engine) CancelDelivery(id DocumentID) (Result, error) {
	return e.Cancel(KindDelivery, id)
}

func (e *Engine) CancelTransfer(id DocumentID) (Result, error) {
	return e.Cancel(KindTransfer, id)
}

func (e *Engine) CancelAdjustment(id DocumentID) (Result, error) {
	return e.Cancel(KindAdjustment, id)
}

// Cancel moves an open document to Canceled without touching stock.
// Canceling an already canceled document changes nothing and returns Changed=false.
func (e *Engine) Cancel(kind DocumentKind, id DocumentID) (Result, error) {
	doc, err := e.docs.lookup(kind, id)
	if err != nil {
		return Result{}, err
	}
	hdr := doc.header()
	switch hdr.Status {
	case StatusDone:
		return Result{}, &TransitionError{Kind: kind, DocumentID: id, From: hdr.Status, Action: "cancel"}
	case StatusCanceled:
		return resultOf(doc, nil, false), nil
	case StatusDraft, StatusWaiting, StatusReady:
		now := e.now()
		hdr.Status = StatusCanceled
		hdr.ValidatedAt = &now
		return resultOf(doc, nil, true), nil
	case statusUnknown:
	}
	return Result{}, &TransitionError{Kind: kind, DocumentID: id, From: hdr.Status, Action: "cancel"}
}

// =============================================================================
// INTERMEDIATE STATUS
// =============================================================================

// UpdateStatus moves an open document between Draft, Waiting and Ready.
// Done and Canceled can only be reached through Validate and Cancel.
func (e *Engine) UpdateStatus(kind DocumentKind, id DocumentID, status Status) (Result, error) {
	switch status {
	case StatusDraft, StatusWaiting, StatusReady:
	case StatusDone, StatusCanceled, statusUnknown:
		return Result{}, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("status %s can only be set by validate or cancel", status),
		}
	default:
		return Result{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %s", status)}
	}

	doc, err := e.docs.lookup(kind, id)
	if err != nil {
		return Result{}, err
	}
	hdr := doc.header()
	if hdr.Status.IsTerminal() {
		return Result{}, &TransitionError{Kind: kind, DocumentID: id, From: hdr.Status, Action: "change status of"}
	}
	now := e.now()
	hdr.Status = status
	hdr.ValidatedAt = &now
	return resultOf(doc, nil, true), nil
}

// UpdateDeliveryStatus is the delivery shorthand for UpdateStatus.
func (e *Engine) UpdateDeliveryStatus(id DocumentID, status Status) (Result, error) {
	return e.UpdateStatus(KindDelivery, id, status)
}
