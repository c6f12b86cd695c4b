/*
documents.go - Storage and lookup for the four document kinds

PURPOSE:
  Pure CRUD: create (fresh id, createdAt, caller-supplied initial status),
  lookup by id, listing, and line replacement while a document is still
  open. Status changes are NOT made here; they go through the Engine.

RULES:
  - New documents start in Draft, Waiting or Ready (Draft when unset).
    Done and Canceled are only reachable through validate/cancel.
  - Lines of a Done or Canceled document are frozen.
  - A missing document number gets the next REC-/DEL-/INT-/ADJ-nnn number.

SEE ALSO:
  - engine.go: validate/cancel/status transitions
*/
package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// INPUTS
// =============================================================================

type LineInput struct {
	ProductID ProductID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type AdjustmentLineInput struct {
	ProductID  ProductID `json:"productId" validate:"required"`
	Difference int       `json:"difference" validate:"ne=0"`
}

type ReceiptInput struct {
	DocumentNumber string      `json:"documentNumber" validate:"max=64"`
	VendorName     string      `json:"vendorName" validate:"required,max=200"`
	VendorContact  string      `json:"vendorContact"`
	WarehouseID    WarehouseID `json:"warehouseId" validate:"required"`
	Status         Status      `json:"status,omitempty"`
	Notes          string      `json:"notes"`
	Lines          []LineInput `json:"lines" validate:"min=1,dive"`
}

type DeliveryInput struct {
	DocumentNumber  string      `json:"documentNumber" validate:"max=64"`
	CustomerName    string      `json:"customerName" validate:"required,max=200"`
	CustomerContact string      `json:"customerContact"`
	WarehouseID     WarehouseID `json:"warehouseId" validate:"required"`
	Status          Status      `json:"status,omitempty"`
	Notes           string      `json:"notes"`
	Lines           []LineInput `json:"lines" validate:"min=1,dive"`
}

type TransferInput struct {
	DocumentNumber         string      `json:"documentNumber" validate:"max=64"`
	SourceWarehouseID      WarehouseID `json:"sourceWarehouseId" validate:"required"`
	DestinationWarehouseID WarehouseID `json:"destinationWarehouseId" validate:"required"`
	Status                 Status      `json:"status,omitempty"`
	Notes                  string      `json:"notes"`
	Lines                  []LineInput `json:"lines" validate:"min=1,dive"`
}

type AdjustmentInput struct {
	DocumentNumber string                `json:"documentNumber" validate:"max=64"`
	WarehouseID    WarehouseID           `json:"warehouseId" validate:"required"`
	AdjustmentType AdjustmentType        `json:"adjustmentType" validate:"required,max=64"`
	Status         Status                `json:"status,omitempty"`
	Notes          string                `json:"notes"`
	Lines          []AdjustmentLineInput `json:"lines" validate:"min=1,dive"`
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore holds every document of one user scope.
type DocumentStore struct {
	receipts    []*Receipt
	deliveries  []*Delivery
	transfers   []*InternalTransfer
	adjustments []*StockAdjustment

	ids      IDGenerator
	now      func() time.Time
	validate *validator.Validate
}

func newDocumentStore(s State, ids IDGenerator, now func() time.Time, v *validator.Validate) *DocumentStore {
	ds := &DocumentStore{ids: ids, now: now, validate: v}
	for _, r := range s.Receipts {
		r := r.clone()
		ds.receipts = append(ds.receipts, &r)
	}
	for _, d := range s.Deliveries {
		d := d.clone()
		ds.deliveries = append(ds.deliveries, &d)
	}
	for _, t := range s.Transfers {
		t := t.clone()
		ds.transfers = append(ds.transfers, &t)
	}
	for _, a := range s.Adjustments {
		a := a.clone()
		ds.adjustments = append(ds.adjustments, &a)
	}
	return ds
}

func (ds *DocumentStore) newHeader(kind DocumentKind, number string, status Status, notes string) (DocumentHeader, error) {
	if status == statusUnknown {
		status = StatusDraft
	}
	if !status.Valid() {
		return DocumentHeader{}, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %s", status)}
	}
	if status.IsTerminal() {
		return DocumentHeader{}, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("a new document can't start in %s", status),
		}
	}
	number = strings.TrimSpace(number)
	if number == "" {
		number = ds.nextNumber(kind)
	}
	return DocumentHeader{
		ID:             DocumentID(ds.ids.NewID(kind.idPrefix())),
		DocumentNumber: number,
		Status:         status,
		CreatedAt:      ds.now(),
		Notes:          notes,
	}, nil
}

// nextNumber returns PREFIX-NNN one past the highest number already issued
// for kind. Numbers supplied by callers or brought in by an import count too.
func (ds *DocumentStore) nextNumber(kind DocumentKind) string {
	prefix := kind.numberPrefix() + "-"
	var numbers []string
	switch kind {
	case KindReceipt:
		for _, r := range ds.receipts {
			numbers = append(numbers, r.DocumentNumber)
		}
	case KindDelivery:
		for _, d := range ds.deliveries {
			numbers = append(numbers, d.DocumentNumber)
		}
	case KindTransfer:
		for _, t := range ds.transfers {
			numbers = append(numbers, t.DocumentNumber)
		}
	case KindAdjustment:
		for _, a := range ds.adjustments {
			numbers = append(numbers, a.DocumentNumber)
		}
	}
	highest := 0
	for _, n := range numbers {
		rest, ok := strings.CutPrefix(n, prefix)
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(rest); err == nil && v > highest {
			highest = v
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

func (ds *DocumentStore) newLines(in []LineInput) []Line {
	lines := make([]Line, len(in))
	for i, l := range in {
		lines[i] = Line{ID: ds.ids.NewID("line"), ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return lines
}

func (ds *DocumentStore) newAdjustmentLines(in []AdjustmentLineInput) []AdjustmentLine {
	lines := make([]AdjustmentLine, len(in))
	for i, l := range in {
		lines[i] = AdjustmentLine{ID: ds.ids.NewID("line"), ProductID: l.ProductID, Difference: l.Difference}
	}
	return lines
}

// =============================================================================
// CREATE
// =============================================================================

func (ds *DocumentStore) AddReceipt(in ReceiptInput) (Receipt, error) {
	if err := checkStruct(ds.validate, in); err != nil {
		return Receipt{}, err
	}
	hdr, err := ds.newHeader(KindReceipt, in.DocumentNumber, in.Status, in.Notes)
	if err != nil {
		return Receipt{}, err
	}
	r := &Receipt{
		DocumentHeader: hdr,
		VendorName:     strings.TrimSpace(in.VendorName),
		VendorContact:  in.VendorContact,
		WarehouseID:    in.WarehouseID,
		Lines:          ds.newLines(in.Lines),
	}
	ds.receipts = append(ds.receipts, r)
	return r.clone(), nil
}

func (ds *DocumentStore) AddDelivery(in DeliveryInput) (Delivery, error) {
	if err := checkStruct(ds.validate, in); err != nil {
		return Delivery{}, err
	}
	hdr, err := ds.newHeader(KindDelivery, in.DocumentNumber, in.Status, in.Notes)
	if err != nil {
		return Delivery{}, err
	}
	d := &Delivery{
		DocumentHeader:  hdr,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerContact: in.CustomerContact,
		WarehouseID:     in.WarehouseID,
		Lines:           ds.newLines(in.Lines),
	}
	ds.deliveries = append(ds.deliveries, d)
	return d.clone(), nil
}

// AddTransfer rejects a transfer whose source and destination are the same warehouse.
func (ds *DocumentStore) AddTransfer(in TransferInput) (InternalTransfer, error) {
	if err := checkStruct(ds.validate, in); err != nil {
		return InternalTransfer{}, err
	}
	if in.SourceWarehouseID == in.DestinationWarehouseID {
		return InternalTransfer{}, errSameWarehouse()
	}
	hdr, err := ds.newHeader(KindTransfer, in.DocumentNumber, in.Status, in.Notes)
	if err != nil {
		return InternalTransfer{}, err
	}
	t := &InternalTransfer{
		DocumentHeader:         hdr,
		SourceWarehouseID:      in.SourceWarehouseID,
		DestinationWarehouseID: in.DestinationWarehouseID,
		Lines:                  ds.newLines(in.Lines),
	}
	ds.transfers = append(ds.transfers, t)
	return t.clone(), nil
}

func (ds *DocumentStore) AddAdjustment(in AdjustmentInput) (StockAdjustment, error) {
	if err := checkStruct(ds.validate, in); err != nil {
		return StockAdjustment{}, err
	}
	hdr, err := ds.newHeader(KindAdjustment, in.DocumentNumber, in.Status, in.Notes)
	if err != nil {
		return StockAdjustment{}, err
	}
	a := &StockAdjustment{
		DocumentHeader: hdr,
		WarehouseID:    in.WarehouseID,
		AdjustmentType: in.AdjustmentType,
		Lines:          ds.newAdjustmentLines(in.Lines),
	}
	ds.adjustments = append(ds.adjustments, a)
	return a.clone(), nil
}

func errSameWarehouse() error {
	return &ValidationError{
		Field:   "destinationWarehouseId",
		Message: "source and destination warehouse must differ",
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

func notFound(kind DocumentKind, id DocumentID) error {
	return &NotFoundError{Entity: lowerKind(kind), ID: string(id)}
}

func (ds *DocumentStore) receipt(id DocumentID) (*Receipt, error) {
	for _, r := range ds.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, notFound(KindReceipt, id)
}

func (ds *DocumentStore) delivery(id DocumentID) (*Delivery, error) {
	for _, d := range ds.deliveries {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, notFound(KindDelivery, id)
}

func (ds *DocumentStore) transfer(id DocumentID) (*InternalTransfer, error) {
	for _, t := range ds.transfers {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, notFound(KindTransfer, id)
}

func (ds *DocumentStore) adjustment(id DocumentID) (*StockAdjustment, error) {
	for _, a := range ds.adjustments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, notFound(KindAdjustment, id)
}

// lookup resolves a document of any kind for the engine.
func (ds *DocumentStore) lookup(kind DocumentKind, id DocumentID) (document, error) {
	switch kind {
	case KindReceipt:
		return ds.receipt(id)
	case KindDelivery:
		return ds.delivery(id)
	case KindTransfer:
		return ds.transfer(id)
	case KindAdjustment:
		return ds.adjustment(id)
	}
	return nil, &ValidationError{Field: "documentType", Message: fmt.Sprintf("unknown document kind %s", kind)}
}

func (ds *DocumentStore) Receipt(id DocumentID) (Receipt, error) {
	r, err := ds.receipt(id)
	if err != nil {
		return Receipt{}, err
	}
	return r.clone(), nil
}

func (ds *DocumentStore) Delivery(id DocumentID) (Delivery, error) {
	d, err := ds.delivery(id)
	if err != nil {
		return Delivery{}, err
	}
	return d.clone(), nil
}

func (ds *DocumentStore) Transfer(id DocumentID) (InternalTransfer, error) {
	t, err := ds.transfer(id)
	if err != nil {
		return InternalTransfer{}, err
	}
	return t.clone(), nil
}

func (ds *DocumentStore) Adjustment(id DocumentID) (StockAdjustment, error) {
	a, err := ds.adjustment(id)
	if err != nil {
		return StockAdjustment{}, err
	}
	return a.clone(), nil
}

func (ds *DocumentStore) Receipts() []Receipt {
	out := make([]Receipt, 0, len(ds.receipts))
	for _, r := range ds.receipts {
		out = append(out, r.clone())
	}
	return out
}

func (ds *DocumentStore) Deliveries() []Delivery {
	out := make([]Delivery, 0, len(ds.deliveries))
	for _, d := range ds.deliveries {
		out = append(out, d.clone())
	}
	return out
}

func (ds *DocumentStore) Transfers() []InternalTransfer {
	out := make([]InternalTransfer, 0, len(ds.transfers))
	for _, t := range ds.transfers {
		out = append(out, t.clone())
	}
	return out
}

func (ds *DocumentStore) Adjustments() []StockAdjustment {
	out := make([]StockAdjustment, 0, len(ds.adjustments))
	for _, a := range ds.adjustments {
		out = append(out, a.clone())
	}
	return out
}

// =============================================================================
// LINE EDITS - only while the document is open
// =============================================================================

func linesFrozen(doc document) error {
	hdr := doc.header()
	if hdr.Status.IsTerminal() {
		return &TransitionError{Kind: doc.kind(), DocumentID: hdr.ID, From: hdr.Status, Action: "edit lines of"}
	}
	return nil
}

// ReplaceLines swaps the lines of an open receipt, delivery or transfer.
func (ds *DocumentStore) ReplaceLines(kind DocumentKind, id DocumentID, in []LineInput) ([]Line, error) {
	if kind == KindAdjustment {
		return nil, &ValidationError{Field: "lines", Message: "adjustments carry signed differences"}
	}
	if err := checkStruct(ds.validate, linesInput{Lines: in}); err != nil {
		return nil, err
	}
	doc, err := ds.lookup(kind, id)
	if err != nil {
		return nil, err
	}
	if err := linesFrozen(doc); err != nil {
		return nil, err
	}
	lines := ds.newLines(in)
	switch d := doc.(type) {
	case *Receipt:
		d.Lines = lines
	case *Delivery:
		d.Lines = lines
	case *InternalTransfer:
		d.Lines = lines
	}
	return append([]Line(nil), lines...), nil
}

// ReplaceAdjustmentLines swaps the lines of an open adjustment.
func (ds *DocumentStore) ReplaceAdjustmentLines(id DocumentID, in []AdjustmentLineInput) ([]AdjustmentLine, error) {
	if err := checkStruct(ds.validate, adjustmentLinesInput{Lines: in}); err != nil {
		return nil, err
	}
	a, err := ds.adjustment(id)
	if err != nil {
		return nil, err
	}
	if err := linesFrozen(a); err != nil {
		return nil, err
	}
	a.Lines = ds.newAdjustmentLines(in)
	return append([]AdjustmentLine(nil), a.Lines...), nil
}

type linesInput struct {
	Lines []LineInput `json:"lines" validate:"min=1,dive"`
}

type adjustmentLinesInput struct {
	Lines []AdjustmentLineInput `json:"lines" validate:"min=1,dive"`
}

// =============================================================================
// STATE EXPORT
// =============================================================================

func (ds *DocumentStore) fill(s *State) {
	s.Receipts = ds.Receipts()
	s.Deliveries = ds.Deliveries()
	s.Transfers = ds.Transfers()
	s.Adjustments = ds.Adjustments()
}
