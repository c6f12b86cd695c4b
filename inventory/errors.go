/*
errors.go - Centralized error types for the inventory core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every structured error unwraps to a sentinel so callers can branch
  with errors.Is and still read the details with errors.As.

ERROR CATEGORIES:
  1. Stock errors - availability pre-check or ledger guard
  2. Catalog errors - duplicate warehouse code / SKU
  3. Lifecycle errors - invalid document transitions
  4. Input errors - malformed create/update input
  5. Lookup errors - unknown entity ids

USAGE:
  if errors.Is(err, inventory.ErrInsufficientStock) {
      var se *inventory.InsufficientStockError
      errors.As(err, &se)
      fmt.Println(se.Available, se.Requested)
  }

SEE ALSO:
  - engine.go: returns stock and lifecycle errors
  - catalog.go: returns catalog errors
  - api/handlers.go: maps these to HTTP status codes
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when a decrease exceeds stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateCode is returned when a warehouse code is already taken.
	ErrDuplicateCode = errors.New("duplicate warehouse code")

	// ErrDuplicateSKU is returned when SKU uniqueness is enforced and the SKU is taken.
	ErrDuplicateSKU = errors.New("duplicate sku")

	// ErrInvalidTransition is returned when a document can't move to the requested status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an id doesn't resolve.
	ErrNotFound = errors.New("not found")

	// ErrKeyNotFound is returned by KV stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError names the deficient pair and the shortfall.
type InsufficientStockError struct {
	ProductID   ProductID
	WarehouseID WarehouseID
	Available   int
	Requested   int
}

// Shortfall is how many units are missing.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s in warehouse %s. Available: %d, Requested: %d",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// DuplicateCodeError reports a warehouse code collision.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("Warehouse code %q already exists", e.Code)
}

func (e *DuplicateCodeError) Unwrap() error {
	return ErrDuplicateCode
}

// DuplicateSKUError reports a SKU collision when uniqueness is enforced.
type DuplicateSKUError struct {
	SKU      string
	Existing ProductID
}

func (e *DuplicateSKUError) Error() string {
	return fmt.Sprintf("SKU %q already used by product %s", e.SKU, e.Existing)
}

func (e *DuplicateSKUError) Unwrap() error {
	return ErrDuplicateSKU
}

// TransitionError reports an action that the document's status forbids.
type TransitionError struct {
	Kind       DocumentKind
	DocumentID DocumentID
	From       Status
	Action     string
}

func (e *TransitionError) Error() string {
	if e.From == StatusDone && e.Action == "cancel" {
		return fmt.Sprintf("Cannot cancel a completed %s (%s)", lowerKind(e.Kind), e.DocumentID)
	}
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, lowerKind(e.Kind), e.DocumentID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to caller input or document state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func lowerKind(k DocumentKind) string {
	switch k {
	case KindReceipt:
		return "receipt"
	case KindDelivery:
		return "delivery"
	case KindTransfer:
		return "transfer"
	case KindAdjustment:
		return "adjustment"
	}
	return "document"
}
