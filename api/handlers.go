/*
handlers.go - HTTP API handlers for the stock tracker

PURPOSE:
  Exposes one inventory scope per user via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the inventory
  facade. No stock rule lives here.

ENDPOINTS:
  Catalog:
    GET    /api/products                   List products
    POST   /api/products                   Create product
    GET    /api/products/sku/{sku}         Look up by SKU
    GET    /api/products/{id}              Get product
    PUT    /api/products/{id}              Partial update
    GET    /api/products/{id}/stock        Stock per warehouse + total
    GET    /api/warehouses                 List warehouses
    POST   /api/warehouses                 Create warehouse (409 on duplicate code)
    GET    /api/warehouses/{id}            Get warehouse
    PUT    /api/warehouses/{id}            Update name/address

  Stock:
    GET    /api/stock                      All stock rows
    GET    /api/stock/availability         ?productId&warehouseId&quantity
    GET    /api/movements                  ?productId&warehouseId&documentId&type

  Documents ({kind} = receipts | deliveries | transfers | adjustments):
    GET    /api/{kind}                     List
    POST   /api/{kind}                     Create
    GET    /api/{kind}/{id}                Get
    PUT    /api/{kind}/{id}/lines          Replace lines (open documents only)
    POST   /api/{kind}/{id}/status         Draft / Waiting / Ready
    POST   /api/{kind}/{id}/validate       Apply to stock, status Done
    POST   /api/{kind}/{id}/cancel         Status Canceled, stock untouched

  Dashboard:
    GET    /api/dashboard                  ?category&warehouseId&documentType&status

  Data:
    GET    /api/data/export                Bundle of all namespaces
    POST   /api/data/import                Replace namespaces from a bundle
    GET    /api/data/stats                 Storage usage
    POST   /api/data/reset                 Clear (and re-seed) the scope

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    GET    /api/scenarios/current          Scenario loaded in this scope
    POST   /api/scenarios/load             Load a demo scenario

USER SCOPES:
  The acting user comes from the X-User-ID header (identity is handled
  upstream). Requests without it use DefaultUser. Each user gets its own
  inventory.Inventory, opened lazily and cached.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown product, warehouse, document or scenario
  - 409: Insufficient stock, duplicate code/SKU, invalid transition
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario endpoints
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/stock-master/inventory"
)

// UserHeader carries the acting user id.
const UserHeader = "X-User-ID"

// DefaultUser is the scope used when no user header is sent.
const DefaultUser = "local"

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,128}$`)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures how user scopes are opened.
type Options struct {
	SeedDefaults     bool
	EnforceUniqueSKU bool
	Logger           zerolog.Logger
	IDs              inventory.IDGenerator
	Now              func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	KV   inventory.KVStore
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	scopes map[string]*inventory.Inventory

	// Track currently loaded scenario per user
	currentScenario map[string]string
}

// NewHandler creates a new handler over the given store.
func NewHandler(kv inventory.KVStore, opts Options) *Handler {
	return &Handler{
		KV:              kv,
		opts:            opts,
		log:             opts.Logger,
		scopes:          make(map[string]*inventory.Inventory),
		currentScenario: make(map[string]string),
	}
}

func userFrom(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		return DefaultUser, nil
	}
	if !userIDPattern.MatchString(id) {
		return "", &inventory.ValidationError{Field: UserHeader, Message: "invalid user id"}
	}
	return id, nil
}

// Scope returns the inventory of userID, opening it on first use.
func (h *Handler) Scope(ctx context.Context, userID string) (*inventory.Inventory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if inv, ok := h.scopes[userID]; ok {
		return inv, nil
	}
	log := h.log.With().Str("user", userID).Logger()
	inv, err := inventory.Open(ctx, inventory.NewGateway(h.KV, userID), inventory.Options{
		UserID:           userID,
		IDs:              h.opts.IDs,
		Now:              h.opts.Now,
		Logger:           &log,
		SeedDefaults:     h.opts.SeedDefaults,
		EnforceUniqueSKU: h.opts.EnforceUniqueSKU,
	})
	if err != nil {
		return nil, err
	}
	h.scopes[userID] = inv
	return inv, nil
}

// inventory resolves the caller's scope, writing the error response on failure.
func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) (*inventory.Inventory, bool) {
	userID, err := userFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	inv, err := h.Scope(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return inv, true
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inv.Products())
}

// CreateProduct creates a product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.ProductInput
	if !decode(w, r, &in) {
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	p, err := inv.AddProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	p, err := inv.Product(inventory.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetProductBySKU looks a product up by SKU, trimmed and case-insensitively.
func (h *Handler) GetProductBySKU(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	sku := chi.URLParam(r, "sku")
	p, found := inv.ProductBySKU(sku)
	if !found {
		h.fail(w, r, &inventory.NotFoundError{Entity: "product", ID: sku})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProduct applies a partial update.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var upd inventory.ProductUpdate
	if !decode(w, r, &upd) {
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	p, err := inv.UpdateProduct(r.Context(), inventory.ProductID(chi.URLParam(r, "id")), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetProductStock returns a product's stock rows and total.
func (h *Handler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	p, err := inv.Product(inventory.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StockDTO{
		ProductID:    p.ID,
		Total:        inv.TotalQuantity(p.ID),
		ReorderLevel: p.ReorderLevel,
		Locations:    inv.ListStockForProduct(p.ID),
	})
}

// =============================================================================
// WAREHOUSE HANDLERS
// =============================================================================

func (h *Handler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inv.Warehouses())
}

// CreateWarehouse creates a warehouse; a taken code is a 409.
func (h *Handler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var in inventory.WarehouseInput
	if !decode(w, r, &in) {
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	wh, err := inv.AddWarehouse(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wh)
}

func (h *Handler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	wh, err := inv.Warehouse(inventory.WarehouseID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (h *Handler) UpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	var upd inventory.WarehouseUpdate
	if !decode(w, r, &upd) {
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	wh, err := inv.UpdateWarehouse(r.Context(), inventory.WarehouseID(chi.URLParam(r, "id")), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// ListStock returns every stock row in the scope.
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inv.StockLocations())
}

// CheckAvailability reports whether quantity can be taken from a warehouse.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID := inventory.ProductID(q.Get("productId"))
	warehouseID := inventory.WarehouseID(q.Get("warehouseId"))
	if productID == "" || warehouseID == "" {
		writeError(w, http.StatusBadRequest, "productId and warehouseId are required", nil)
		return
	}
	quantity, err := strconv.Atoi(q.Get("quantity"))
	if err != nil || quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity must be a non-negative integer", err)
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Requested:   quantity,
		Available:   inv.QuantityAt(productID, warehouseID),
		Sufficient:  inv.CheckAvailability(productID, warehouseID, quantity),
	})
}

// ListMovements returns movements in recording order, filtered by query.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, inv.Movements(inventory.MovementFilter{
		ProductID:   inventory.ProductID(q.Get("productId")),
		WarehouseID: inventory.WarehouseID(q.Get("warehouseId")),
		DocumentID:  inventory.DocumentID(q.Get("documentId")),
		Type:        inventory.MovementType(q.Get("type")),
	}))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// createDocument decodes an input and hands it to one of the Add* methods.
func createDocument[In, Out any](h *Handler, add func(*inventory.Inventory, context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if !decode(w, r, &in) {
			return
		}
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		doc, err := add(inv, r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

func getDocument[Out any](h *Handler, get func(*inventory.Inventory, inventory.DocumentID) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		doc, err := get(inv, inventory.DocumentID(chi.URLParam(r, "id")))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func listDocuments[Out any](h *Handler, list func(*inventory.Inventory) []Out) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, list(inv))
	}
}

// Validate finalizes a document of the given kind.
func (h *Handler) Validate(kind inventory.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		res, err := inv.Validate(r.Context(), kind, inventory.DocumentID(chi.URLParam(r, "id")))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionDTO(res))
	}
}

// Cancel cancels a document of the given kind.
func (h *Handler) Cancel(kind inventory.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		res, err := inv.Cancel(r.Context(), kind, inventory.DocumentID(chi.URLParam(r, "id")))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionDTO(res))
	}
}

// UpdateStatus moves an open document between Draft, Waiting and Ready.
func (h *Handler) UpdateStatus(kind inventory.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if !decode(w, r, &req) {
			return
		}
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		res, err := inv.UpdateStatus(r.Context(), kind, inventory.DocumentID(chi.URLParam(r, "id")), req.Status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionDTO(res))
	}
}

// ReplaceLines swaps the lines of an open document.
func (h *Handler) ReplaceLines(kind inventory.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := inventory.DocumentID(chi.URLParam(r, "id"))
		if kind == inventory.KindAdjustment {
			var req AdjustmentLinesRequest
			if !decode(w, r, &req) {
				return
			}
			inv, ok := h.inventory(w, r)
			if !ok {
				return
			}
			lines, err := inv.ReplaceAdjustmentLines(r.Context(), id, req.Lines)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, lines)
			return
		}

		var req LinesRequest
		if !decode(w, r, &req) {
			return
		}
		inv, ok := h.inventory(w, r)
		if !ok {
			return
		}
		lines, err := inv.ReplaceLines(r.Context(), kind, id, req.Lines)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns KPIs, stock by category, recent movements and the
// status distribution. "All" or an empty value disables a filter.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f inventory.DashboardFilter
	if c := q.Get("category"); c != "" && c != "All" {
		f.Category = inventory.Category(c)
	}
	if wh := q.Get("warehouseId"); wh != "" && wh != "All" {
		f.WarehouseID = inventory.WarehouseID(wh)
	}
	if dt := q.Get("documentType"); dt != "" && dt != "All" {
		kind, err := inventory.ParseDocumentKind(dt)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.DocumentKind = kind
	}
	if st := q.Get("status"); st != "" && st != "All" {
		status, err := inventory.ParseStatus(st)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.Status = status
	}

	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inv.Summary(f))
}

// =============================================================================
// DATA MANAGEMENT
// =============================================================================

// ExportData returns every namespace of the caller's scope as one document.
func (h *Handler) ExportData(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	bundle, err := inv.Export(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="inventory-backup-%s.json"`, time.Now().UTC().Format("2006-01-02")))
	writeJSON(w, http.StatusOK, bundle)
}

// ImportData replaces the namespaces present in the body.
func (h *Handler) ImportData(w http.ResponseWriter, r *http.Request) {
	var bundle inventory.Bundle
	if !decode(w, r, &bundle) {
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	if err := inv.Import(r.Context(), bundle); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func (h *Handler) GetStorageStats(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	stats, err := inv.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ResetData clears the caller's scope.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}
	if err := inv.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.setScenario(r, "")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// statusFor maps an inventory error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case inventory.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, inventory.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, inventory.ErrDuplicateCode):
		return http.StatusConflict, "duplicate_code"
	case errors.Is(err, inventory.ErrDuplicateSKU):
		return http.StatusConflict, "duplicate_sku"
	case errors.Is(err, inventory.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as an ErrorResponse. Server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var stockErr *inventory.InsufficientStockError
	var fieldErr *inventory.ValidationError
	switch {
	case errors.As(err, &stockErr):
		resp.Details = map[string]any{
			"productId":   stockErr.ProductID,
			"warehouseId": stockErr.WarehouseID,
			"available":   stockErr.Available,
			"requested":   stockErr.Requested,
			"shortfall":   stockErr.Shortfall(),
		}
	case errors.As(err, &fieldErr) && fieldErr.Field != "":
		resp.Details = map[string]string{"field": fieldErr.Field}
	}
	writeJSON(w, status, resp)
}
