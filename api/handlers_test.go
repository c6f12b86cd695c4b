/*
handlers_test.go - HTTP tests for the stock tracker API

Tests for:
- Catalog endpoints and duplicate warehouse codes
- Document lifecycle over HTTP (validate, cancel, status, lines)
- Error mapping (400 / 404 / 409) and per-user scopes
- Dashboard filters, data export/import/stats/reset, rate limiting
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-master/api"
	"github.com/warp/stock-master/inventory"
	"github.com/warp/stock-master/inventory/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	user   string
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, api.RouterOptions{})
}

func newTestServerWith(t *testing.T, ropts api.RouterOptions) *testServer {
	h := api.NewHandler(store.NewMemory(), api.Options{
		SeedDefaults: true,
		IDs:          &inventory.SequenceGenerator{},
		Now:          func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) },
	})
	return &testServer{t: t, router: api.NewRouter(h, ropts)}
}

func (s *testServer) as(user string) *testServer {
	return &testServer{t: s.t, router: s.router, user: user}
}

// do sends a request and decodes the response into out when out is non-nil.
func (s *testServer) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.user != "" {
		req.Header.Set(api.UserHeader, s.user)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (s *testServer) mainWarehouse() inventory.Warehouse {
	s.t.Helper()
	var whs []inventory.Warehouse
	rec := s.do(http.MethodGet, "/api/warehouses", nil, &whs)
	require.Equal(s.t, http.StatusOK, rec.Code)
	require.NotEmpty(s.t, whs)
	return whs[0]
}

func (s *testServer) createProduct(sku string, reorder int) inventory.Product {
	s.t.Helper()
	var p inventory.Product
	rec := s.do(http.MethodPost, "/api/products", inventory.ProductInput{
		SKU: sku, Name: "Product " + sku, Category: inventory.CategoryTools, UOM: inventory.UnitPieces, ReorderLevel: reorder,
	}, &p)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return p
}

func (s *testServer) createWarehouse(code string) inventory.Warehouse {
	s.t.Helper()
	var w inventory.Warehouse
	rec := s.do(http.MethodPost, "/api/warehouses", inventory.WarehouseInput{Name: "Warehouse " + code, Code: code}, &w)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return w
}

func (s *testServer) stockUp(p inventory.Product, w inventory.Warehouse, qty int) {
	s.t.Helper()
	var adj inventory.StockAdjustment
	rec := s.do(http.MethodPost, "/api/adjustments", inventory.AdjustmentInput{
		WarehouseID:    w.ID,
		AdjustmentType: inventory.AdjustmentCount,
		Lines:          []inventory.AdjustmentLineInput{{ProductID: p.ID, Difference: qty}},
	}, &adj)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/adjustments/"+string(adj.ID)+"/validate", nil, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAPI_NewScopeIsSeeded(t *testing.T) {
	s := newTestServer(t)

	var products []inventory.Product
	rec := s.do(http.MethodGet, "/api/products", nil, &products)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, products, 1)
	assert.Equal(t, "SAMPLE-001", products[0].SKU)
	assert.Equal(t, "WH-001", s.mainWarehouse().Code)
}

func TestAPI_CreateWarehouse_DuplicateCode(t *testing.T) {
	// GIVEN: The seeded WH-001
	// WHEN: "wh-001" is created
	// THEN: 409 duplicate_code

	s := newTestServer(t)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/warehouses", inventory.WarehouseInput{Name: "Copy", Code: "wh-001"}, &errResp)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_code", errResp.Code)
	assert.Contains(t, errResp.Error, "already exists")
}

func TestAPI_ProductCRUD(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("drill-1", 4)
	assert.Equal(t, "DRILL-1", p.SKU)

	var got inventory.Product
	rec := s.do(http.MethodGet, "/api/products/"+string(p.ID), nil, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, got.ID)

	rec = s.do(http.MethodGet, "/api/products/sku/drill-1", nil, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, got.ID)

	rec = s.do(http.MethodPut, "/api/products/"+string(p.ID), `{"name":"Cordless drill"}`, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cordless drill", got.Name)
	assert.Equal(t, 4, got.ReorderLevel)

	var errResp api.ErrorResponse
	rec = s.do(http.MethodGet, "/api/products/missing", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errResp.Code)
}

func TestAPI_CreateProduct_ValidationError(t *testing.T) {
	s := newTestServer(t)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/products", `{"sku":"X","name":"X","category":"Toys","uom":"pcs"}`, &errResp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errResp.Code)
	assert.Equal(t, map[string]any{"field": "category"}, errResp.Details)
}

func TestAPI_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/products", `{"sku":`, &errResp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errResp.Error)
}

func TestAPI_UpdateWarehouse(t *testing.T) {
	s := newTestServer(t)
	wh := s.mainWarehouse()

	var got inventory.Warehouse
	rec := s.do(http.MethodPut, "/api/warehouses/"+string(wh.ID), `{"name":"HQ","code":"ZZZ"}`, &got)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HQ", got.Name)
	assert.Equal(t, "WH-001", got.Code, "code is immutable")
}

// =============================================================================
// DOCUMENT LIFECYCLE
// =============================================================================

func TestAPI_DeliveryWithoutStock_Conflict(t *testing.T) {
	// GIVEN: A product with no stock
	// WHEN: A Ready delivery of 5 is validated
	// THEN: 409 insufficient_stock with available/requested details

	s := newTestServer(t)
	wh := s.mainWarehouse()
	p := s.createProduct("SKU1", 10)

	var d inventory.Delivery
	rec := s.do(http.MethodPost, "/api/deliveries", inventory.DeliveryInput{
		CustomerName: "Acme",
		WarehouseID:  wh.ID,
		Status:       inventory.StatusReady,
		Lines:        []inventory.LineInput{{ProductID: p.ID, Quantity: 5}},
	}, &d)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "DEL-001", d.DocumentNumber)

	var errResp api.ErrorResponse
	rec = s.do(http.MethodPost, "/api/deliveries/"+string(d.ID)+"/validate", nil, &errResp)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", errResp.Code)
	assert.Contains(t, errResp.Error, "Available: 0, Requested: 5")
	details, ok := errResp.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, details["available"])
	assert.EqualValues(t, 5, details["requested"])
	assert.EqualValues(t, 5, details["shortfall"])
}

func TestAPI_TransferFlow(t *testing.T) {
	// GIVEN: 20 units in WH-001 and a second warehouse
	// WHEN: 5 are transferred and the transfer is validated
	// THEN: Stock reads, movements and availability reflect 15 / 5

	s := newTestServer(t)
	wh1 := s.mainWarehouse()
	wh2 := s.createWarehouse("WH-002")
	p := s.createProduct("SKU1", 10)
	s.stockUp(p, wh1, 20)

	var tr inventory.InternalTransfer
	rec := s.do(http.MethodPost, "/api/transfers", inventory.TransferInput{
		SourceWarehouseID:      wh1.ID,
		DestinationWarehouseID: wh2.ID,
		Lines:                  []inventory.LineInput{{ProductID: p.ID, Quantity: 5}},
	}, &tr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res api.TransitionDTO
	rec = s.do(http.MethodPost, "/api/transfers/"+string(tr.ID)+"/validate", nil, &res)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Internal", res.DocumentType)
	assert.Equal(t, inventory.StatusDone, res.Status)
	require.Len(t, res.Movements, 2)
	assert.Equal(t, inventory.MovementTransferOut, res.Movements[0].MovementType)
	assert.Equal(t, inventory.MovementTransferIn, res.Movements[1].MovementType)

	var stock api.StockDTO
	rec = s.do(http.MethodGet, "/api/products/"+string(p.ID)+"/stock", nil, &stock)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, stock.Total)
	assert.Len(t, stock.Locations, 2)

	var avail api.AvailabilityDTO
	rec = s.do(http.MethodGet, "/api/stock/availability?productId="+string(p.ID)+"&warehouseId="+string(wh1.ID)+"&quantity=16", nil, &avail)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, avail.Available)
	assert.False(t, avail.Sufficient)

	var movements []inventory.StockMovement
	rec = s.do(http.MethodGet, "/api/movements?warehouseId="+string(wh2.ID), nil, &movements)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, movements, 1)
	assert.Equal(t, 5, movements[0].Quantity)
	assert.Equal(t, api.DefaultUser, movements[0].UserID)
}

func TestAPI_ValidateReceipt_NoStockChange(t *testing.T) {
	s := newTestServer(t)
	wh := s.mainWarehouse()
	p := s.createProduct("SKU1", 0)

	var r inventory.Receipt
	rec := s.do(http.MethodPost, "/api/receipts", inventory.ReceiptInput{
		VendorName:  "Supplier",
		WarehouseID: wh.ID,
		Lines:       []inventory.LineInput{{ProductID: p.ID, Quantity: 50}},
	}, &r)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res api.TransitionDTO
	rec = s.do(http.MethodPost, "/api/receipts/"+string(r.ID)+"/validate", nil, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inventory.StatusDone, res.Status)
	assert.Empty(t, res.Movements)

	var stock []inventory.StockLocation
	s.do(http.MethodGet, "/api/stock", nil, &stock)
	assert.Empty(t, stock)
}

func TestAPI_CancelDone_Conflict(t *testing.T) {
	s := newTestServer(t)
	wh := s.mainWarehouse()
	p := s.createProduct("SKU1", 0)
	s.stockUp(p, wh, 3)

	var adjs []inventory.StockAdjustment
	s.do(http.MethodGet, "/api/adjustments", nil, &adjs)
	require.Len(t, adjs, 1)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/adjustments/"+string(adjs[0].ID)+"/cancel", nil, &errResp)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", errResp.Code)
	assert.Contains(t, errResp.Error, "Cannot cancel a completed adjustment")
}

func TestAPI_StatusAndLines(t *testing.T) {
	s := newTestServer(t)
	wh := s.mainWarehouse()
	p := s.createProduct("SKU1", 0)

	var d inventory.Delivery
	s.do(http.MethodPost, "/api/deliveries", inventory.DeliveryInput{
		CustomerName: "Acme",
		WarehouseID:  wh.ID,
		Lines:        []inventory.LineInput{{ProductID: p.ID, Quantity: 1}},
	}, &d)
	base := "/api/deliveries/" + string(d.ID)

	var res api.TransitionDTO
	rec := s.do(http.MethodPost, base+"/status", `{"status":"Waiting"}`, &res)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, inventory.StatusWaiting, res.Status)

	rec = s.do(http.MethodPost, base+"/status", `{"status":"Done"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/status", `{"status":"Shipped"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var lines []inventory.Line
	rec = s.do(http.MethodPut, base+"/lines", api.LinesRequest{Lines: []inventory.LineInput{{ProductID: p.ID, Quantity: 7}}}, &lines)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)

	rec = s.do(http.MethodPost, base+"/cancel", nil, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, inventory.StatusCanceled, res.Status)
	assert.True(t, res.Changed)

	rec = s.do(http.MethodPut, base+"/lines", api.LinesRequest{Lines: []inventory.LineInput{{ProductID: p.ID, Quantity: 1}}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_UnknownDocument_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, kind := range []string{"receipts", "deliveries", "transfers", "adjustments"} {
		rec := s.do(http.MethodPost, "/api/"+kind+"/nope/validate", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, kind)
		rec = s.do(http.MethodGet, "/api/"+kind+"/nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, kind)
	}
}

func TestAPI_CreateDocument_UnknownWarehouse(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("SKU1", 0)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/receipts", inventory.ReceiptInput{
		VendorName:  "V",
		WarehouseID: "missing",
		Lines:       []inventory.LineInput{{ProductID: p.ID, Quantity: 1}},
	}, &errResp)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, errResp.Error, "missing")
}

// =============================================================================
// USER SCOPES
// =============================================================================

func TestAPI_UsersAreIsolated(t *testing.T) {
	s := newTestServer(t)
	alice := s.as("alice")
	bob := s.as("bob")

	alice.createProduct("ALICE-1", 0)

	var products []inventory.Product
	bob.do(http.MethodGet, "/api/products", nil, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "SAMPLE-001", products[0].SKU)

	alice.do(http.MethodGet, "/api/products", nil, &products)
	assert.Len(t, products, 2)
}

func TestAPI_InvalidUserHeader(t *testing.T) {
	s := newTestServer(t).as("bad user/../id")

	var errResp api.ErrorResponse
	rec := s.do(http.MethodGet, "/api/products", nil, &errResp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errResp.Code)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestAPI_Dashboard(t *testing.T) {
	s := newTestServer(t)
	wh := s.mainWarehouse()
	p := s.createProduct("SKU1", 10)
	s.stockUp(p, wh, 4)

	var d inventory.Dashboard
	rec := s.do(http.MethodGet, "/api/dashboard?category=All&warehouseId=All", nil, &d)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, d.KPIs.TotalProducts)
	assert.Equal(t, 1, d.KPIs.LowStock)
	assert.Equal(t, 1, d.KPIs.OutOfStock, "the seeded sample product has no stock")
	assert.Len(t, d.RecentMovements, 1)

	rec = s.do(http.MethodGet, "/api/dashboard?documentType=Adjustment&status=Done", nil, &d)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.StatusDistribution, 1)
	assert.Equal(t, 100, d.StatusDistribution[0].Percentage)

	rec = s.do(http.MethodGet, "/api/dashboard?documentType=Invoice", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/api/dashboard?status=Shipped", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Dashboard_JSONShape(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/dashboard", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"kpis", "stockByCategory", "recentMovements", "statusDistribution"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, string(raw["kpis"]), `"lowStockCount"`)
	assert.Contains(t, string(raw["stockByCategory"]), `"value"`)
}

// =============================================================================
// DATA MANAGEMENT
// =============================================================================

func TestAPI_ExportImport(t *testing.T) {
	// GIVEN: alice has stock
	// WHEN: Her export is imported by bob
	// THEN: bob sees alice's stock

	s := newTestServer(t)
	alice := s.as("alice")
	wh := alice.mainWarehouse()
	p := alice.createProduct("SKU1", 0)
	alice.stockUp(p, wh, 9)

	rec := alice.do(http.MethodGet, "/api/data/export", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), `attachment; filename="inventory-backup-`))
	exported := rec.Body.String()

	bob := s.as("bob")
	rec = bob.do(http.MethodPost, "/api/data/import", exported, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var avail api.AvailabilityDTO
	bob.do(http.MethodGet, "/api/stock/availability?productId="+string(p.ID)+"&warehouseId="+string(wh.ID)+"&quantity=9", nil, &avail)
	assert.True(t, avail.Sufficient)
	assert.Equal(t, 9, avail.Available)
}

func TestAPI_Import_Malformed(t *testing.T) {
	s := newTestServer(t)

	var errResp api.ErrorResponse
	rec := s.do(http.MethodPost, "/api/data/import", `{"inventory_products":{"not":"a list"}}`, &errResp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"field": "inventory_products"}, errResp.Details)
}

func TestAPI_StatsAndReset(t *testing.T) {
	s := newTestServer(t)
	s.createWarehouse("WH-002")

	var stats inventory.StorageStats
	rec := s.do(http.MethodGet, "/api/data/stats", nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(inventory.Namespaces)+1, stats.ItemCount)
	assert.Positive(t, stats.TotalSize)

	rec = s.do(http.MethodPost, "/api/data/reset", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var whs []inventory.Warehouse
	s.do(http.MethodGet, "/api/warehouses", nil, &whs)
	assert.Len(t, whs, 1)
}

func TestAPI_Availability_BadQuery(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/stock/availability?productId=p", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/stock/availability?productId=p&warehouseId=w&quantity=-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestAPI_RateLimit(t *testing.T) {
	s := newTestServerWith(t, api.RouterOptions{RateLimit: 2})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/products", nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/api/products", nil, nil).Code)
}

func TestAPI_CORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", api.UserHeader)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
