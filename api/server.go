/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend
  5. httprate:   Per-IP request limit on /api (429 when exceeded)

ROUTE GROUPS:
  /api/products/*, /api/warehouses/*   Catalog
  /api/stock/*, /api/movements         Stock reads
  /api/receipts/*, /api/deliveries/*,
  /api/transfers/*, /api/adjustments/* Documents
  /api/dashboard                       Read model
  /api/data/*                          Export, import, stats, reset
  /api/scenarios/*                     Demo scenarios

SECURITY NOTE:
  No authentication middleware. The X-User-ID header is trusted; put an
  authenticating proxy in front in production.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/warp/stock-master/inventory"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	// RateLimit is requests per minute per client IP. 0 disables limiting.
	RateLimit      int
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.Limit(opts.RateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/sku/{sku}", h.GetProductBySKU)
			r.Get("/{id}", h.GetProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Get("/{id}/stock", h.GetProductStock)
		})

		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", h.ListWarehouses)
			r.Post("/", h.CreateWarehouse)
			r.Get("/{id}", h.GetWarehouse)
			r.Put("/{id}", h.UpdateWarehouse)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Get("/availability", h.CheckAvailability)
		})
		r.Get("/movements", h.ListMovements)

		r.Route("/receipts", documentRoutes(h, inventory.KindReceipt,
			listDocuments(h, (*inventory.Inventory).Receipts),
			createDocument(h, (*inventory.Inventory).AddReceipt),
			getDocument(h, (*inventory.Inventory).Receipt)))
		r.Route("/deliveries", documentRoutes(h, inventory.KindDelivery,
			listDocuments(h, (*inventory.Inventory).Deliveries),
			createDocument(h, (*inventory.Inventory).AddDelivery),
			getDocument(h, (*inventory.Inventory).Delivery)))
		r.Route("/transfers", documentRoutes(h, inventory.KindTransfer,
			listDocuments(h, (*inventory.Inventory).Transfers),
			createDocument(h, (*inventory.Inventory).AddTransfer),
			getDocument(h, (*inventory.Inventory).Transfer)))
		r.Route("/adjustments", documentRoutes(h, inventory.KindAdjustment,
			listDocuments(h, (*inventory.Inventory).Adjustments),
			createDocument(h, (*inventory.Inventory).AddAdjustment),
			getDocument(h, (*inventory.Inventory).Adjustment)))

		r.Get("/dashboard", h.GetDashboard)

		r.Route("/data", func(r chi.Router) {
			r.Get("/export", h.ExportData)
			r.Post("/import", h.ImportData)
			r.Get("/stats", h.GetStorageStats)
			r.Post("/reset", h.ResetData)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// documentRoutes mounts the same lifecycle routes for every document kind.
func documentRoutes(h *Handler, kind inventory.DocumentKind, list, create, get http.HandlerFunc) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", list)
		r.Post("/", create)
		r.Get("/{id}", get)
		r.Put("/{id}/lines", h.ReplaceLines(kind))
		r.Post("/{id}/status", h.UpdateStatus(kind))
		r.Post("/{id}/validate", h.Validate(kind))
		r.Post("/{id}/cancel", h.Cancel(kind))
	}
}
