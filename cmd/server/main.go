/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock tracker HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load STOCK_* environment configuration, then apply flag overrides
  2. Build the zerolog logger
  3. Open the configured KV store (memory, sqlite or redis)
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -addr    Listen address (STOCK_ADDR, default :8080)
  -store   memory | sqlite | redis (STOCK_STORE, default sqlite)
  -db      SQLite database path (STOCK_SQLITE_PATH, default stock.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  ./server -db="./data/stock.db"
  ./server -store=memory -addr=:3000
  STOCK_STORE=redis STOCK_REDIS_ADDR=cache:6379 ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/open.go: Backend selection
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/stock-master/api"
	"github.com/warp/stock-master/config"
	"github.com/warp/stock-master/logging"
	"github.com/warp/stock-master/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "KV backend: memory, sqlite or redis")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Env: cfg.Env, Level: cfg.LogLevel})

	// Initialize store
	kv, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}
	defer kv.Close()

	// Initialize handler and router
	handler := api.NewHandler(kv, api.Options{
		SeedDefaults:     cfg.SeedDefaults,
		EnforceUniqueSKU: cfg.EnforceUniqueSKU,
		Logger:           log,
	})
	router := api.NewRouter(handler, api.RouterOptions{RateLimit: cfg.RateLimit})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.Store).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
