/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock ledger server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and config file
  2. Open the SQLite snapshot store
  3. Load the durable snapshot into the in-memory ledger
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: config.yaml; optional)
  -addr    HTTP listen address (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" to run without a durable file

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Write a final snapshot and close the database

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite: Snapshot persistence
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mise/stockledger/api"
	"github.com/mise/stockledger/config"
	"github.com/mise/stockledger/ledger"
	"github.com/mise/stockledger/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	// Durable snapshot store
	snap, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DB.Path, "err", err)
		os.Exit(1)
	}
	defer snap.Close()

	// Load the snapshot into the in-memory ledger
	store := ledger.NewStore()
	materials, recipes, sales, err := snap.Load(context.Background())
	if err != nil {
		log.Error("failed to load snapshot", "err", err)
		os.Exit(1)
	}
	store.ReplaceAll(materials, recipes, sales)
	log.Info("ledger loaded",
		"materials", len(store.Materials()),
		"recipes", len(store.Recipes()),
		"sales", len(store.Sales()),
	)

	handler := api.NewHandler(store, snap, log)
	router := api.NewRouter(handler, cfg.Metrics.Enabled)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "err", err)
	}

	// Final snapshot so nothing since the last mutation is lost.
	if err := snap.Save(context.Background(), store.Materials(), store.Recipes(), store.Sales()); err != nil {
		log.Error("final snapshot failed", "err", err)
	}

	log.Info("server stopped")
}
