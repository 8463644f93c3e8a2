/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the collections engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML file, .env, environment)
  2. Apply command-line overrides
  3. Initialize logging
  4. Open the client store (memory, SQLite or Firestore)
  5. Start the follow-up digest scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config    YAML config file (default: $COLLECTIONS_CONFIG_PATH)
  -port      HTTP server port (overrides config)
  -store     Store driver: memory, sqlite, firestore (overrides config)
  -db        SQLite database path (overrides config)
             Use ":memory:" for in-memory database
  -run-once  Send today's follow-up digest and exit

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler (waits for a running digest)
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/collections.db"

  # Run against Firestore
  COLLECTIONS_FIRESTORE_PROJECT_ID=my-project ./server -store=firestore

  # Cron-driven digest without the HTTP server
  ./server -run-once

SEE ALSO:
  - config/config.go: Configuration and environment variables
  - api/server.go: Router configuration
  - api/scheduler.go: Follow-up digest job
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/collections-engine/api"
	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/billing/store"
	"github.com/warp/collections-engine/config"
	"github.com/warp/collections-engine/logger"
	"github.com/warp/collections-engine/notify"
	"github.com/warp/collections-engine/store/firestore"
	"github.com/warp/collections-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port")
	driver := flag.String("store", "", "Store driver: memory, sqlite, firestore")
	dbPath := flag.String("db", "", "SQLite database path")
	runOnce := flag.Bool("run-once", false, "Send today's follow-up digest and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := billing.SystemClock{Location: loc}

	ctx := context.Background()
	clients, runs, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer clients.Close()

	notifier, err := newNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	scheduler := api.NewFollowUpScheduler(clients, notifier, clock)
	scheduler.Spec = cfg.Scheduler.Spec
	scheduler.CutoffDay = cfg.Scheduler.CutoffDay
	scheduler.Location = loc
	scheduler.Runs = runs

	if *runOnce {
		d, err := scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("digest sent", "date", d.Date.String(), "clients", len(d.Rows))
		return nil
	}

	if cfg.Scheduler.Enabled {
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	handler := api.NewHandler(clients, clock)
	handler.CutoffDay = cfg.Scheduler.CutoffDay
	handler.Scheduler = scheduler

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore returns the client store and, for SQLite, its job run log.
func openStore(ctx context.Context, cfg config.StoreConfig) (billing.ClientStore, api.RunLog, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil, nil
	case "firestore":
		s, err := firestore.New(ctx, firestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
			Collection:      cfg.Firestore.Collection,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return s, s, nil
	}
}

func newNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, follow-up digests go to the log")
		return notify.LogNotifier{Logger: logger.WithService("notify")}, nil
	}
	return notify.NewSendGrid(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName, cfg.To)
}
