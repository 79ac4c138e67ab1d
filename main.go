package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apartment-tracker/api"
	"apartment-tracker/config"
	"apartment-tracker/scheduler"
	"apartment-tracker/scraper/mcknight"
	"apartment-tracker/services"
	"apartment-tracker/storage"
	"apartment-tracker/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	logger.Info("=== Apartment Tracker starting ===")
	logger.Info("Config — db: %s | refresh: %dmin | port: %d | retries: %d",
		cfg.DBDriver, cfg.RefreshMinutes, cfg.HTTPPort, cfg.MaxRetries)

	store, err := storage.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	var snapshots services.SnapshotSink
	if cfg.CSVSnapshotPath != "" {
		sw, err := storage.NewSnapshotWriter(cfg.CSVSnapshotPath)
		if err != nil {
			logger.Error("Failed to create snapshot writer: %v", err)
			os.Exit(1)
		}
		snapshots = sw
		logger.Info("Cycle snapshots will be written to %s", cfg.CSVSnapshotPath)
	}

	fetcher := mcknight.New(cfg, logger)
	reconciler := services.NewReconciler(fetcher, store, snapshots, logger)
	insights := services.NewInsightService(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx, reconciler, time.Duration(cfg.RefreshMinutes)*time.Minute, logger)

	server := api.NewServer(store, reconciler, insights, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: server.Router(),
	}

	go func() {
		logger.Info("HTTP API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}

	// Print a final report so operators see the state at shutdown.
	active, errA := store.GetAllActive(context.Background())
	archived, errB := store.GetAllArchived(context.Background())
	if errA == nil && errB == nil {
		insights.Print(insights.Generate(active, archived))
	}

	logger.Info("=== Apartment Tracker stopped ===")
}
