package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mikaelweill/audio-guide-sub001/internal/cache"
	"github.com/mikaelweill/audio-guide-sub001/internal/config"
	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
	"github.com/mikaelweill/audio-guide-sub001/internal/fetch"
	httpapp "github.com/mikaelweill/audio-guide-sub001/internal/http"
	"github.com/mikaelweill/audio-guide-sub001/internal/logger"
	"github.com/mikaelweill/audio-guide-sub001/internal/monitor"
	"github.com/mikaelweill/audio-guide-sub001/internal/netstatus"
	"github.com/mikaelweill/audio-guide-sub001/internal/offline"
	"github.com/mikaelweill/audio-guide-sub001/internal/resolver"
	"github.com/mikaelweill/audio-guide-sub001/internal/store"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize response cache. The cache is an accelerator, not the system
	// of record, so a failure here degrades to blob-only operation.
	respCache, err := cache.Open(cfg.CacheDir)
	if err != nil {
		appLogger.Warn("Response cache unavailable, continuing blob-only", "error", err)
		respCache = nil
	} else {
		defer respCache.Close()
	}

	// Initialize Network Monitor
	netMon := netstatus.NewMonitor(cfg.ProbeURL, constants.DefaultProbePeriod, appLogger)
	monCtx, monCancel := context.WithCancel(context.Background())
	defer monCancel()
	netMon.Start(monCtx)
	defer netMon.Stop()

	// Initialize Download Monitor
	dlMon := monitor.New(monitor.Options{
		StallTimeout:  cfg.StallTimeout,
		MaxDuration:   cfg.MaxDownloadTime,
		CheckInterval: constants.HealthCheckInterval,
	}, appLogger)

	// Initialize Offline Manager
	mgr := offline.NewManager(offline.StorageContext{
		Blobs:   db,
		Cache:   respCache,
		Fetcher: fetch.NewClient(nil),
		Monitor: dlMon,
		Net:     netMon,
		Logger:  appLogger,
	})

	// Abandoned downloads leave no partial state behind.
	dlMon.SetCleanup(func(tourID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mgr.DeleteTour(ctx, tourID, true); err != nil {
			appLogger.Error("Cleanup after aborted download failed", "tour_id", tourID, "error", err)
		}
	})

	// Initialize Resolver
	res, err := resolver.New(netMon, db, respCache, cfg.HandleDir, appLogger)
	if err != nil {
		appLogger.Error("Failed to init resolver", "error", err)
		os.Exit(1)
	}
	defer res.RevokeAll()

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(mgr, res, netMon, appLogger)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
