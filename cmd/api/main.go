package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/handlers"
	"github.com/jwebster45206/slugrando/internal/logger"
	"github.com/jwebster45206/slugrando/internal/middleware"
	"github.com/jwebster45206/slugrando/internal/storage"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/gatemap"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting slugrando API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"cache_backend", cfg.CacheBackend,
		"world_dir", cfg.WorldDir)

	roster, err := slugcat.LoadRoster(cfg.RosterFile)
	if err != nil {
		log.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}

	def, err := gatemap.LoadDefinition(cfg.GatemapFile)
	if err != nil {
		log.Error("Failed to load gate map", "error", err)
		os.Exit(1)
	}
	gates, err := gatemap.NewMap(def, roster)
	if err != nil {
		log.Error("Invalid gate map", "error", err)
		os.Exit(1)
	}

	backend, err := storage.FromConfig(cfg, log)
	if err != nil {
		log.Error("Failed to open cache backend", "error", err)
		os.Exit(1)
	}
	if rs, ok := backend.(*storage.RedisStore); ok {
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()
		if err := rs.WaitForConnection(storageCtx); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
	}

	source := worldsrc.New(cfg.WorldDir, roster, log)
	store := tokencache.New(roster, source, backend, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(backend, store, log)
	mux.Handle("/health", healthHandler)

	regionHandler := handlers.NewRegionHandler(log, store, roster)
	mux.Handle("/v1/regions", regionHandler)
	mux.Handle("/v1/regions/", regionHandler)

	cacheHandler := handlers.NewCacheHandler(log, store)
	mux.Handle("/v1/cache/", cacheHandler)

	reachableHandler := handlers.NewReachableHandler(log, gates, roster, cfg.StartRegion)
	mux.Handle("/v1/reachable", reachableHandler)

	handler := middleware.RequestLogger(log)(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := backend.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
