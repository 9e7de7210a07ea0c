package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/logger"
	"github.com/jwebster45206/slugrando/internal/storage"
	"github.com/jwebster45206/slugrando/internal/worker"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting slugrando cache worker",
		"environment", cfg.Environment,
		"cache_backend", cfg.CacheBackend,
		"interval", cfg.RebuildInterval)

	roster, err := slugcat.LoadRoster(cfg.RosterFile)
	if err != nil {
		log.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}

	backend, err := storage.FromConfig(cfg, log)
	if err != nil {
		log.Error("Failed to open cache backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing cache backend", "error", err)
		}
	}()

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if rs, ok := backend.(*storage.RedisStore); ok {
		err = rs.WaitForConnection(storageCtx)
	} else {
		err = backend.Ping(storageCtx)
	}
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	source := worldsrc.New(cfg.WorldDir, roster, log)
	store := tokencache.New(roster, source, backend, log)

	w := worker.New(store, source, backend, log, os.Getenv("WORKER_ID"), cfg.RebuildInterval, cfg.BuildWorkers)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for rebuild requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give an in-flight rebuild time to finish
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
