// Package worker runs background cache rebuilds. A worker polls the rebuild-request
// sentinel and, holding a backend lock so only one worker rebuilds at a time,
// regenerates every region's cache.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/slugrando/pkg/access"
)

const (
	rebuildLock     = "rebuild"
	lockTTL         = 5 * time.Minute
	defaultInterval = 30 * time.Second
)

// Rebuilder is the part of tokencache.Store a worker drives.
type Rebuilder interface {
	RebuildRequested(ctx context.Context) (bool, error)
	RebuildAll(ctx context.Context, regions []string, workers int) ([]*access.Cache, error)
}

// RegionLister reports which regions exist in the world data.
type RegionLister interface {
	Regions(ctx context.Context) ([]string, error)
}

// Locker is a named, owned, expiring lock.
type Locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// Worker rebuilds caches whenever a rebuild has been requested.
type Worker struct {
	id       string
	store    Rebuilder
	regions  RegionLister
	lock     Locker
	interval time.Duration
	workers  int
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a worker. An empty workerID gets a generated one; a non-positive
// interval falls back to 30s.
func New(store Rebuilder, regions RegionLister, lock Locker, log *slog.Logger, workerID string, interval time.Duration, workers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Worker{
		id:       workerID,
		store:    store,
		regions:  regions,
		lock:     lock,
		interval: interval,
		workers:  workers,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ID returns the worker's lock owner name.
func (w *Worker) ID() string {
	return w.id
}

// Start polls for rebuild requests until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(w.ctx); err != nil {
			w.log.Error("Error rebuilding caches", "error", err, "worker_id", w.id)
		}

		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		case <-ticker.C:
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// RunOnce performs a single poll. It reports whether this worker rebuilt the caches.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	requested, err := w.store.RebuildRequested(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check rebuild request: %w", err)
	}
	if !requested {
		return false, nil
	}

	locked, err := w.lock.AcquireLock(ctx, rebuildLock, w.id, lockTTL)
	if err != nil {
		return false, err
	}
	if !locked {
		w.log.Info("Rebuild already in progress elsewhere", "worker_id", w.id)
		return false, nil
	}
	defer func() {
		// Released on a fresh context so a cancelled poll still frees the lock.
		if err := w.lock.ReleaseLock(context.Background(), rebuildLock, w.id); err != nil {
			w.log.Error("Failed to release rebuild lock", "error", err, "worker_id", w.id)
		}
	}()

	regions, err := w.regions.Regions(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list regions: %w", err)
	}

	start := time.Now()
	w.log.Info("Rebuilding caches", "worker_id", w.id, "regions", len(regions))
	if _, err := w.store.RebuildAll(ctx, regions, w.workers); err != nil {
		return false, err
	}
	w.log.Info("Rebuild complete", "worker_id", w.id, "regions", len(regions), "duration", time.Since(start))
	return true, nil
}
