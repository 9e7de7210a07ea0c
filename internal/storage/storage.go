// Package storage persists serialized region caches and the rebuild-request sentinel,
// either as files in a directory or as keys in Redis.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

// ErrNotFound is returned by Load when a region has no stored cache. It matches
// tokencache.ErrNotCached so the store takes its rebuild path.
var ErrNotFound = tokencache.ErrNotCached

// Store is a cache backend with health and lifecycle hooks.
type Store interface {
	tokencache.Backend

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
	// Regions lists the regions with stored caches.
	Regions(ctx context.Context) ([]string, error)
	// PendingRebuild returns the current rebuild request, or nil when there is none.
	PendingRebuild(ctx context.Context) (*RebuildRequest, error)

	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// RebuildRequest is the content of the rebuild sentinel.
type RebuildRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

var errInvalidRegion = errors.New("invalid region code")

func normalizeRegion(region string) (string, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" || strings.ContainsAny(region, `/\:.`) {
		return "", fmt.Errorf("%w: %q", errInvalidRegion, region)
	}
	return region, nil
}

// FromConfig opens the backend selected by CACHE_BACKEND.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		s, err := NewRedisStore(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendFile:
		return NewFileStore(cfg.CacheDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
