package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "tokencache:"
	rebuildKey     = "tokencache:rebuild"
)

// RedisStore keeps region caches under tokencache:<REGION> keys and the rebuild
// sentinel under tokencache:rebuild. Keys do not expire.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis store. redisURL is either a redis:// URL or a bare
// host:port address. No connection is made until first use.
func NewRedisStore(redisURL string, logger *slog.Logger) (*RedisStore, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		if opt, err = redis.ParseURL(redisURL); err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Cache operations

func (r *RedisStore) Load(ctx context.Context, region string) ([]byte, error) {
	region, err := normalizeRegion(region)
	if err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, cacheKeyPrefix+region).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to load cache", "region", region, "error", err)
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Save(ctx context.Context, region string, data []byte) error {
	region, err := normalizeRegion(region)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cacheKeyPrefix+region, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save cache", "region", region, "error", err)
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, region string) error {
	region, err := normalizeRegion(region)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, cacheKeyPrefix+region).Err(); err != nil {
		r.logger.Error("Failed to delete cache", "region", region, "error", err)
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (r *RedisStore) Regions(ctx context.Context) ([]string, error) {
	var regions []string
	iter := r.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == rebuildKey {
			continue
		}
		regions = append(regions, strings.TrimPrefix(key, cacheKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cached regions: %w", err)
	}
	slices.Sort(regions)
	return regions, nil
}

// Rebuild sentinel operations

func (r *RedisStore) RequestRebuild(ctx context.Context, reason string) error {
	req := RebuildRequest{ID: uuid.New().String(), Reason: reason}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal rebuild request: %w", err)
	}
	if err := r.client.Set(ctx, rebuildKey, data, 0).Err(); err != nil {
		r.logger.Error("Failed to request rebuild", "error", err)
		return fmt.Errorf("failed to request rebuild: %w", err)
	}
	r.logger.Info("Cache rebuild requested", "request_id", req.ID, "reason", reason)
	return nil
}

func (r *RedisStore) RebuildRequested(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, rebuildKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rebuild request: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) ClearRebuildRequest(ctx context.Context) error {
	if err := r.client.Del(ctx, rebuildKey).Err(); err != nil {
		return fmt.Errorf("failed to clear rebuild request: %w", err)
	}
	return nil
}

// PendingRebuild returns the stored rebuild request, or nil when none is pending.
func (r *RedisStore) PendingRebuild(ctx context.Context) (*RebuildRequest, error) {
	data, err := r.client.Get(ctx, rebuildKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rebuild request: %w", err)
	}
	var req RebuildRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rebuild request: %w", err)
	}
	return &req, nil
}
