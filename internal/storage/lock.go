package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "tokencache-lock:"

// AcquireLock takes the named lock for owner if nobody holds it. The lock expires after
// ttl so a crashed holder cannot block others forever.
func (r *RedisStore) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+name, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// ReleaseLock drops the named lock if owner still holds it.
func (r *RedisStore) ReleaseLock(ctx context.Context, name, owner string) error {
	if err := releaseScript.Run(ctx, r.client, []string{lockKeyPrefix + name}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) lockPath(name string) string {
	return filepath.Join(f.dir, name+".lock")
}

// AcquireLock creates <dir>/<name>.lock exclusively. A lock file older than ttl is
// treated as abandoned and replaced.
func (f *FileStore) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := f.lockPath(name)

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := file.WriteString(owner)
			cerr := file.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return false, fmt.Errorf("failed to write lock %s: %w", name, errors.Join(werr, cerr))
			}
			return true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
		}

		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) < ttl {
			return false, nil
		}
		f.logger.Warn("Replacing abandoned lock", "lock", name, "age", time.Since(info.ModTime()))
		os.Remove(path)
	}
	return false, nil
}

// ReleaseLock removes the lock file if owner still holds it.
func (f *FileStore) ReleaseLock(ctx context.Context, name, owner string) error {
	path := f.lockPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read lock %s: %w", name, err)
	}
	if string(data) != owner {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
