package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	cacheExt        = ".txt"
	rebuildSentinel = "rebuild_requested"
)

// FileStore keeps one <REGION>.txt per region in a directory, plus a rebuild_requested
// sentinel file holding the latest RebuildRequest.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store in dir. The directory is created on first save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if dir == "" {
		dir = "./data/cache"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}
}

func (f *FileStore) path(region string) (string, error) {
	region, err := normalizeRegion(region)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, region+cacheExt), nil
}

// Ping checks that the cache directory is usable.
func (f *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) Load(ctx context.Context, region string) ([]byte, error) {
	path, err := f.path(region)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		f.logger.Error("Failed to read cache file", "region", region, "path", path, "error", err)
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

func (f *FileStore) Save(ctx context.Context, region string, data []byte) error {
	path, err := f.path(region)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		f.logger.Error("Failed to write cache file", "region", region, "path", path, "error", err)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, region string) error {
	path, err := f.path(region)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

func (f *FileStore) Regions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var regions []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == cacheExt {
			regions = append(regions, strings.TrimSuffix(entry.Name(), cacheExt))
		}
	}
	slices.Sort(regions)
	return regions, nil
}

func (f *FileStore) RequestRebuild(ctx context.Context, reason string) error {
	req := RebuildRequest{ID: uuid.New().String(), Reason: reason}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal rebuild request: %w", err)
	}
	if err := writeAtomic(filepath.Join(f.dir, rebuildSentinel), data); err != nil {
		return fmt.Errorf("failed to write rebuild request: %w", err)
	}
	f.logger.Info("Cache rebuild requested", "request_id", req.ID, "reason", reason)
	return nil
}

func (f *FileStore) RebuildRequested(ctx context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(f.dir, rebuildSentinel))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check rebuild request: %w", err)
}

func (f *FileStore) ClearRebuildRequest(ctx context.Context) error {
	err := os.Remove(filepath.Join(f.dir, rebuildSentinel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear rebuild request: %w", err)
	}
	return nil
}

// PendingRebuild returns the stored rebuild request, or nil when none is pending.
func (f *FileStore) PendingRebuild(ctx context.Context) (*RebuildRequest, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, rebuildSentinel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rebuild request: %w", err)
	}
	var req RebuildRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rebuild request: %w", err)
	}
	return &req, nil
}

// writeAtomic writes through a temporary file in the same directory so readers never
// see a partial cache.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
