package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeWorld(t *testing.T, root, region, text string) {
	t.Helper()
	dir := filepath.Join(root, region)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "world_"+region+".txt"), []byte(text), 0o644))
}

func TestSplitRegions(t *testing.T) {
	assert.Equal(t, []string{"SU", "HI"}, splitRegions(" su, ,hi "))
	assert.Empty(t, splitRegions(""))
}

func TestRun_RebuildExportImport(t *testing.T) {
	root := t.TempDir()
	writeWorld(t, filepath.Join(root, "world"), "su", "ROOMS\nSU_A01 : SU_S01\nSU_S01 : SU_A01 : SHELTER\nEND ROOMS\n")
	writeWorld(t, filepath.Join(root, "world"), "hi", "ROOMS\nHI_A01 : DISCONNECTED\nEND ROOMS\n")

	cfg := &config.Config{
		WorldDir:     filepath.Join(root, "world"),
		CacheDir:     filepath.Join(root, "cache"),
		CacheBackend: config.BackendFile,
		BuildWorkers: 2,
	}
	bundle := filepath.Join(root, "caches.zst")
	ctx := context.Background()

	require.NoError(t, run(ctx, cfg, testLogger(), "", bundle, ""))

	fs := storage.NewFileStore(cfg.CacheDir, testLogger())
	regions, err := fs.Regions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"HI", "SU"}, regions)
	info, err := os.Stat(bundle)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	imported := *cfg
	imported.CacheDir = filepath.Join(root, "imported")
	require.NoError(t, run(ctx, &imported, testLogger(), "", "", bundle))

	want, err := fs.Load(ctx, "SU")
	require.NoError(t, err)
	got, err := storage.NewFileStore(imported.CacheDir, testLogger()).Load(ctx, "SU")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRun_NoRegions(t *testing.T) {
	cfg := &config.Config{
		WorldDir:     t.TempDir(),
		CacheDir:     t.TempDir(),
		CacheBackend: config.BackendFile,
		BuildWorkers: 1,
	}
	assert.Error(t, run(context.Background(), cfg, testLogger(), "", "", ""))
}
