// Command cachegen rebuilds every region's accessibility cache from the world data and
// optionally exports the result as a compressed bundle, or imports one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/logger"
	"github.com/jwebster45206/slugrando/internal/storage"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

func main() {
	regionsFlag := flag.String("regions", "", "Comma-separated region codes to rebuild (default: every region under WORLD_DIR)")
	bundleFlag := flag.String("bundle", "", "Write the rebuilt caches to this zstd bundle")
	importFlag := flag.String("import", "", "Import caches from this zstd bundle instead of rebuilding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	log := logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *regionsFlag, *bundleFlag, *importFlag); err != nil {
		log.Error("Cache generation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, regionList, bundlePath, importPath string) error {
	roster, err := slugcat.LoadRoster(cfg.RosterFile)
	if err != nil {
		return err
	}
	backend, err := storage.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	source := worldsrc.New(cfg.WorldDir, roster, log)
	store := tokencache.New(roster, source, backend, log)

	if importPath != "" {
		n, err := importBundle(ctx, store, roster, importPath)
		if err != nil {
			return err
		}
		log.Info("Bundle imported", "path", importPath, "regions", n)
		return nil
	}

	if pending, err := backend.PendingRebuild(ctx); err == nil && pending != nil {
		log.Info("Servicing rebuild request", "request_id", pending.ID, "reason", pending.Reason)
	}

	regions := splitRegions(regionList)
	if len(regions) == 0 {
		if regions, err = source.Regions(ctx); err != nil {
			return err
		}
	}
	if len(regions) == 0 {
		return fmt.Errorf("no regions found under %s", cfg.WorldDir)
	}

	start := time.Now()
	caches, err := store.RebuildAll(ctx, regions, cfg.BuildWorkers)
	if err != nil {
		return err
	}
	log.Info("Caches rebuilt", "regions", len(caches), "duration", time.Since(start))

	if bundlePath == "" {
		return nil
	}
	f, err := os.Create(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to create bundle: %w", err)
	}
	if err := tokencache.WriteBundle(f, caches); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close bundle: %w", err)
	}
	log.Info("Bundle written", "path", bundlePath)
	return nil
}

func importBundle(ctx context.Context, store *tokencache.Store, roster *slugcat.Roster, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()

	caches, err := tokencache.ReadBundle(f, roster)
	if err != nil {
		return 0, err
	}
	return len(caches), store.Import(ctx, caches)
}

func splitRegions(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}
