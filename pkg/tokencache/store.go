package tokencache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/properties"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/worldfile"
)

// Source supplies a region's raw world data. Missing inputs are reported as empty
// results, not errors; errors mean the data exists but could not be read.
type Source interface {
	// WorldFile returns the region's world definition text.
	WorldFile(ctx context.Context, region string) ([]byte, error)

	// Properties returns the base properties file and the per-timeline override files.
	Properties(ctx context.Context, region string) ([]byte, map[slugcat.Timeline][]byte, error)

	// RoomSettings returns the placed objects and effects of every room settings file.
	RoomSettings(ctx context.Context, region string) ([]access.RoomSettings, error)
}

// Backend persists serialized region caches and the rebuild-request sentinel.
type Backend interface {
	// Load returns ErrNotCached when the region has no stored cache.
	Load(ctx context.Context, region string) ([]byte, error)
	Save(ctx context.Context, region string, data []byte) error
	Delete(ctx context.Context, region string) error

	RequestRebuild(ctx context.Context, reason string) error
	RebuildRequested(ctx context.Context) (bool, error)
	ClearRebuildRequest(ctx context.Context) error
}

type regionEntry struct {
	mu    sync.Mutex
	cache *access.Cache
}

// Store hands out region caches, loading each from the backend on first use and
// rebuilding it from the source when it is missing, malformed or a rebuild was requested.
// Published caches are never modified.
type Store struct {
	roster  *slugcat.Roster
	source  Source
	backend Backend
	builder *access.Builder
	log     *slog.Logger

	mu             sync.Mutex
	regions        map[string]*regionEntry
	loaded         bool
	rebuildChecked bool
	forceRebuild   bool
}

// New creates an empty store.
func New(roster *slugcat.Roster, source Source, backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		roster:  roster,
		source:  source,
		backend: backend,
		builder: access.NewBuilder(roster, log),
		log:     log,
		regions: make(map[string]*regionEntry),
	}
}

// Loaded reports whether caches have been served from persisted data (or a full rebuild)
// without any malformed cache being discarded since.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Clear drops every in-memory cache. Persisted data is untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = make(map[string]*regionEntry)
	s.rebuildChecked = false
	s.forceRebuild = false
}

// Cached lists the regions currently held in memory.
func (s *Store) Cached() []string {
	s.mu.Lock()
	entries := make(map[string]*regionEntry, len(s.regions))
	for k, v := range s.regions {
		entries[k] = v
	}
	s.mu.Unlock()

	var out []string
	for region, e := range entries {
		e.mu.Lock()
		if e.cache != nil {
			out = append(out, region)
		}
		e.mu.Unlock()
	}
	slices.Sort(out)
	return out
}

func (s *Store) entry(region string) *regionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.regions[region]
	if !ok {
		e = &regionEntry{}
		s.regions[region] = e
	}
	return e
}

// BuildOrLoad returns the region's cache. On failure to read world data it returns an
// empty cache along with the error, and nothing is memoized so a later call retries.
func (s *Store) BuildOrLoad(ctx context.Context, region string) (*access.Cache, error) {
	return s.populate(ctx, strings.ToUpper(region), false)
}

// RoomAccessibility returns the region's room -> permitted characters map.
func (s *Store) RoomAccessibility(ctx context.Context, region string) (access.Family[slugcat.Name], error) {
	c, err := s.BuildOrLoad(ctx, region)
	return c.Rooms, err
}

func (s *Store) populate(ctx context.Context, region string, force bool) (*access.Cache, error) {
	e := s.entry(region)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cache != nil && !force {
		return e.cache, nil
	}

	log := s.log.With("region", region)
	if !force && !s.rebuildPending(ctx) {
		c, err := s.load(ctx, region)
		switch {
		case err == nil:
			e.cache = c
			s.setLoaded(true)
			log.Debug("Loaded accessibility cache")
			return c, nil
		case errors.Is(err, ErrNotCached):
			log.Debug("No stored cache, building")
		case errors.Is(err, ErrMalformedCache):
			s.discard(ctx, region, err)
		default:
			log.Error("Failed to read stored cache, building", "error", err)
		}
	}

	c, err := s.build(ctx, region)
	if err != nil {
		return access.NewCache(region), err
	}
	e.cache = c

	data, err := Marshal(c)
	if err != nil {
		log.Error("Failed to serialize cache", "error", err)
		return c, nil
	}
	if err := s.backend.Save(ctx, region, data); err != nil {
		log.Error("Failed to persist cache", "error", err)
	}
	return c, nil
}

func (s *Store) load(ctx context.Context, region string) (*access.Cache, error) {
	data, err := s.backend.Load(ctx, region)
	if err != nil {
		return nil, err
	}
	return Unmarshal(region, data, s.roster)
}

// discard handles a malformed stored cache: nothing from it is kept, the store is
// marked as not loaded and a full rebuild is requested.
func (s *Store) discard(ctx context.Context, region string, cause error) {
	s.log.Warn("Discarding malformed cache", "region", region, "error", cause)
	s.setLoaded(false)
	if err := s.backend.RequestRebuild(ctx, fmt.Sprintf("malformed cache for %s: %v", region, cause)); err != nil {
		s.log.Error("Failed to request cache rebuild", "region", region, "error", err)
	}
}

func (s *Store) setLoaded(v bool) {
	s.mu.Lock()
	s.loaded = v
	s.mu.Unlock()
}

// rebuildPending checks the backend's rebuild request once per store lifetime.
func (s *Store) rebuildPending(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rebuildChecked {
		return s.forceRebuild
	}
	requested, err := s.backend.RebuildRequested(ctx)
	if err != nil {
		s.log.Error("Failed to check for rebuild request", "error", err)
		return false
	}
	s.rebuildChecked = true
	s.forceRebuild = requested
	if requested {
		s.log.Info("Cache rebuild requested, ignoring stored caches")
	}
	return requested
}

func (s *Store) build(ctx context.Context, region string) (*access.Cache, error) {
	log := s.log.With("region", region)

	text, err := s.source.WorldFile(ctx, region)
	if err != nil {
		log.Error("Failed to read world file", "error", err)
		return nil, fmt.Errorf("failed to read world file for %s: %w", region, err)
	}
	if len(text) == 0 {
		log.Info("No world file for region, using defaults")
	}
	world, err := worldfile.Parse(region, bytes.NewReader(text), s.roster, log)
	if err != nil {
		return nil, err
	}
	res := access.Resolve(world, s.roster, log)

	settings, err := s.source.RoomSettings(ctx, region)
	if err != nil {
		log.Error("Failed to read room settings", "error", err)
		return nil, fmt.Errorf("failed to read room settings for %s: %w", region, err)
	}
	c := s.builder.Build(res, settings)

	base, perTimeline, err := s.source.Properties(ctx, region)
	if err != nil {
		log.Warn("Failed to read properties, no overrides applied", "error", err)
	} else {
		properties.Merge(base, perTimeline, s.roster, log).Apply(c.Shelters)
	}
	return c, nil
}

// RebuildAll rebuilds and persists the given regions from the source, running up to
// workers builds at once. When every region succeeds the rebuild request is cleared.
func (s *Store) RebuildAll(ctx context.Context, regions []string, workers int) ([]*access.Cache, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*access.Cache, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			c, err := s.populate(gctx, strings.ToUpper(region), true)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to rebuild caches: %w", err)
	}

	if err := s.backend.ClearRebuildRequest(ctx); err != nil {
		return results, fmt.Errorf("failed to clear rebuild request: %w", err)
	}
	s.mu.Lock()
	s.loaded = true
	s.rebuildChecked = true
	s.forceRebuild = false
	s.mu.Unlock()

	s.log.Info("Rebuilt accessibility caches", "regions", len(regions))
	return results, nil
}

// Import persists and publishes caches obtained elsewhere, such as from a bundle.
func (s *Store) Import(ctx context.Context, caches []*access.Cache) error {
	for _, c := range caches {
		data, err := Marshal(c)
		if err != nil {
			return err
		}
		if err := s.backend.Save(ctx, c.Region, data); err != nil {
			return fmt.Errorf("failed to persist cache for %s: %w", c.Region, err)
		}
		e := s.entry(c.Region)
		e.mu.Lock()
		e.cache = c
		e.mu.Unlock()
	}
	return nil
}

// RebuildRequested reports whether the backend currently holds a rebuild request.
func (s *Store) RebuildRequested(ctx context.Context) (bool, error) {
	return s.backend.RebuildRequested(ctx)
}
