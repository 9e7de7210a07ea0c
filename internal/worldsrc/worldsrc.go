// Package worldsrc reads region world data from a directory tree:
//
//	<root>/<region>/world_<region>.txt
//	<root>/<region>/properties.txt
//	<root>/<region>/properties-<timeline>.txt
//	<root>/<region>/placed_objects.yaml
//
// Region directories and world file names are lowercase. Missing files are treated as
// absent data rather than errors.
package worldsrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

const (
	propertiesFile    = "properties.txt"
	propertiesPrefix  = "properties-"
	placedObjectsFile = "placed_objects.yaml"
)

// Object data kinds accepted in placed_objects.yaml.
const (
	KindToken      = "token"
	KindConsumable = "consumable"
	KindDevToken   = "devtoken"
	KindOpaque     = "opaque"
)

// FS is a tokencache.Source over a directory tree.
type FS struct {
	root   string
	roster *slugcat.Roster
	logger *slog.Logger
}

var _ tokencache.Source = (*FS)(nil)

// New creates a source rooted at dir.
func New(dir string, roster *slugcat.Roster, logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: dir, roster: roster, logger: logger}
}

func (s *FS) regionDir(region string) string {
	return filepath.Join(s.root, strings.ToLower(region))
}

// readOptional reads a file, returning nil data when it does not exist.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Regions lists the region directories that contain a world file, uppercased and sorted.
func (s *FS) Regions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read world directory: %w", err)
	}

	var regions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := os.Stat(filepath.Join(s.root, name, "world_"+name+".txt")); err != nil {
			continue
		}
		regions = append(regions, strings.ToUpper(name))
	}
	slices.Sort(regions)
	return regions, nil
}

// WorldFile returns the region's world file text.
func (s *FS) WorldFile(ctx context.Context, region string) ([]byte, error) {
	lower := strings.ToLower(region)
	path := filepath.Join(s.regionDir(region), "world_"+lower+".txt")
	data, err := readOptional(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file %s: %w", path, err)
	}
	if data == nil {
		s.logger.Debug("World file not found", "region", region, "path", path)
	}
	return data, nil
}

// Properties returns the base properties file and every per-timeline override file
// whose suffix names a known timeline.
func (s *FS) Properties(ctx context.Context, region string) ([]byte, map[slugcat.Timeline][]byte, error) {
	dir := s.regionDir(region)
	base, err := readOptional(filepath.Join(dir, propertiesFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read properties for %s: %w", region, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read region directory %s: %w", dir, err)
	}

	perTimeline := make(map[slugcat.Timeline][]byte)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, propertiesPrefix) || filepath.Ext(name) != ".txt" {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, propertiesPrefix), ".txt")
		timeline, err := s.roster.ParseTimeline(raw)
		if err != nil {
			s.logger.Warn("Ignoring properties file for unknown timeline", "region", region, "file", name)
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		perTimeline[timeline] = data
	}
	return base, perTimeline, nil
}

type objectEntry struct {
	Type        string   `yaml:"type"`
	Kind        string   `yaml:"kind,omitempty"`
	Token       string   `yaml:"token,omitempty"`
	AvailableTo []string `yaml:"available_to,omitempty"`
}

type roomEntry struct {
	Room    string        `yaml:"room"`
	Variant string        `yaml:"variant,omitempty"`
	Objects []objectEntry `yaml:"objects,omitempty"`
	Effects []string      `yaml:"effects,omitempty"`
}

type manifest struct {
	Rooms []roomEntry `yaml:"rooms"`
}

// RoomSettings decodes placed_objects.yaml. Objects naming unknown characters or kinds
// are skipped with a warning; a manifest that is not valid YAML is an error.
func (s *FS) RoomSettings(ctx context.Context, region string) ([]access.RoomSettings, error) {
	path := filepath.Join(s.regionDir(region), placedObjectsFile)
	data, err := readOptional(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	log := s.logger.With("region", region)
	out := make([]access.RoomSettings, 0, len(m.Rooms))
	for _, rs := range m.Rooms {
		settings := access.RoomSettings{Room: rs.Room, Effects: rs.Effects}
		if rs.Variant != "" {
			variant, err := s.roster.ParseName(rs.Variant)
			if err != nil {
				log.Warn("Skipping room settings for unknown variant", "room", rs.Room, "variant", rs.Variant)
				continue
			}
			settings.Variant = variant
		}
		for _, entry := range rs.Objects {
			obj, err := s.object(entry)
			if err != nil {
				log.Warn("Skipping placed object", "room", rs.Room, "type", entry.Type, "error", err)
				continue
			}
			settings.Objects = append(settings.Objects, obj)
		}
		out = append(out, settings)
	}
	return out, nil
}

func (s *FS) object(entry objectEntry) (access.PlacedObject, error) {
	if entry.Type == "" {
		return access.PlacedObject{}, errors.New("object has no type")
	}

	var avail slugcat.Characters
	if len(entry.AvailableTo) > 0 {
		avail = make(slugcat.Characters, len(entry.AvailableTo))
		for _, raw := range entry.AvailableTo {
			n, err := s.roster.ParseName(raw)
			if err != nil {
				return access.PlacedObject{}, err
			}
			avail.Add(n)
		}
	}

	obj := access.PlacedObject{Type: entry.Type}
	switch entry.Kind {
	case KindToken:
		if entry.Token == "" {
			return access.PlacedObject{}, errors.New("token object has no token string")
		}
		obj.Data = access.TokenData{TokenString: entry.Token, AvailableToPlayers: avail}
	case KindConsumable:
		obj.Data = access.ConsumableData{AvailableToPlayers: avail}
	case KindDevToken:
		obj.Data = access.DevTokenData{AvailableToPlayers: avail}
	case KindOpaque, "":
		obj.Data = access.OpaqueData{}
	default:
		return access.PlacedObject{}, fmt.Errorf("unknown object kind %q", entry.Kind)
	}
	return obj, nil
}
