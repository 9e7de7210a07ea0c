package worldsrc

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const suManifest = `
rooms:
  - room: SU_A01
    objects:
      - {type: Spear}
      - {type: GoldToken, kind: token, token: SU}
      - {type: DevToken, kind: devtoken, available_to: [Gourmand]}
      - {type: Lantern, kind: consumable, available_to: [Nobody]}
      - {type: Thing, kind: weird}
    effects: [BatFlies]
  - room: SU_A01
    variant: saint
    objects:
      - {type: KarmaFlower}
  - room: SU_A02
    variant: Ghost
`

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "su", "world_su.txt"), "ROOMS\nSU_A01 : SU_A02\nSU_A02 : SU_A01\nEND ROOMS\n")
	writeFile(t, filepath.Join(root, "su", "properties.txt"), "Broken Shelters: White: SU_S01\n")
	writeFile(t, filepath.Join(root, "su", "properties-saint.txt"), "Broken Shelters: Saint: SU_S02\n")
	writeFile(t, filepath.Join(root, "su", "properties-nobody.txt"), "Broken Shelters: Nobody: SU_S03\n")
	writeFile(t, filepath.Join(root, "su", "placed_objects.yaml"), suManifest)
	writeFile(t, filepath.Join(root, "hi", "world_hi.txt"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	return root
}

func TestFS_Regions(t *testing.T) {
	src := New(newTree(t), slugcat.DefaultRoster(), testLogger())
	regions, err := src.Regions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"HI", "SU"}, regions)

	missing := New(filepath.Join(t.TempDir(), "nope"), slugcat.DefaultRoster(), testLogger())
	regions, err = missing.Regions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestFS_WorldFile(t *testing.T) {
	src := New(newTree(t), slugcat.DefaultRoster(), testLogger())

	data, err := src.WorldFile(context.Background(), "SU")
	require.NoError(t, err)
	assert.Contains(t, string(data), "SU_A01 : SU_A02")

	data, err = src.WorldFile(context.Background(), "CC")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFS_Properties(t *testing.T) {
	src := New(newTree(t), slugcat.DefaultRoster(), testLogger())

	base, perTimeline, err := src.Properties(context.Background(), "su")
	require.NoError(t, err)
	assert.Contains(t, string(base), "White: SU_S01")
	require.Len(t, perTimeline, 1)
	assert.Contains(t, string(perTimeline["Saint"]), "SU_S02")

	base, perTimeline, err = src.Properties(context.Background(), "CC")
	require.NoError(t, err)
	assert.Nil(t, base)
	assert.Empty(t, perTimeline)
}

func TestFS_RoomSettings(t *testing.T) {
	src := New(newTree(t), slugcat.DefaultRoster(), testLogger())

	settings, err := src.RoomSettings(context.Background(), "SU")
	require.NoError(t, err)
	require.Len(t, settings, 2, "the unknown variant is skipped")

	base := settings[0]
	assert.Equal(t, "SU_A01", base.Room)
	assert.Empty(t, base.Variant)
	assert.Equal(t, []string{"BatFlies"}, base.Effects)
	require.Len(t, base.Objects, 3)
	assert.Equal(t, access.OpaqueData{}, base.Objects[0].Data)
	assert.Equal(t, access.TokenData{TokenString: "SU"}, base.Objects[1].Data)
	assert.Equal(t, access.DevTokenData{AvailableToPlayers: slugcat.NewSet(slugcat.Gourmand)}, base.Objects[2].Data)

	assert.Equal(t, slugcat.Saint, settings[1].Variant)

	none, err := src.RoomSettings(context.Background(), "HI")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFS_RoomSettingsInvalidYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "su", "placed_objects.yaml"), "rooms: [")
	src := New(root, slugcat.DefaultRoster(), testLogger())

	_, err := src.RoomSettings(context.Background(), "SU")
	assert.Error(t, err)
}

type memBackend struct {
	data map[string][]byte
}

func (m *memBackend) Load(ctx context.Context, region string) ([]byte, error) {
	d, ok := m.data[region]
	if !ok {
		return nil, tokencache.ErrNotCached
	}
	return d, nil
}

func (m *memBackend) Save(ctx context.Context, region string, data []byte) error {
	m.data[region] = data
	return nil
}

func (m *memBackend) Delete(ctx context.Context, region string) error {
	delete(m.data, region)
	return nil
}

func (m *memBackend) RequestRebuild(ctx context.Context, reason string) error { return nil }
func (m *memBackend) RebuildRequested(ctx context.Context) (bool, error)      { return false, nil }
func (m *memBackend) ClearRebuildRequest(ctx context.Context) error           { return nil }

func TestFS_FeedsStore(t *testing.T) {
	roster := slugcat.DefaultRoster()
	src := New(newTree(t), roster, testLogger())
	store := tokencache.New(roster, src, &memBackend{data: map[string][]byte{}}, testLogger())

	c, err := store.BuildOrLoad(context.Background(), "SU")
	require.NoError(t, err)

	assert.Contains(t, c.Objects, "GoldToken-SU")
	assert.False(t, c.Objects["Spear"].Has(slugcat.Saint), "Saint uses the alternate settings")
	assert.Equal(t, []slugcat.Name{slugcat.Saint}, c.KarmaFlowers["SU_A01"].Sorted())
	assert.Equal(t, []slugcat.Name{slugcat.Gourmand}, c.DevTokens["SU_A01"].Sorted())
	assert.Contains(t, c.Creatures, "Fly")
	assert.Contains(t, c.Rooms, "su_a02")
}
