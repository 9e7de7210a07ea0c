package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/slugrando/internal/storage"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/gatemap"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

const reportGates = `
regions: [SU, HI, SL]
meta:
  - name: Passages
edges:
  - name: GATE_SU_HI
  - name: GATE_HI_SL
  - name: WARP_SU_SL
    a: SU
    b: SL
    kind: warp
    free: true
`

func newBuilder(t *testing.T) *builder {
	t.Helper()
	root := t.TempDir()
	world := filepath.Join(root, "world")
	require.NoError(t, os.MkdirAll(filepath.Join(world, "su"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(world, "su", "world_su.txt"),
		[]byte("ROOMS\nSU_A01 : SU_S01\nSU_S01 : SU_A01 : SHELTER\nEND ROOMS\nCONDITIONAL LINKS\nRed : HIDEROOM : SU_A01\nEND CONDITIONAL LINKS\n"), 0o644))

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	roster := slugcat.DefaultRoster()
	def, err := gatemap.ParseDefinition([]byte(reportGates))
	require.NoError(t, err)
	gates, err := gatemap.NewMap(def, roster)
	require.NoError(t, err)

	store := tokencache.New(roster, worldsrc.New(world, roster, quiet), storage.NewFileStore(filepath.Join(root, "cache"), quiet), quiet)
	return &builder{roster: roster, gates: gates, store: store}
}

func TestBuild(t *testing.T) {
	b := newBuilder(t)

	r, err := b.build(context.Background(), gatemap.NewState([]string{"GATE_SU_HI"}, nil), slugcat.White, "SU")
	require.NoError(t, err)
	require.Len(t, r.Regions, 3)

	assert.Equal(t, "HI", r.Regions[0].Code)
	assert.Equal(t, "SU", r.Regions[1].Code)
	assert.Equal(t, 2, r.Regions[1].Rooms)
	assert.Equal(t, 1, r.Regions[1].Shelters)
	assert.Equal(t, "SL", r.Regions[2].Code)
	assert.True(t, r.Regions[2].Warp)
	assert.Equal(t, "Shoreline", r.Regions[2].Name)
	assert.Equal(t, []string{"Passages"}, r.Meta)
	assert.Equal(t, []string{"GATE_HI_SL"}, r.Locked)

	red, err := b.build(context.Background(), gatemap.NewState(nil, nil), slugcat.Red, "SU")
	require.NoError(t, err)
	assert.Equal(t, 1, red.Regions[0].Rooms, "SU_A01 is hidden from Red")
}

func TestRenderReport(t *testing.T) {
	out := renderReport(&Report{
		Character: slugcat.White,
		Start:     "SU",
		Passes:    2,
		Regions: []RegionLine{
			{Code: "SU", Name: "Outskirts", Rooms: 2, Shelters: 1},
			{Code: "SL", Name: "Shoreline", Warp: true},
		},
		Meta:   []string{"Passages"},
		Locked: []string{"GATE_HI_SL", "GATE_SU_DS", "GATE_DS_SB", "GATE_SB_SL", "GATE_SL_VS"},
	}, 40)

	assert.Contains(t, out, "White from SU")
	assert.Contains(t, out, "Outskirts")
	assert.Contains(t, out, "Shoreline *")
	assert.Contains(t, out, "Also open: Passages")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}
