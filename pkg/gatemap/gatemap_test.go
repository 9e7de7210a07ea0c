package gatemap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

func lineGraph() *Graph {
	return &Graph{
		Nodes: []string{"X", "Y", "Z"},
		Edges: []Edge{
			{Name: "GATE_X_Y", A: "X", B: "Y", Kind: KindGate},
			{Name: "GATE_Y_Z", A: "Y", B: "Z", Kind: KindGate},
		},
	}
}

func fixedUsability(u map[string]Usability) UsableFunc {
	return func(e Edge) Usability {
		return u[e.Name]
	}
}

func TestReachable_OneWayGate(t *testing.T) {
	usable := fixedUsability(map[string]Usability{
		"GATE_X_Y": {true, false},
		"GATE_Y_Z": {true, true},
	})

	fromX := Reachable(lineGraph(), []string{"X"}, usable)
	assert.Equal(t, []string{"X", "Y", "Z"}, fromX.Nodes())

	fromZ := Reachable(lineGraph(), []string{"Z"}, usable)
	assert.Equal(t, []string{"Y", "Z"}, fromZ.Nodes())
	assert.False(t, fromZ.Has("X"))
}

func TestReachable_FixedPointNeedsSeveralPasses(t *testing.T) {
	// Edges listed far-to-near so each pass only gets one step further.
	g := &Graph{
		Nodes: []string{"A", "B", "C", "D"},
		Edges: []Edge{
			{Name: "CD", A: "C", B: "D"},
			{Name: "BC", A: "B", B: "C"},
			{Name: "AB", A: "A", B: "B"},
		},
	}
	all := func(Edge) Usability { return Usability{true, true} }

	res := Reachable(g, []string{"A"}, all)
	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Nodes())
	assert.Equal(t, 4, res.Passes)
	assert.LessOrEqual(t, res.Passes, len(g.Nodes)+1)
}

func TestReachable_Monotonic(t *testing.T) {
	g := &Graph{
		Nodes: []string{"A", "B", "C", "D", "E"},
		Edges: []Edge{
			{Name: "AB", A: "A", B: "B"},
			{Name: "BC", A: "B", B: "C"},
			{Name: "CA", A: "C", B: "A"},
			{Name: "DE", A: "D", B: "E"},
			{Name: "AD", A: "A", B: "D"},
		},
	}
	steps := []map[string]Usability{
		{},
		{"AB": {true, false}},
		{"AB": {true, false}, "BC": {false, true}},
		{"AB": {true, false}, "BC": {true, false}},
		{"AB": {true, false}, "BC": {true, true}, "AD": {true, false}},
		{"AB": {true, false}, "BC": {true, true}, "AD": {true, false}, "DE": {true, true}},
	}

	prev := 0
	for i, u := range steps {
		res := Reachable(g, []string{"A"}, fixedUsability(u))
		assert.GreaterOrEqual(t, res.Len(), prev, "step %d", i)
		prev = res.Len()
	}
	assert.Equal(t, 5, prev)
}

func TestReachable_Cycle(t *testing.T) {
	g := &Graph{
		Nodes: []string{"A", "B"},
		Edges: []Edge{{Name: "AB", A: "A", B: "B"}, {Name: "BA", A: "B", B: "A"}},
	}
	res := Reachable(g, []string{"A"}, func(Edge) Usability { return Usability{true, true} })
	assert.Equal(t, []string{"A", "B"}, res.Nodes())
	assert.Equal(t, 2, res.Passes)
}

func TestReachable_SeedsAlwaysReachable(t *testing.T) {
	g := lineGraph()
	g.Nodes = append(g.Nodes, "Passages")
	g.Always = []string{"Passages"}

	res := Reachable(g, []string{"X"}, fixedUsability(nil))
	assert.Equal(t, []string{"Passages", "X"}, res.Nodes())
	assert.Equal(t, []string{"Passages", "X"}, res.Regions())
}

func TestReachable_WarpLandsOnStarredNode(t *testing.T) {
	g := &Graph{
		Nodes: []string{"SI", "HR", "HR*"},
		Edges: []Edge{{Name: "WARP_SI_HR", A: "SI", B: "HR*", Kind: KindWarp}},
	}
	res := Reachable(g, []string{"SI"}, func(Edge) Usability { return Usability{true, false} })

	assert.True(t, res.Has("HR*"))
	assert.False(t, res.Has("HR"))
	assert.Equal(t, []string{"SI"}, res.Regions())
	assert.Equal(t, []string{"HR"}, res.Starred())
}

const testMap = `
regions: [X, Y, Z, SL]
meta:
  - name: Passages
  - name: FoodQuest
    only: [Gourmand]
edges:
  - name: GATE_X_Y
    direction: forward
  - name: GATE_Y_Z
    free: true
  - name: GATE_Z_SL
    overrides:
      - characters: [Red]
        direction: backward
      - option: sealed
        direction: none
  - name: GATE_X_Z
    only: [Saint]
    free: true
  - name: SKIP
    a: X
    b: SL
    kind: warp
    key: Ripple
`

func newTestMap(t *testing.T) *Map {
	t.Helper()
	def, err := ParseDefinition([]byte(testMap))
	require.NoError(t, err)
	m, err := NewMap(def, slugcat.DefaultRoster())
	require.NoError(t, err)
	return m
}

func TestParseDefinition_Defaults(t *testing.T) {
	def, err := ParseDefinition([]byte(testMap))
	require.NoError(t, err)

	xy := def.Edges[0]
	assert.Equal(t, "X", xy.A)
	assert.Equal(t, "Y", xy.B)
	assert.Equal(t, KindGate, xy.Kind)
	assert.Equal(t, "GATE_X_Y", xy.Key)
	assert.Equal(t, Forward, xy.Direction)

	assert.Equal(t, Both, def.Edges[1].Direction)

	warp := def.Edges[4]
	assert.Equal(t, "SL*", warp.B)
	assert.Equal(t, Forward, warp.Direction)
	assert.Equal(t, "Ripple", warp.Key)
}

func TestParseDefinition_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{name: "underivable endpoints", yaml: "regions: [X]\nedges:\n  - name: SOMETHING\n"},
		{name: "unknown region", yaml: "regions: [X]\nedges:\n  - name: GATE_X_Q\n", want: ErrUnknownNode},
		{name: "duplicate edge", yaml: "regions: [X, Y]\nedges:\n  - name: GATE_X_Y\n  - name: GATE_X_Y\n"},
		{name: "bad kind", yaml: "regions: [X, Y]\nedges:\n  - name: GATE_X_Y\n    kind: tunnel\n"},
		{name: "bad direction", yaml: "regions: [X, Y]\nedges:\n  - name: GATE_X_Y\n    direction: sideways\n"},
		{name: "not yaml", yaml: "regions: [X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.yaml))
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestNewMap_RejectsUnknownCharacters(t *testing.T) {
	def, err := ParseDefinition([]byte("regions: [X, Y]\nedges:\n  - name: GATE_X_Y\n    only: [Nobody]\n"))
	require.NoError(t, err)
	_, err = NewMap(def, slugcat.DefaultRoster())
	assert.ErrorIs(t, err, slugcat.ErrUnknownCharacter)
}

func TestGateUsable(t *testing.T) {
	m := newTestMap(t)

	tests := []struct {
		name      string
		state     State
		edge      string
		character slugcat.Name
		want      Usability
	}{
		{name: "locked", state: NewState(nil, nil), edge: "GATE_X_Y", character: slugcat.White, want: Usability{}},
		{name: "key held, one way", state: NewState([]string{"GATE_X_Y"}, nil), edge: "GATE_X_Y", character: slugcat.White, want: Usability{true, false}},
		{name: "free", state: NewState(nil, nil), edge: "GATE_Y_Z", character: slugcat.White, want: Usability{true, true}},
		{name: "character override", state: NewState([]string{"GATE_Z_SL"}, nil), edge: "GATE_Z_SL", character: slugcat.Red, want: Usability{false, true}},
		{name: "override skipped for others", state: NewState([]string{"GATE_Z_SL"}, nil), edge: "GATE_Z_SL", character: slugcat.White, want: Usability{true, true}},
		{name: "option override wins last", state: NewState([]string{"GATE_Z_SL"}, []string{"sealed"}), edge: "GATE_Z_SL", character: slugcat.Red, want: Usability{}},
		{name: "edge not present for character", state: NewState(nil, nil), edge: "GATE_X_Z", character: slugcat.White, want: Usability{}},
		{name: "edge present for character", state: NewState(nil, nil), edge: "GATE_X_Z", character: slugcat.Saint, want: Usability{true, true}},
		{name: "warp key", state: NewState([]string{"Ripple"}, nil), edge: "SKIP", character: slugcat.Saint, want: Usability{true, false}},
		{name: "unknown edge", state: NewState([]string{"GATE_Q_R"}, nil), edge: "GATE_Q_R", character: slugcat.White, want: Usability{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.GateUsable(tt.state, tt.edge, tt.character))
		})
	}
}

func TestMap_Graph(t *testing.T) {
	m := newTestMap(t)

	white := m.Graph(slugcat.White)
	assert.Equal(t, []string{"Passages"}, white.Always)
	assert.True(t, white.HasNode("SL"))
	assert.True(t, white.HasNode("SL*"))
	for _, e := range white.Edges {
		assert.NotEqual(t, "GATE_X_Z", e.Name)
	}

	gourmand := m.Graph(slugcat.Gourmand)
	assert.Equal(t, []string{"Passages", "FoodQuest"}, gourmand.Always)

	spear := m.Graph(slugcat.Spear)
	assert.True(t, spear.HasNode("LM"), "shoreline is the waterfront facility for Spear")
	assert.False(t, spear.HasNode("SL"))
	assert.True(t, spear.HasNode("LM*"))

	assert.Same(t, white, m.Graph(slugcat.White))
}

func TestMap_ReachableNodes(t *testing.T) {
	m := newTestMap(t)

	state := NewState([]string{"GATE_X_Y", "GATE_Z_SL"}, nil)
	res, err := m.ReachableNodes(state, slugcat.White, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Passages", "SL", "X", "Y", "Z"}, res.Regions())

	res, err = m.ReachableNodes(state, slugcat.Red, "X")
	require.NoError(t, err)
	assert.False(t, res.Has("SL"), "Red may only leave the shoreline through this gate")

	res, err = m.ReachableNodes(state, slugcat.Spear, "SL")
	require.NoError(t, err)
	assert.True(t, res.Has("LM"))
	assert.True(t, res.Has("Y"))
	assert.False(t, res.Has("X"), "X to Y is one way")

	res, err = m.ReachableNodes(NewState([]string{"Ripple"}, nil), slugcat.White, "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"SL"}, res.Starred())
	assert.False(t, res.Has("SL"))

	_, err = m.ReachableNodes(state, slugcat.White, "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestDefaultDefinition(t *testing.T) {
	def := DefaultDefinition()
	m, err := NewMap(def, slugcat.DefaultRoster())
	require.NoError(t, err)

	for _, e := range def.Edges {
		assert.NotEmpty(t, e.A, e.Name)
		assert.NotEmpty(t, e.B, e.Name)
	}

	var keys []string
	for _, e := range def.Edges {
		keys = append(keys, e.Key)
	}
	res, err := m.ReachableNodes(NewState(keys, nil), slugcat.White, "SU")
	require.NoError(t, err)
	assert.True(t, res.Has("SS"))
	assert.False(t, res.Has("LC"), "metropolis is Artificer only")

	res, err = m.ReachableNodes(NewState(nil, nil), slugcat.Gourmand, "SU")
	require.NoError(t, err)
	assert.Equal(t, []string{"FoodQuest", "OE", "Passages", "SU"}, res.Nodes(), "the outer expanse gate is open for Gourmand")
}
