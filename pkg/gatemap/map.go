package gatemap

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// State is what the player currently holds: gate keys and enabled session options.
type State struct {
	Keys    mapset.Set[string]
	Options mapset.Set[string]
}

// NewState builds a State from key and option names.
func NewState(keys, options []string) State {
	s := State{Keys: mapset.New[string](), Options: mapset.New[string]()}
	for _, k := range keys {
		s.Keys.Put(k)
	}
	for _, o := range options {
		s.Options.Put(o)
	}
	return s
}

// Map evaluates a gate map definition for the characters of a roster. Per-character
// graphs are built on first use and shared afterwards.
type Map struct {
	def    *Definition
	roster *slugcat.Roster
	edges  map[string]*EdgeDef

	mu     sync.Mutex
	graphs map[slugcat.Name]*Graph
}

// NewMap checks every character name used by def against the roster.
func NewMap(def *Definition, roster *slugcat.Roster) (*Map, error) {
	m := &Map{
		def:    def,
		roster: roster,
		edges:  make(map[string]*EdgeDef, len(def.Edges)),
		graphs: make(map[slugcat.Name]*Graph),
	}

	var err error
	for i := range def.Meta {
		meta := &def.Meta[i]
		if meta.only, err = parseNames(roster, meta.Only); err != nil {
			return nil, fmt.Errorf("meta node %s: %w", meta.Name, err)
		}
		if meta.except, err = parseNames(roster, meta.Except); err != nil {
			return nil, fmt.Errorf("meta node %s: %w", meta.Name, err)
		}
	}
	for i := range def.Edges {
		e := &def.Edges[i]
		if e.only, err = parseNames(roster, e.Only); err != nil {
			return nil, fmt.Errorf("edge %s: %w", e.Name, err)
		}
		if e.except, err = parseNames(roster, e.Except); err != nil {
			return nil, fmt.Errorf("edge %s: %w", e.Name, err)
		}
		e.overrideFor = make([]slugcat.Characters, len(e.Overrides))
		for j, o := range e.Overrides {
			if e.overrideFor[j], err = parseNames(roster, o.Characters); err != nil {
				return nil, fmt.Errorf("edge %s override %d: %w", e.Name, j, err)
			}
		}
		m.edges[e.Name] = e
	}
	return m, nil
}

// Definition returns the definition the map was built from.
func (m *Map) Definition() *Definition {
	return m.def
}

// Graph returns the topology the character sees: regions renamed to the character's
// substitutes, edges limited to those the character has, and the meta nodes it has.
func (m *Map) Graph(character slugcat.Name) *Graph {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.graphs[character]; ok {
		return g
	}

	g := &Graph{}
	seen := make(map[string]bool)
	addNode := func(n string) {
		if !seen[n] {
			seen[n] = true
			g.Nodes = append(g.Nodes, n)
		}
	}

	for _, r := range m.def.Regions {
		addNode(m.roster.SubstituteFor(r, character))
	}
	for _, meta := range m.def.Meta {
		if includes(meta.only, meta.except, character) {
			addNode(meta.Name)
			g.Always = append(g.Always, meta.Name)
		}
	}
	for _, e := range m.def.Edges {
		if !includes(e.only, e.except, character) {
			continue
		}
		edge := Edge{
			Name: e.Name,
			A:    m.substitute(e.A, character),
			B:    m.substitute(e.B, character),
			Kind: e.Kind,
		}
		addNode(edge.A)
		addNode(edge.B)
		g.Edges = append(g.Edges, edge)
	}

	m.graphs[character] = g
	return g
}

// substitute renames a region node, keeping any star.
func (m *Map) substitute(node string, character slugcat.Name) string {
	base, starred := strings.CutSuffix(node, StarSuffix)
	sub := m.roster.SubstituteFor(base, character)
	if starred {
		return sub + StarSuffix
	}
	return sub
}

// GateUsable returns which directions of the named edge the character may cross in the
// given state. An edge is open when it is free, its key is held, or a matching override
// opens it; matching overrides then restrict its direction, the last one winning.
// Unknown edges and edges the character does not have are never usable.
func (m *Map) GateUsable(state State, edge string, character slugcat.Name) Usability {
	e, ok := m.edges[edge]
	if !ok || !includes(e.only, e.except, character) {
		return Usability{}
	}

	open := e.Free || state.Keys.Has(e.Key)
	dir := e.Direction
	for i, o := range e.Overrides {
		if !overrideApplies(o, e.overrideFor[i], state, character) {
			continue
		}
		if o.Open {
			open = true
		}
		if o.Direction != "" {
			dir = o.Direction
		}
	}
	return dir.mask(open)
}

func overrideApplies(o Override, chars slugcat.Characters, state State, character slugcat.Name) bool {
	if chars != nil && !chars.Has(character) {
		return false
	}
	return o.Option == "" || state.Options.Has(o.Option)
}

// Usable adapts GateUsable to the solver for one state and character.
func (m *Map) Usable(state State, character slugcat.Name) UsableFunc {
	return func(e Edge) Usability {
		return m.GateUsable(state, e.Name, character)
	}
}

// ReachableNodes solves reachability for the character from start, which may be given
// either as the shared region code or the character's substitute.
func (m *Map) ReachableNodes(state State, character slugcat.Name, start string) (*Result, error) {
	g := m.Graph(character)
	node := start
	if !g.HasNode(node) {
		node = m.substitute(strings.ToUpper(start), character)
	}
	if !g.HasNode(node) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, start)
	}
	return Reachable(g, []string{node}, m.Usable(state, character)), nil
}
