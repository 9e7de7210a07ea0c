package gatemap

import (
	"slices"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// Usability says whether an edge can be crossed from A to B (index 0) and from B to A
// (index 1).
type Usability [2]bool

// Any reports whether the edge can be crossed at all.
func (u Usability) Any() bool {
	return u[0] || u[1]
}

// Edge is a traversal edge of a character's graph.
type Edge struct {
	Name string
	A, B string
	Kind EdgeKind
}

// Graph is the static topology seen by one character. It never changes once built;
// only the usable predicate passed to Reachable does.
type Graph struct {
	Nodes  []string
	Edges  []Edge
	Always []string // meta nodes reachable from any start
}

// HasNode reports whether name is a node of the graph.
func (g *Graph) HasNode(name string) bool {
	return slices.Contains(g.Nodes, name)
}

// UsableFunc reports which directions of an edge are currently usable.
type UsableFunc func(Edge) Usability

// Result is the set of nodes reached by a Reachable run.
type Result struct {
	reached mapset.Set[string]

	// Passes is the number of full edge scans performed, including the final one
	// that added nothing.
	Passes int
}

// Has reports whether node was reached.
func (r *Result) Has(node string) bool {
	return r.reached.Has(node)
}

// Nodes returns every reached node, starred ones included, sorted.
func (r *Result) Nodes() []string {
	out := make([]string, 0, r.reached.Size())
	r.reached.Each(func(n string) {
		out = append(out, n)
	})
	slices.Sort(out)
	return out
}

// Regions returns the reached nodes that are not starred, sorted.
func (r *Result) Regions() []string {
	var out []string
	for _, n := range r.Nodes() {
		if !strings.HasSuffix(n, StarSuffix) {
			out = append(out, n)
		}
	}
	return out
}

// Starred returns the regions reached through a warp, without the star, sorted. A region
// can appear both here and in Regions.
func (r *Result) Starred() []string {
	var out []string
	for _, n := range r.Nodes() {
		if base, ok := strings.CutSuffix(n, StarSuffix); ok {
			out = append(out, base)
		}
	}
	return out
}

// Len returns the number of reached nodes.
func (r *Result) Len() int {
	return r.reached.Size()
}

// Reachable expands the start nodes and the graph's always-reachable nodes across usable
// edges until a full pass over the edges adds nothing. Usability is evaluated once per
// edge. Start nodes outside the graph are still seeded.
func Reachable(g *Graph, start []string, usable UsableFunc) *Result {
	reached := mapset.New[string]()
	for _, n := range start {
		reached.Put(n)
	}
	for _, n := range g.Always {
		reached.Put(n)
	}

	dirs := make([]Usability, len(g.Edges))
	for i, e := range g.Edges {
		dirs[i] = usable(e)
	}

	res := &Result{reached: reached}
	// Each productive pass adds at least one node.
	limit := len(g.Nodes) + 1
	for res.Passes < limit {
		res.Passes++
		changed := false
		for i, e := range g.Edges {
			d := dirs[i]
			switch {
			case d[0] && reached.Has(e.A) && !reached.Has(e.B):
				reached.Put(e.B)
				changed = true
			case d[1] && reached.Has(e.B) && !reached.Has(e.A):
				reached.Put(e.A)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return res
}
