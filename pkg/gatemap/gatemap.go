// Package gatemap describes the region graph joined by gates and warps, decides which
// gates a character can pass, and computes the regions reachable from a start region.
package gatemap

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

//go:embed default_gatemap.yaml
var defaultGatemapYAML []byte

var ErrUnknownNode = errors.New("unknown node")

// EdgeKind distinguishes ordinary gates from warps.
type EdgeKind string

const (
	KindGate EdgeKind = "gate"
	// KindWarp edges land on the starred copy of their far region ("XX*").
	KindWarp EdgeKind = "warp"
)

// Direction restricts which way an edge may be traversed, relative to its declared A and B.
type Direction string

const (
	Both     Direction = "both"
	Forward  Direction = "forward"  // A to B only
	Backward Direction = "backward" // B to A only
	Neither  Direction = "none"
)

// StarSuffix marks the node a warp lands on.
const StarSuffix = "*"

// Override adjusts an edge for some characters or when a session option is set.
// An override with neither characters nor option always applies.
type Override struct {
	Characters []string  `yaml:"characters,omitempty"`
	Option     string    `yaml:"option,omitempty"`
	Direction  Direction `yaml:"direction,omitempty"`
	Open       bool      `yaml:"open,omitempty"` // passable without the key
}

// EdgeDef is one gate or warp as written in the gate map file.
type EdgeDef struct {
	Name      string     `yaml:"name"`
	A         string     `yaml:"a,omitempty"` // defaults from a GATE_A_B name
	B         string     `yaml:"b,omitempty"`
	Kind      EdgeKind   `yaml:"kind,omitempty"`
	Free      bool       `yaml:"free,omitempty"`
	Key       string     `yaml:"key,omitempty"` // defaults to Name
	Direction Direction  `yaml:"direction,omitempty"`
	Only      []string   `yaml:"only,omitempty"`
	Except    []string   `yaml:"except,omitempty"`
	Overrides []Override `yaml:"overrides,omitempty"`

	only, except slugcat.Characters
	overrideFor  []slugcat.Characters
}

// MetaDef is a non-region node that is reachable from the start, such as the passages
// menu. Only and Except limit which characters have it.
type MetaDef struct {
	Name   string   `yaml:"name"`
	Only   []string `yaml:"only,omitempty"`
	Except []string `yaml:"except,omitempty"`

	only, except slugcat.Characters
}

// Definition is a gate map document.
type Definition struct {
	Regions []string  `yaml:"regions"`
	Meta    []MetaDef `yaml:"meta,omitempty"`
	Edges   []EdgeDef `yaml:"edges"`
}

// DefaultDefinition returns the built-in gate map.
func DefaultDefinition() *Definition {
	def, err := ParseDefinition(defaultGatemapYAML)
	if err != nil {
		panic(fmt.Sprintf("gatemap: embedded gate map is invalid: %v", err))
	}
	return def
}

// LoadDefinition reads a gate map file. An empty path yields the built-in map.
func LoadDefinition(path string) (*Definition, error) {
	if path == "" {
		return DefaultDefinition(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gate map file: %w", err)
	}
	def, err := ParseDefinition(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// ParseDefinition decodes a gate map and fills in defaults. Character names are checked
// later, against a roster, by NewMap.
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to parse gate map: %w", err)
	}

	regions := make(map[string]bool, len(def.Regions))
	for i, r := range def.Regions {
		def.Regions[i] = strings.ToUpper(strings.TrimSpace(r))
		regions[def.Regions[i]] = true
	}
	for _, m := range def.Meta {
		regions[m.Name] = true
	}

	seen := make(map[string]bool, len(def.Edges))
	for i := range def.Edges {
		e := &def.Edges[i]
		if e.Name == "" {
			return nil, fmt.Errorf("edge %d has no name", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate edge %s", e.Name)
		}
		seen[e.Name] = true

		if e.A == "" || e.B == "" {
			a, b, ok := endpointsFromName(e.Name)
			if !ok {
				return nil, fmt.Errorf("edge %s: endpoints missing and not derivable from name", e.Name)
			}
			if e.A == "" {
				e.A = a
			}
			if e.B == "" {
				e.B = b
			}
		}
		for _, end := range []*string{&e.A, &e.B} {
			if !regions[strings.TrimSuffix(*end, StarSuffix)] {
				*end = strings.ToUpper(*end)
			}
			if !regions[strings.TrimSuffix(*end, StarSuffix)] {
				return nil, fmt.Errorf("edge %s: %w %s", e.Name, ErrUnknownNode, *end)
			}
		}

		if e.Kind == "" {
			e.Kind = KindGate
		}
		if e.Kind != KindGate && e.Kind != KindWarp {
			return nil, fmt.Errorf("edge %s: unknown kind %q", e.Name, e.Kind)
		}
		if e.Kind == KindWarp && !strings.HasSuffix(e.B, StarSuffix) {
			e.B += StarSuffix
		}
		if e.Direction == "" {
			e.Direction = Both
			if e.Kind == KindWarp {
				e.Direction = Forward
			}
		}
		if !e.Direction.valid() {
			return nil, fmt.Errorf("edge %s: unknown direction %q", e.Name, e.Direction)
		}
		for _, o := range e.Overrides {
			if o.Direction != "" && !o.Direction.valid() {
				return nil, fmt.Errorf("edge %s: unknown override direction %q", e.Name, o.Direction)
			}
		}
		if e.Key == "" {
			e.Key = e.Name
		}
	}
	return &def, nil
}

// endpointsFromName reads the regions out of a gate name such as GATE_SU_HI.
func endpointsFromName(name string) (string, string, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 || parts[0] != "GATE" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func (d Direction) valid() bool {
	switch d {
	case Both, Forward, Backward, Neither:
		return true
	}
	return false
}

func (d Direction) mask(open bool) Usability {
	if !open {
		return Usability{}
	}
	switch d {
	case Forward:
		return Usability{true, false}
	case Backward:
		return Usability{false, true}
	case Neither:
		return Usability{}
	}
	return Usability{true, true}
}

func parseNames(roster *slugcat.Roster, names []string) (slugcat.Characters, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(slugcat.Characters, len(names))
	for _, raw := range names {
		n, err := roster.ParseName(raw)
		if err != nil {
			return nil, err
		}
		out.Add(n)
	}
	return out, nil
}

// includes reports whether a character passes an only/except pair.
func includes(only, except slugcat.Characters, n slugcat.Name) bool {
	if only != nil && !only.Has(n) {
		return false
	}
	return !except.Has(n)
}
