package slugcat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed default_roster.yaml
var defaultRosterYAML []byte

// Character describes one roster entry.
type Character struct {
	Name     Name     `yaml:"name"`
	Playable bool     `yaml:"playable"`
	Timeline Timeline `yaml:"timeline"` // defaults to the character's own name
}

// Region describes a world region and how it presents per character.
type Region struct {
	Code        string          `yaml:"code"`
	Name        string          `yaml:"name"`
	Substitutes map[Name]string `yaml:"substitutes,omitempty"` // character -> region code shown instead
}

// DisplayName returns the region's title-cased public name, or its code when unnamed.
func (reg Region) DisplayName() string {
	if reg.Name == "" {
		return reg.Code
	}
	return cases.Title(language.English).String(reg.Name)
}

// Roster is the set of characters and regions known to a session.
type Roster struct {
	Characters []Character `yaml:"characters"`
	Regions    []Region    `yaml:"regions"`

	byName   map[string]Character // lowercased name -> character
	byRegion map[string]Region
}

// DefaultRoster returns the built-in roster.
func DefaultRoster() *Roster {
	r, err := ParseRoster(defaultRosterYAML)
	if err != nil {
		panic(fmt.Sprintf("slugcat: embedded roster is invalid: %v", err))
	}
	return r
}

// LoadRoster reads a roster YAML file. An empty path yields the built-in roster.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	r, err := ParseRoster(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseRoster decodes and indexes a roster document.
func ParseRoster(raw []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if len(r.Characters) == 0 {
		return nil, fmt.Errorf("roster has no characters")
	}

	r.byName = make(map[string]Character, len(r.Characters))
	for i, c := range r.Characters {
		if c.Name == "" {
			return nil, fmt.Errorf("roster character %d has no name", i)
		}
		if strings.ContainsAny(string(c.Name), "~|,") {
			return nil, fmt.Errorf("roster character %q contains a reserved character", c.Name)
		}
		if c.Timeline == "" {
			c.Timeline = Timeline(c.Name)
			r.Characters[i] = c
		}
		key := strings.ToLower(string(c.Name))
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("roster character %q declared twice", c.Name)
		}
		r.byName[key] = c
	}

	r.byRegion = make(map[string]Region, len(r.Regions))
	for _, reg := range r.Regions {
		r.byRegion[strings.ToUpper(reg.Code)] = reg
	}
	return &r, nil
}

// ParseName validates a character name case-insensitively and returns its canonical form.
func (r *Roster) ParseName(s string) (Name, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCharacter, s)
	}
	return c.Name, nil
}

// ParseTimeline validates a timeline name case-insensitively.
func (r *Roster) ParseTimeline(s string) (Timeline, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, c := range r.Characters {
		if strings.ToLower(string(c.Timeline)) == want {
			return c.Timeline, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTimeline, s)
}

// All returns every character, including non-playable ones.
func (r *Roster) All() Characters {
	s := make(Characters, len(r.Characters))
	for _, c := range r.Characters {
		s.Add(c.Name)
	}
	return s
}

// Playable returns the default permission set: every character except the
// non-playable meta-characters.
func (r *Roster) Playable() Characters {
	s := make(Characters, len(r.Characters))
	for _, c := range r.Characters {
		if c.Playable {
			s.Add(c.Name)
		}
	}
	return s
}

// TimelineOf returns the timeline the character belongs to.
func (r *Roster) TimelineOf(n Name) (Timeline, bool) {
	c, ok := r.byName[strings.ToLower(string(n))]
	if !ok {
		return "", false
	}
	return c.Timeline, true
}

// TimelinesOf maps a character set onto the timelines it covers.
func (r *Roster) TimelinesOf(chars Characters) Timelines {
	out := make(Timelines)
	for n := range chars {
		if t, ok := r.TimelineOf(n); ok {
			out.Add(t)
		}
	}
	return out
}

// Region returns the roster entry for a region code.
func (r *Roster) Region(code string) (Region, bool) {
	reg, ok := r.byRegion[strings.ToUpper(code)]
	return reg, ok
}

// SubstituteFor returns the region code presented to the character, which differs from
// code when the same physical region goes by another name in that character's campaign.
func (r *Roster) SubstituteFor(code string, n Name) string {
	reg, ok := r.Region(code)
	if !ok {
		return code
	}
	if sub, ok := reg.Substitutes[n]; ok && sub != "" {
		return sub
	}
	return code
}

// RegionCodes lists the roster's region codes in declaration order.
func (r *Roster) RegionCodes() []string {
	out := make([]string, 0, len(r.Regions))
	for _, reg := range r.Regions {
		out = append(out, reg.Code)
	}
	return out
}
