// Package worldfile parses a region's world definition text (world_xx.txt) into rooms,
// conditional links and creature dens.
package worldfile

import (
	"strings"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// Section markers as they appear in world files.
const (
	markerRooms          = "ROOMS"
	markerEndRooms       = "END ROOMS"
	markerLinks          = "CONDITIONAL LINKS"
	markerEndLinks       = "END CONDITIONAL LINKS"
	markerCreatures      = "CREATURES"
	markerEndCreatures   = "END CREATURES"
	disconnectedRoomName = "DISCONNECTED"
)

// Room tags that the accessibility model cares about.
const (
	TagShelter        = "SHELTER"
	TagAncientShelter = "ANCIENTSHELTER"
	TagSwarmRoom      = "SWARMROOM"
	TagGate           = "GATE"
)

// LinkKind is the effect of a conditional link.
type LinkKind int

const (
	ExclusiveRoom LinkKind = iota + 1
	HideRoom
)

func (k LinkKind) String() string {
	switch k {
	case ExclusiveRoom:
		return "EXCLUSIVEROOM"
	case HideRoom:
		return "HIDEROOM"
	default:
		return "UNKNOWN"
	}
}

// Room is one line of the ROOMS section.
type Room struct {
	Name        string
	Connections []string
	Tags        []string
	Filter      *slugcat.Filter // leading "(A,B)" filter, nil when absent
	Line        int
}

// HasTag reports whether the room carries the tag.
func (r Room) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsShelter reports whether the room is any kind of shelter.
func (r Room) IsShelter() bool {
	return r.HasTag(TagShelter) || r.HasTag(TagAncientShelter)
}

// Link is an EXCLUSIVEROOM or HIDEROOM rule. REPLACEROOM lines are expanded into one
// of each.
type Link struct {
	Kind   LinkKind
	Filter slugcat.Filter
	Room   string
	Line   int
}

// Den is a creature spawn declaration. Lineage dens only carry the first creature of
// the chain, because later members only appear after the first dies.
type Den struct {
	Room      string
	Creatures []string
	Filter    *slugcat.Filter
	Lineage   bool
	Line      int
}

// Warning records a skipped line.
type Warning struct {
	Line   int
	Text   string
	Reason string
}

// World is the parsed content of one world file.
type World struct {
	Region     string
	Rooms      []Room
	Links      []Link
	ExtraRooms []string // rooms introduced by REPLACEROOM that may be absent from ROOMS
	Dens       []Den
	Warnings   []Warning
}

// RoomNames returns every room name declared in ROOMS, in file order.
func (w *World) RoomNames() []string {
	out := make([]string, 0, len(w.Rooms))
	for _, r := range w.Rooms {
		out = append(out, r.Name)
	}
	return out
}
