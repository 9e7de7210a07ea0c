package access

import (
	"log/slog"
	"strings"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/worldfile"
)

// Resolution is the resolved room map of a region together with the per-room facts
// harvested while resolving it.
type Resolution struct {
	Region     string
	Rooms      map[string]slugcat.Characters // lowercase room name -> permitted characters
	Shelters   Family[slugcat.Name]          // shelter room -> characters that can use it
	SwarmRooms Family[slugcat.Name]
	Creatures  Family[slugcat.Name] // creature type -> characters that can meet it
}

// Permitted returns the characters allowed into a room, or nil for unknown rooms.
func (r *Resolution) Permitted(room string) slugcat.Characters {
	return r.Rooms[strings.ToLower(room)]
}

// Resolve computes room accessibility for a parsed world file.
//
// Every room starts out open to all playable characters (a filter written on its own
// ROOMS line narrows that). EXCLUSIVEROOM then replaces the set with exactly the
// filter's characters, and HIDEROOM replaces it with everyone except the filter's
// characters. Rules apply in file order, so a later rule on the same room wins.
func Resolve(w *worldfile.World, roster *slugcat.Roster, log *slog.Logger) *Resolution {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("region", w.Region)
	playable := roster.Playable()

	res := &Resolution{
		Region:     w.Region,
		Rooms:      make(map[string]slugcat.Characters),
		Shelters:   make(Family[slugcat.Name]),
		SwarmRooms: make(Family[slugcat.Name]),
		Creatures:  make(Family[slugcat.Name]),
	}

	for _, room := range w.Rooms {
		perm := playable.Clone()
		if room.Filter != nil {
			perm = room.Filter.Resolve(playable)
		}
		res.Rooms[strings.ToLower(room.Name)] = perm
	}
	for _, room := range w.Rooms {
		for _, conn := range room.Connections {
			key := strings.ToLower(conn)
			if _, ok := res.Rooms[key]; !ok {
				res.Rooms[key] = playable.Clone()
			}
		}
	}
	for _, extra := range w.ExtraRooms {
		key := strings.ToLower(extra)
		if _, ok := res.Rooms[key]; !ok {
			res.Rooms[key] = playable.Clone()
		}
	}

	declared := make(map[string]worldfile.Link)
	for _, link := range w.Links {
		key := strings.ToLower(link.Room)
		if prev, dup := declared[key]; dup {
			log.Warn("Room has more than one exclusive/hidden declaration, the later one wins",
				"room", link.Room,
				"first_kind", prev.Kind.String(),
				"first_line", prev.Line,
				"kind", link.Kind.String(),
				"line", link.Line)
		}
		declared[key] = link

		switch link.Kind {
		case worldfile.ExclusiveRoom:
			res.Rooms[key] = link.Filter.Resolve(playable)
		case worldfile.HideRoom:
			res.Rooms[key] = playable.Minus(link.Filter.Resolve(playable))
		}
	}

	for _, room := range w.Rooms {
		perm := res.Rooms[strings.ToLower(room.Name)]
		name := strings.ToUpper(room.Name)
		if room.IsShelter() {
			res.Shelters.Add(name, perm)
		}
		if room.HasTag(worldfile.TagSwarmRoom) {
			res.SwarmRooms.Add(name, perm)
		}
	}

	for _, den := range w.Dens {
		perm, ok := res.Rooms[strings.ToLower(den.Room)]
		if !ok {
			// OFFSCREEN and rooms only known to the creature list
			perm = playable
		}
		if den.Filter != nil {
			perm = perm.Intersect(den.Filter.Resolve(playable))
		}
		for _, creature := range den.Creatures {
			res.Creatures.Add(creature, perm)
		}
	}

	log.Debug("Resolved room accessibility",
		"rooms", len(res.Rooms),
		"shelters", len(res.Shelters),
		"swarm_rooms", len(res.SwarmRooms),
		"creatures", len(res.Creatures))
	return res
}
