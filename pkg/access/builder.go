package access

import (
	"log/slog"
	"strings"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// SwarmCreature is the creature that migrates between swarm rooms.
const SwarmCreature = "Fly"

// effectCreatures maps room effects that spawn creatures to the creature type.
var effectCreatures = map[string]string{
	"BatFlies": SwarmCreature,
}

// scriptedCreatures are creature grants that no placement data shows. The SU intro
// sequence depends on batflies the survivor campaigns always meet there.
var scriptedCreatures = map[string]map[string]slugcat.Characters{
	"SU": {
		SwarmCreature: slugcat.NewSet(slugcat.White, slugcat.Yellow),
	},
}

// ValidIdentity reports whether an identity can be stored in a cache file.
func ValidIdentity(id string) bool {
	return id != "" && !strings.ContainsAny(id, "~|,\r\n")
}

// Builder turns a Resolution plus room placement data into a Cache.
type Builder struct {
	roster *slugcat.Roster
	log    *slog.Logger
}

func NewBuilder(roster *slugcat.Roster, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{roster: roster, log: log}
}

// Build computes the five collectible families and the room map for a region.
func (b *Builder) Build(res *Resolution, settings []RoomSettings) *Cache {
	log := b.log.With("region", res.Region)
	cache := NewCache(res.Region)
	playable := b.roster.Playable()

	for room, perm := range res.Rooms {
		cache.Rooms.Add(strings.ToLower(room), perm)
	}
	for shelter, perm := range res.Shelters {
		cache.Shelters.Add(shelter, b.roster.TimelinesOf(perm))
	}
	for creature, perm := range res.Creatures {
		b.add(log, cache.Creatures, creature, perm)
	}
	for _, perm := range res.SwarmRooms {
		cache.Creatures.Add(SwarmCreature, perm)
	}

	// Characters with their own settings file for a room never see the base file's objects.
	alternates := make(map[string]slugcat.Characters)
	for _, rs := range settings {
		if rs.Variant == "" {
			continue
		}
		key := strings.ToLower(rs.Room)
		if alternates[key] == nil {
			alternates[key] = make(slugcat.Characters)
		}
		alternates[key].Add(rs.Variant)
	}

	for _, rs := range settings {
		perm := res.Permitted(rs.Room)
		if perm == nil {
			log.Debug("Skipping placement data for room missing from world file", "room", rs.Room)
			continue
		}

		var clearance slugcat.Characters
		if rs.Variant == "" {
			clearance = perm.Minus(alternates[strings.ToLower(rs.Room)])
		} else {
			clearance = perm.Intersect(slugcat.NewSet(rs.Variant))
		}
		if clearance.Empty() {
			continue
		}

		roomKey := strings.ToUpper(rs.Room)
		for _, obj := range rs.Objects {
			objClearance := clearance
			if obj.Data != nil {
				if avail := obj.Data.AvailableTo(); avail != nil {
					objClearance = clearance.Intersect(avail)
				}
			}

			switch data := obj.Data.(type) {
			case DevTokenData:
				b.add(log, cache.DevTokens, roomKey, objClearance)
			case TokenData:
				id := obj.Type
				if data.TokenString != "" {
					id = obj.Type + "-" + data.TokenString
				}
				b.add(log, cache.Objects, id, objClearance)
			default:
				switch obj.Type {
				case TypeDevToken:
					b.add(log, cache.DevTokens, roomKey, objClearance)
				case TypeKarmaFlower:
					b.add(log, cache.KarmaFlowers, roomKey, objClearance)
				default:
					b.add(log, cache.Objects, obj.Type, objClearance)
				}
			}
		}

		for _, effect := range rs.Effects {
			if creature, ok := effectCreatures[effect]; ok {
				b.add(log, cache.Creatures, creature, clearance)
			}
		}
	}

	for creature, chars := range scriptedCreatures[cache.Region] {
		cache.Creatures.Add(creature, chars.Intersect(playable))
	}

	log.Debug("Built accessibility cache",
		"objects", len(cache.Objects),
		"creatures", len(cache.Creatures),
		"shelters", len(cache.Shelters),
		"dev_tokens", len(cache.DevTokens),
		"karma_flowers", len(cache.KarmaFlowers),
		"rooms", len(cache.Rooms))
	return cache
}

func (b *Builder) add(log *slog.Logger, f Family[slugcat.Name], id string, chars slugcat.Characters) {
	if !ValidIdentity(id) {
		log.Warn("Skipping collectible with an identity the cache cannot store", "identity", id)
		return
	}
	f.Add(id, chars)
}
