// Package access turns parsed world data into per-character accessibility records:
// which rooms, creatures, objects, shelters, dev tokens and karma flowers each
// character can reach in a region.
package access

import (
	"slices"
	"strings"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// Family maps an identity (object type, creature type or room name) to the set of
// characters or timelines allowed to reach it. Entries always carry at least one member.
type Family[T ~string] map[string]slugcat.Set[T]

// Add unions members into the identity's entry. Empty sets never create an entry.
func (f Family[T]) Add(id string, members slugcat.Set[T]) {
	if members.Empty() {
		return
	}
	existing, ok := f[id]
	if !ok {
		f[id] = members.Clone()
		return
	}
	for m := range members {
		existing.Add(m)
	}
}

// Remove takes a member out of an entry, dropping the entry once it is empty.
func (f Family[T]) Remove(id string, member T) {
	existing, ok := f[id]
	if !ok {
		return
	}
	existing.Remove(member)
	if existing.Empty() {
		delete(f, id)
	}
}

// Keys returns the identities in sorted order.
func (f Family[T]) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (f Family[T]) Equal(o Family[T]) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		if !v.Equal(o[k]) {
			return false
		}
	}
	return true
}

// Cache is the per-region accessibility aggregate and the unit of persistence.
type Cache struct {
	Region       string
	Objects      Family[slugcat.Name]
	Creatures    Family[slugcat.Name]
	Shelters     Family[slugcat.Timeline]
	DevTokens    Family[slugcat.Name] // keyed by room name
	KarmaFlowers Family[slugcat.Name] // keyed by room name
	Rooms        Family[slugcat.Name] // keyed by lowercase room name
}

// NewCache returns an empty cache for the region.
func NewCache(region string) *Cache {
	return &Cache{
		Region:       strings.ToUpper(region),
		Objects:      make(Family[slugcat.Name]),
		Creatures:    make(Family[slugcat.Name]),
		Shelters:     make(Family[slugcat.Timeline]),
		DevTokens:    make(Family[slugcat.Name]),
		KarmaFlowers: make(Family[slugcat.Name]),
		Rooms:        make(Family[slugcat.Name]),
	}
}

// Equal compares every family by value.
func (c *Cache) Equal(o *Cache) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Objects.Equal(o.Objects) &&
		c.Creatures.Equal(o.Creatures) &&
		c.Shelters.Equal(o.Shelters) &&
		c.DevTokens.Equal(o.DevTokens) &&
		c.KarmaFlowers.Equal(o.KarmaFlowers) &&
		c.Rooms.Equal(o.Rooms)
}

// RoomAccess returns the characters allowed into a room. Unknown rooms yield nil.
func (c *Cache) RoomAccess(room string) slugcat.Characters {
	return c.Rooms[strings.ToLower(room)]
}
