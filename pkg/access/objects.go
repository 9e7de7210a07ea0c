package access

import "github.com/jwebster45206/slugrando/pkg/slugcat"

// Object types the builder treats specially.
const (
	TypeDevToken    = "DevToken"
	TypeKarmaFlower = "KarmaFlower"
)

// ObjectData is the kind-specific payload of a placed object. The variants are
// TokenData, ConsumableData, DevTokenData and OpaqueData.
type ObjectData interface {
	// AvailableTo returns the object's own character restriction; nil means everyone.
	AvailableTo() slugcat.Characters
}

// TokenData belongs to collectible tokens and pearls.
type TokenData struct {
	TokenString        string
	AvailableToPlayers slugcat.Characters
}

func (d TokenData) AvailableTo() slugcat.Characters { return d.AvailableToPlayers }

// ConsumableData belongs to respawning consumables.
type ConsumableData struct {
	AvailableToPlayers slugcat.Characters
}

func (d ConsumableData) AvailableTo() slugcat.Characters { return d.AvailableToPlayers }

// DevTokenData belongs to developer commentary tokens.
type DevTokenData struct {
	AvailableToPlayers slugcat.Characters
}

func (d DevTokenData) AvailableTo() slugcat.Characters { return d.AvailableToPlayers }

// OpaqueData stands in for every kind the accessibility model does not inspect.
type OpaqueData struct{}

func (OpaqueData) AvailableTo() slugcat.Characters { return nil }

// PlacedObject is one object placed in a room's settings.
type PlacedObject struct {
	Type string
	Data ObjectData
}

// RoomSettings is the placement data of one room. Variant names the character an
// alternate settings file applies to; it is empty for the base settings.
type RoomSettings struct {
	Room    string
	Variant slugcat.Name
	Objects []PlacedObject
	Effects []string
}
