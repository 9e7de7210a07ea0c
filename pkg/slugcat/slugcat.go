// Package slugcat models the playable characters, the story timelines they belong to,
// and the character filters used throughout the world definition files.
package slugcat

import "errors"

// Name identifies a character. Names are compared by value; the roster decides which
// names are valid for a session.
type Name string

// Timeline groups characters that share the same story continuity.
type Timeline string

// Built-in character names. Mods may register more through the roster file.
const (
	White     Name = "White"
	Yellow    Name = "Yellow"
	Red       Name = "Red"
	Gourmand  Name = "Gourmand"
	Artificer Name = "Artificer"
	Rivulet   Name = "Rivulet"
	Spear     Name = "Spear"
	Saint     Name = "Saint"
	Inv       Name = "Inv"

	// Night is the non-playable meta-character. It is never granted access by default.
	Night Name = "Night"
)

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrUnknownTimeline  = errors.New("unknown timeline")
)

func (n Name) String() string {
	return string(n)
}

func (t Timeline) String() string {
	return string(t)
}

// Characters is a set of character names.
type Characters = Set[Name]

// Timelines is a set of timelines.
type Timelines = Set[Timeline]
