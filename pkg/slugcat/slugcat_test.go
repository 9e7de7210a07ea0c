package slugcat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOperations(t *testing.T) {
	a := NewSet(White, Yellow, Red)
	b := NewSet(Red, Saint)

	assert.Equal(t, []Name{Red, Saint, White, Yellow}, a.Union(b).Sorted())
	assert.Equal(t, []Name{Red}, a.Intersect(b).Sorted())
	assert.Equal(t, []Name{White, Yellow}, a.Minus(b).Sorted())
	assert.Equal(t, "Red|White|Yellow", a.String())
	assert.True(t, a.Equal(NewSet(Yellow, Red, White)))
	assert.False(t, a.Equal(b))

	var empty Characters
	assert.True(t, empty.Empty())
	assert.False(t, empty.Has(White))
	assert.NotNil(t, empty.Clone())
}

func TestParseFilter(t *testing.T) {
	r := DefaultRoster()
	all := r.Playable()

	tests := []struct {
		name     string
		raw      string
		expected []Name
		except   bool
		unknown  []string
	}{
		{name: "comma list", raw: "White,Yellow", expected: []Name{White, Yellow}},
		{name: "parenthesised", raw: "(Spear, Saint)", expected: []Name{Saint, Spear}},
		{name: "inverted", raw: "X-Saint", expected: []Name{Artificer, Gourmand, Inv, Red, Rivulet, Spear, White, Yellow}, except: true},
		{name: "inverted parenthesised", raw: "X-(Saint,Inv)", expected: []Name{Artificer, Gourmand, Red, Rivulet, Spear, White, Yellow}, except: true},
		{name: "case insensitive", raw: "white", expected: []Name{White}},
		{name: "unknown names collected", raw: "White,Watcher", expected: []Name{White}, unknown: []string{"Watcher"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := r.ParseFilter(tt.raw)
			assert.Equal(t, tt.except, f.Except)
			assert.Equal(t, tt.expected, f.Resolve(all).Sorted())
			assert.Equal(t, tt.unknown, f.Unknown)
		})
	}
}

func TestSplitLeadingFilter(t *testing.T) {
	filter, rest, ok := SplitLeadingFilter("(White,Yellow)SU_A01 : 2-Small Centipede")
	require.True(t, ok)
	assert.Equal(t, "White,Yellow", filter)
	assert.Equal(t, "SU_A01 : 2-Small Centipede", rest)

	_, rest, ok = SplitLeadingFilter("SU_A01 : SU_A02")
	assert.False(t, ok)
	assert.Equal(t, "SU_A01 : SU_A02", rest)
}

func TestDefaultRoster(t *testing.T) {
	r := DefaultRoster()

	assert.False(t, r.Playable().Has(Night), "Night must not be playable")
	assert.True(t, r.All().Has(Night))

	name, err := r.ParseName("ARTIFICER")
	require.NoError(t, err)
	assert.Equal(t, Artificer, name)

	_, err = r.ParseName("Watcher")
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	tl, ok := r.TimelineOf(Inv)
	require.True(t, ok)
	assert.Equal(t, Timeline("Saint"), tl)
	assert.Equal(t, []Timeline{"Saint"}, r.TimelinesOf(NewSet(Saint, Inv)).Sorted())

	assert.Equal(t, "LM", r.SubstituteFor("SL", Spear))
	assert.Equal(t, "SL", r.SubstituteFor("SL", White))
	assert.Equal(t, "XX", r.SubstituteFor("XX", White))

	reg, ok := r.Region("su")
	require.True(t, ok)
	assert.Equal(t, "Outskirts", reg.DisplayName())
}

func TestParseRoster_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "characters: []"},
		{name: "duplicate", yaml: "characters:\n  - {name: White}\n  - {name: white}"},
		{name: "reserved character", yaml: "characters:\n  - {name: 'Wh|ite'}"},
		{name: "invalid yaml", yaml: "characters: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoster([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
