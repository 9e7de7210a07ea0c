package properties

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const baseProperties = `Palette: 3
Broken Shelters: White: SU_S01, su_s02
Broken Shelters: Spear: SU_S03
Broken Shelters: Watcher: SU_S04
Broken Shelters no separator
Room_Attr: SU_A01: Glow
`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(baseProperties), slugcat.DefaultRoster(), testLogger())
	require.NoError(t, err)

	assert.Equal(t, []slugcat.Timeline{"Spear", "White"}, b.Timelines())
	assert.Equal(t, []string{"SU_S01", "SU_S02"}, b["White"])
	assert.Equal(t, []string{"SU_S03"}, b["Spear"])
}

func TestParse_Empty(t *testing.T) {
	b, err := Parse(nil, slugcat.DefaultRoster(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, b)

	b, err = Parse([]byte("Palette: 3\n"), slugcat.DefaultRoster(), testLogger())
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestMerge_TimelineFileReplacesBase(t *testing.T) {
	overrides := map[slugcat.Timeline][]byte{
		// Replaces White's base list; the Spear line here is ignored.
		"White": []byte("Broken Shelters: White: SU_S09\nBroken Shelters: Spear: SU_S08\n"),
		// No declarations: base Spear list stays.
		"Spear": []byte("Palette: 5\n"),
		// Declares only another timeline: Saint ends up with nothing from this file.
		"Saint": []byte("Broken Shelters: Red: SU_S07\n"),
	}

	b := Merge([]byte(baseProperties), overrides, slugcat.DefaultRoster(), testLogger())

	assert.Equal(t, []string{"SU_S09"}, b["White"])
	assert.Equal(t, []string{"SU_S03"}, b["Spear"])
	assert.NotContains(t, b, slugcat.Timeline("Saint"))
	assert.NotContains(t, b, slugcat.Timeline("Red"))
}

func TestApply(t *testing.T) {
	shelters := make(access.Family[slugcat.Timeline])
	shelters.Add("SU_S01", slugcat.NewSet[slugcat.Timeline]("White", "Spear"))
	shelters.Add("SU_S02", slugcat.NewSet[slugcat.Timeline]("White"))
	shelters.Add("SU_S05", slugcat.NewSet[slugcat.Timeline]("White"))

	BrokenShelters{"White": {"su_s01", "SU_S02"}}.Apply(shelters)

	assert.Equal(t, []slugcat.Timeline{"Spear"}, shelters["SU_S01"].Sorted())
	assert.NotContains(t, shelters, "SU_S02", "a shelter broken in every timeline is dropped")
	assert.Contains(t, shelters, "SU_S05")
}
