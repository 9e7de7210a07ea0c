// Package properties reads region properties files and applies the overrides that
// affect accessibility. Only "Broken Shelters: TIMELINE: ROOM, ROOM" is consumed.
package properties

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

const keyBrokenShelters = "Broken Shelters"

var loadOptions = ini.LoadOptions{
	AllowShadows:            true,
	SkipUnrecognizableLines: true,
	IgnoreInlineComment:     true,
	KeyValueDelimiters:      ":",
}

// BrokenShelters lists, per timeline, the shelters that do not work in that timeline.
type BrokenShelters map[slugcat.Timeline][]string

// Parse extracts the broken shelter declarations from one properties file.
// Declarations naming unknown timelines are skipped with a warning.
func Parse(data []byte, roster *slugcat.Roster, log *slog.Logger) (BrokenShelters, error) {
	if log == nil {
		log = slog.Default()
	}
	out := make(BrokenShelters)
	if len(data) == 0 {
		return out, nil
	}

	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	sec := cfg.Section(ini.DefaultSection)
	if !sec.HasKey(keyBrokenShelters) {
		return out, nil
	}

	for _, value := range sec.Key(keyBrokenShelters).ValueWithShadows() {
		rawTimeline, rooms, ok := strings.Cut(value, ":")
		if !ok {
			log.Warn("Skipping malformed broken shelter declaration", "value", value)
			continue
		}
		timeline, err := roster.ParseTimeline(rawTimeline)
		if err != nil {
			log.Warn("Skipping broken shelter declaration for unknown timeline", "timeline", strings.TrimSpace(rawTimeline))
			continue
		}
		for _, room := range strings.Split(rooms, ",") {
			if room = strings.TrimSpace(room); room != "" {
				out[timeline] = append(out[timeline], strings.ToUpper(room))
			}
		}
	}
	return out, nil
}

// Merge combines a region's base properties with its per-timeline files. A timeline
// file that declares broken shelters at all replaces the base declarations for its own
// timeline; declarations it makes for other timelines are ignored.
func Merge(base []byte, perTimeline map[slugcat.Timeline][]byte, roster *slugcat.Roster, log *slog.Logger) BrokenShelters {
	if log == nil {
		log = slog.Default()
	}

	merged, err := Parse(base, roster, log)
	if err != nil {
		log.Warn("Ignoring unreadable base properties file", "error", err)
		merged = make(BrokenShelters)
	}

	for timeline, data := range perTimeline {
		override, err := Parse(data, roster, log)
		if err != nil {
			log.Warn("Ignoring unreadable timeline properties file", "timeline", timeline, "error", err)
			continue
		}
		if len(override) == 0 {
			continue
		}
		for other := range override {
			if other != timeline {
				log.Debug("Ignoring broken shelters declared for another timeline", "file_timeline", timeline, "timeline", other)
			}
		}
		if rooms, ok := override[timeline]; ok {
			merged[timeline] = rooms
		} else {
			delete(merged, timeline)
		}
	}
	return merged
}

// Apply removes each broken shelter's timeline from the shelter family. Shelters left
// with no timeline are dropped.
func (b BrokenShelters) Apply(shelters access.Family[slugcat.Timeline]) {
	for timeline, rooms := range b {
		for _, room := range rooms {
			shelters.Remove(strings.ToUpper(room), timeline)
		}
	}
}

// Timelines returns the timelines with declarations, sorted.
func (b BrokenShelters) Timelines() []slugcat.Timeline {
	out := make([]slugcat.Timeline, 0, len(b))
	for t := range b {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
