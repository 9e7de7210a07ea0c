// Command report prints which regions a character can reach with a given set of gate
// keys, and how much of each reachable region's content is open to that character.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/logger"
	"github.com/jwebster45206/slugrando/internal/storage"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/gatemap"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/tokencache"
)

func main() {
	characterFlag := flag.String("character", "", "Character to report on (default: every playable character)")
	keysFlag := flag.String("keys", "", "Comma-separated gate keys held")
	optionsFlag := flag.String("options", "", "Comma-separated session options enabled")
	startFlag := flag.String("start", "", "Start region (default: START_REGION)")
	widthFlag := flag.Int("width", 80, "Wrap width")
	allKeysFlag := flag.Bool("all-keys", false, "Hold every gate key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	log := logger.Setup(cfg)

	roster, err := slugcat.LoadRoster(cfg.RosterFile)
	if err != nil {
		log.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}
	def, err := gatemap.LoadDefinition(cfg.GatemapFile)
	if err != nil {
		log.Error("Failed to load gate map", "error", err)
		os.Exit(1)
	}
	gates, err := gatemap.NewMap(def, roster)
	if err != nil {
		log.Error("Invalid gate map", "error", err)
		os.Exit(1)
	}
	backend, err := storage.FromConfig(cfg, log)
	if err != nil {
		log.Error("Failed to open cache backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	store := tokencache.New(roster, worldsrc.New(cfg.WorldDir, roster, log), backend, log)

	characters := roster.Playable().Sorted()
	if *characterFlag != "" {
		n, err := roster.ParseName(*characterFlag)
		if err != nil {
			log.Error("Unknown character", "character", *characterFlag)
			os.Exit(1)
		}
		characters = []slugcat.Name{n}
	}

	keys := splitList(*keysFlag)
	if *allKeysFlag {
		keys = nil
		for _, e := range def.Edges {
			keys = append(keys, e.Key)
		}
	}
	start := *startFlag
	if start == "" {
		start = cfg.StartRegion
	}

	b := &builder{roster: roster, gates: gates, store: store}
	state := gatemap.NewState(keys, splitList(*optionsFlag))
	ctx := context.Background()
	for _, character := range characters {
		r, err := b.build(ctx, state, character, start)
		if err != nil {
			log.Error("Failed to build report", "character", character, "error", err)
			os.Exit(1)
		}
		render(os.Stdout, r, *widthFlag)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RegionLine summarizes one reachable region for the character.
type RegionLine struct {
	Code        string
	Name        string
	Warp        bool // reached only through a warp
	Rooms       int
	Shelters    int
	Collectible int
}

// Report is everything printed for one character.
type Report struct {
	Character slugcat.Name
	Start     string
	Passes    int
	Regions   []RegionLine
	Meta      []string
	Locked    []string // gates of the character's graph that are closed both ways
}

type builder struct {
	roster *slugcat.Roster
	gates  *gatemap.Map
	store  *tokencache.Store
}

func (b *builder) build(ctx context.Context, state gatemap.State, character slugcat.Name, start string) (*Report, error) {
	res, err := b.gates.ReachableNodes(state, character, start)
	if err != nil {
		return nil, err
	}
	timeline, _ := b.roster.TimelineOf(character)

	r := &Report{Character: character, Start: start, Passes: res.Passes}
	plain := make(map[string]bool)
	for _, code := range res.Regions() {
		plain[code] = true
	}
	codes := res.Regions()
	for _, code := range res.Starred() {
		if !plain[code] {
			codes = append(codes, code)
		}
	}

	for _, code := range codes {
		reg, ok := b.roster.Region(code)
		if !ok {
			r.Meta = append(r.Meta, code)
			continue
		}
		line := RegionLine{Code: code, Name: reg.DisplayName(), Warp: !plain[code]}

		c, err := b.store.BuildOrLoad(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", code, err)
		}
		for _, chars := range c.Rooms {
			if chars.Has(character) {
				line.Rooms++
			}
		}
		for _, timelines := range c.Shelters {
			if timelines.Has(timeline) {
				line.Shelters++
			}
		}
		for _, chars := range c.Objects {
			if chars.Has(character) {
				line.Collectible++
			}
		}
		r.Regions = append(r.Regions, line)
	}

	for _, e := range b.gates.Graph(character).Edges {
		if !b.gates.GateUsable(state, e.Name, character).Any() {
			r.Locked = append(r.Locked, e.Name)
		}
	}
	return r, nil
}

func render(w io.Writer, r *Report, width int) {
	fmt.Fprintln(w, renderReport(r, width))
}
