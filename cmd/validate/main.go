package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/jwebster45206/slugrando/internal/config"
	"github.com/jwebster45206/slugrando/internal/worldsrc"
	"github.com/jwebster45206/slugrando/pkg/gatemap"
	"github.com/jwebster45206/slugrando/pkg/properties"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
	"github.com/jwebster45206/slugrando/pkg/worldfile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	roster, err := slugcat.LoadRoster(cfg.RosterFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	// Parser diagnostics are collected as validation errors, not logged.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := &WorldValidator{
		roster: roster,
		source: worldsrc.New(cfg.WorldDir, roster, quiet),
		log:    quiet,
	}

	ctx := context.Background()
	regions := os.Args[1:]
	if len(regions) == 0 {
		if regions, err = validator.source.Regions(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
	}

	failed := false
	if err := validator.validateGatemap(cfg.GatemapFile); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		failed = true
	}
	for _, region := range regions {
		if err := validator.validateRegion(ctx, strings.ToUpper(region)); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Printf("%d region(s) are valid!\n", len(regions))
}

type WorldValidator struct {
	roster *slugcat.Roster
	source *worldsrc.FS
	log    *slog.Logger
	errors []string
}

func (v *WorldValidator) validateGatemap(path string) error {
	def, err := gatemap.LoadDefinition(path)
	if err != nil {
		return fmt.Errorf("gate map: %w", err)
	}
	if _, err := gatemap.NewMap(def, v.roster); err != nil {
		return fmt.Errorf("gate map: %w", err)
	}
	return nil
}

func (v *WorldValidator) validateRegion(ctx context.Context, region string) error {
	fmt.Printf("Validating %s...\n", region)
	v.errors = nil

	text, err := v.source.WorldFile(ctx, region)
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return fmt.Errorf("region %s has no world file", region)
	}

	w, err := worldfile.Parse(region, bytes.NewReader(text), v.roster, v.log)
	if err != nil {
		return fmt.Errorf("failed to read world file for %s: %w", region, err)
	}
	v.validateWorld(w)

	base, perTimeline, err := v.source.Properties(ctx, region)
	if err != nil {
		return err
	}
	v.validateProperties(w, base, perTimeline)

	if _, err := v.source.RoomSettings(ctx, region); err != nil {
		v.addError(err.Error())
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", region, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) validateWorld(w *worldfile.World) {
	for _, warn := range w.Warnings {
		v.addError(fmt.Sprintf("line %d: %s: %q", warn.Line, warn.Reason, warn.Text))
	}

	declared := make(map[string]bool, len(w.Rooms))
	for _, room := range w.Rooms {
		v.validateRoomName("room", room.Name)
		declared[strings.ToUpper(room.Name)] = true
	}
	for _, room := range w.ExtraRooms {
		declared[strings.ToUpper(room)] = true
	}

	for _, link := range w.Links {
		if !declared[strings.ToUpper(link.Room)] {
			v.addError(fmt.Sprintf("line %d: %s names undeclared room %s", link.Line, link.Kind, link.Room))
		}
	}
	for _, den := range w.Dens {
		if strings.EqualFold(den.Room, "OFFSCREEN") {
			continue
		}
		if !declared[strings.ToUpper(den.Room)] {
			v.addError(fmt.Sprintf("line %d: creatures placed in undeclared room %s", den.Line, den.Room))
		}
	}
}

func (v *WorldValidator) validateProperties(w *worldfile.World, base []byte, perTimeline map[slugcat.Timeline][]byte) {
	shelters := make(map[string]bool)
	for _, room := range w.Rooms {
		if room.IsShelter() {
			shelters[strings.ToUpper(room.Name)] = true
		}
	}

	broken := properties.Merge(base, perTimeline, v.roster, v.log)
	for _, timeline := range broken.Timelines() {
		for _, room := range broken[timeline] {
			if !shelters[room] {
				v.addError(fmt.Sprintf("broken shelter %s for %s is not a shelter", room, timeline))
			}
		}
	}
}

func (v *WorldValidator) validateRoomName(fieldName, name string) {
	if !isValidRoomName(name) {
		v.addError(fmt.Sprintf("%s '%s' should look like REGION_NAME", fieldName, name))
	}
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validRoomRegex = regexp.MustCompile(`^[A-Za-z0-9]+_[A-Za-z0-9_\-]+$`)

func isValidRoomName(name string) bool {
	return validRoomRegex.MatchString(name)
}
