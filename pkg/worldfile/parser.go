package worldfile

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

const maxLineBytes = 1 << 20

type section int

const (
	sectionNone section = iota
	sectionRooms
	sectionLinks
	sectionCreatures
)

type parser struct {
	roster *slugcat.Roster
	log    *slog.Logger
	world  *World
	extra  map[string]bool
}

// Parse reads a world file. Malformed lines are skipped and recorded in
// World.Warnings; the only error returned is a failure to read r.
func Parse(region string, r io.Reader, roster *slugcat.Roster, log *slog.Logger) (*World, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &parser{
		roster: roster,
		log:    log.With("region", region),
		world:  &World{Region: region},
		extra:  make(map[string]bool),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	current := sectionNone
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimSuffix(scanner.Text(), "\r"))
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch line {
		case markerRooms:
			current = sectionRooms
			continue
		case markerLinks:
			current = sectionLinks
			continue
		case markerCreatures:
			current = sectionCreatures
			continue
		case markerEndRooms, markerEndLinks, markerEndCreatures:
			current = sectionNone
			continue
		}

		switch current {
		case sectionRooms:
			p.parseRoom(line, lineNo)
		case sectionLinks:
			p.parseLink(line, lineNo)
		case sectionCreatures:
			p.parseCreatures(line, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read world file for %s: %w", region, err)
	}

	return p.world, nil
}

func (p *parser) warn(lineNo int, text, reason string) {
	p.world.Warnings = append(p.world.Warnings, Warning{Line: lineNo, Text: text, Reason: reason})
	p.log.Warn("Skipping malformed world file line", "line", lineNo, "text", text, "reason", reason)
}

func (p *parser) filter(raw string, lineNo int) slugcat.Filter {
	f := p.roster.ParseFilter(raw)
	if len(f.Unknown) > 0 {
		p.log.Debug("Ignoring unknown characters in filter", "line", lineNo, "names", f.Unknown)
	}
	return f
}

// parseRoom handles "NAME : CONN1, CONN2 : TAG ...". A leading "(A,B)" filter is
// stripped from the name and kept on the room; it is not applied to the connections.
func (p *parser) parseRoom(line string, lineNo int) {
	var roomFilter *slugcat.Filter
	raw, rest, ok := slugcat.SplitLeadingFilter(line)
	if ok {
		f := p.filter(raw, lineNo)
		roomFilter = &f
	}

	fields := strings.Split(rest, ":")
	if len(fields) < 2 {
		p.warn(lineNo, line, "room line has no connection list")
		return
	}
	name := strings.TrimSpace(fields[0])
	if name == "" {
		p.warn(lineNo, line, "room line has no room name")
		return
	}

	room := Room{Name: name, Filter: roomFilter, Line: lineNo}
	for _, conn := range strings.Split(fields[1], ",") {
		conn = strings.TrimSpace(conn)
		if conn == "" || conn == disconnectedRoomName {
			continue
		}
		if strings.ContainsAny(conn, " ()") {
			p.warn(lineNo, line, fmt.Sprintf("invalid connection %q", conn))
			continue
		}
		room.Connections = append(room.Connections, conn)
	}
	for _, tag := range fields[2:] {
		if tag = strings.TrimSpace(tag); tag != "" {
			room.Tags = append(room.Tags, tag)
		}
	}

	p.world.Rooms = append(p.world.Rooms, room)
}

// parseLink handles "FILTER : KIND : ARGS". Lines whose second field is not a known
// kind rewire connections and are outside the accessibility model.
func (p *parser) parseLink(line string, lineNo int) {
	fields := strings.Split(line, ":")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 {
		p.warn(lineNo, line, "conditional link needs at least three fields")
		return
	}

	f := p.filter(fields[0], lineNo)
	switch strings.ToUpper(fields[1]) {
	case "EXCLUSIVEROOM":
		p.addLink(ExclusiveRoom, f, fields[2], lineNo)
	case "HIDEROOM":
		p.addLink(HideRoom, f, fields[2], lineNo)
	case "REPLACEROOM":
		if len(fields) < 4 || fields[3] == "" {
			p.warn(lineNo, line, "REPLACEROOM needs an old and a new room")
			return
		}
		oldRoom, newRoom := fields[2], fields[3]
		p.addLink(HideRoom, f, oldRoom, lineNo)
		p.addLink(ExclusiveRoom, f, newRoom, lineNo)
		if !p.extra[newRoom] {
			p.extra[newRoom] = true
			p.world.ExtraRooms = append(p.world.ExtraRooms, newRoom)
		}
	default:
		p.log.Debug("Ignoring connection override", "line", lineNo, "text", line)
	}
}

func (p *parser) addLink(kind LinkKind, f slugcat.Filter, room string, lineNo int) {
	if room == "" {
		p.warn(lineNo, kind.String(), "conditional link has no target room")
		return
	}
	p.world.Links = append(p.world.Links, Link{Kind: kind, Filter: f, Room: room, Line: lineNo})
}

// parseCreatures handles den lines ("ROOM : 2-Type, 3-Type-4") and lineage lines
// ("LINEAGE : ROOM : DEN : Type-0.5, Type-0"), either optionally prefixed with a filter.
func (p *parser) parseCreatures(line string, lineNo int) {
	den := Den{Line: lineNo}
	raw, rest, ok := slugcat.SplitLeadingFilter(line)
	if ok {
		f := p.filter(raw, lineNo)
		den.Filter = &f
	}

	fields := strings.Split(rest, ":")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if strings.EqualFold(fields[0], "LINEAGE") {
		if len(fields) < 4 {
			p.warn(lineNo, line, "lineage line needs room, den and creature chain")
			return
		}
		den.Room = fields[1]
		den.Lineage = true
		first := strings.TrimSpace(strings.Split(fields[3], ",")[0])
		creature := creatureType(first)
		if creature == "" {
			p.warn(lineNo, line, "lineage chain has no creature")
			return
		}
		if !strings.EqualFold(creature, "NONE") {
			den.Creatures = []string{creature}
		}
		p.world.Dens = append(p.world.Dens, den)
		return
	}

	if len(fields) < 2 || fields[0] == "" {
		p.warn(lineNo, line, "creature line needs a room and den list")
		return
	}
	den.Room = fields[0]
	for _, entry := range strings.Split(fields[1], ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		creature, err := denCreature(entry)
		if err != nil {
			p.warn(lineNo, entry, err.Error())
			continue
		}
		if !strings.EqualFold(creature, "NONE") {
			den.Creatures = append(den.Creatures, creature)
		}
	}
	p.world.Dens = append(p.world.Dens, den)
}

// denCreature extracts the creature type from "DEN-TYPE[-COUNT|-{ATTRS}]".
func denCreature(entry string) (string, error) {
	denNo, rest, ok := strings.Cut(entry, "-")
	if !ok {
		return "", fmt.Errorf("den entry %q is not DEN-TYPE", entry)
	}
	if _, err := strconv.Atoi(strings.TrimSpace(denNo)); err != nil {
		return "", fmt.Errorf("den entry %q has non-numeric den %q", entry, denNo)
	}
	creature := creatureType(rest)
	if creature == "" {
		return "", fmt.Errorf("den entry %q has no creature type", entry)
	}
	return creature, nil
}

// creatureType strips count, chance and attribute suffixes from a creature token.
func creatureType(token string) string {
	name, _, _ := strings.Cut(token, "-")
	name, _, _ = strings.Cut(name, "{")
	return strings.TrimSpace(name)
}
