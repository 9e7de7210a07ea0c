// Package tokencache persists per-region accessibility caches and serves them through a
// memoized Store that loads from a backend or rebuilds from world data.
package tokencache

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// sectionCount is the number of newline-terminated lines in a region cache file:
// objects, creatures, shelters, dev tokens, karma flowers, rooms.
const sectionCount = 6

var (
	// ErrMalformedCache marks cache data that cannot be trusted and must be rebuilt.
	ErrMalformedCache = errors.New("malformed cache")
	// ErrNotCached is returned by backends when a region has no stored cache.
	ErrNotCached = errors.New("region not cached")
	// ErrInvalidIdentity is returned when an identity cannot be written.
	ErrInvalidIdentity = errors.New("identity contains a reserved character")
)

// Marshal renders a cache in the six-line text format. Entries without members are
// omitted, and entries within a line are sorted by identity.
func Marshal(c *access.Cache) ([]byte, error) {
	var buf bytes.Buffer
	lines := []func() error{
		func() error { return writeFamily(&buf, c.Objects) },
		func() error { return writeFamily(&buf, c.Creatures) },
		func() error { return writeFamily(&buf, c.Shelters) },
		func() error { return writeFamily(&buf, c.DevTokens) },
		func() error { return writeFamily(&buf, c.KarmaFlowers) },
		func() error { return writeFamily(&buf, lowerKeys(c.Rooms)) },
	}
	for _, write := range lines {
		if err := write(); err != nil {
			return nil, fmt.Errorf("failed to marshal cache for %s: %w", c.Region, err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func writeFamily[T ~string](buf *bytes.Buffer, f access.Family[T]) error {
	first := true
	for _, id := range f.Keys() {
		members := f[id]
		if members.Empty() {
			continue
		}
		if !access.ValidIdentity(id) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(id)
		buf.WriteByte('~')
		buf.WriteString(members.String())
	}
	return nil
}

func lowerKeys(f access.Family[slugcat.Name]) access.Family[slugcat.Name] {
	out := make(access.Family[slugcat.Name], len(f))
	for k, v := range f {
		out.Add(strings.ToLower(k), v)
	}
	return out
}

// Unmarshal parses a region cache file. Character and timeline names must be known to
// the roster; a file that names anything else is stale and reported as malformed.
// Entries with an empty member list are dropped rather than kept as empty entries.
func Unmarshal(region string, data []byte, roster *slugcat.Roster) (*access.Cache, error) {
	errb := oops.In("tokencache").With("region", region)

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasSuffix(text, "\n") {
		return nil, errb.Wrapf(ErrMalformedCache, "cache is not newline terminated")
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != sectionCount {
		return nil, errb.Wrapf(ErrMalformedCache, "expected %d lines, found %d", sectionCount, len(lines))
	}

	c := access.NewCache(region)
	nameFamilies := map[int]access.Family[slugcat.Name]{
		0: c.Objects,
		1: c.Creatures,
		3: c.DevTokens,
		4: c.KarmaFlowers,
		5: c.Rooms,
	}
	for i, line := range lines {
		var err error
		if i == 2 {
			err = readFamily(line, c.Shelters, roster.ParseTimeline)
		} else {
			err = readFamily(line, nameFamilies[i], roster.ParseName)
		}
		if err != nil {
			return nil, errb.With("line", i+1).Wrapf(err, "line %d", i+1)
		}
	}

	// Room keys are stored lowercase; normalise anything written by hand.
	c.Rooms = lowerKeys(c.Rooms)
	return c, nil
}

func readFamily[T ~string](line string, f access.Family[T], parse func(string) (T, error)) error {
	if line == "" {
		return nil
	}
	for _, entry := range strings.Split(line, ",") {
		id, rawMembers, ok := strings.Cut(entry, "~")
		if !ok || !access.ValidIdentity(id) || strings.Contains(rawMembers, "~") {
			return fmt.Errorf("%w: entry %q is not IDENTITY~MEMBERS", ErrMalformedCache, entry)
		}
		members := make(slugcat.Set[T])
		for _, raw := range strings.Split(rawMembers, "|") {
			if raw == "" {
				continue
			}
			m, err := parse(raw)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedCache, err)
			}
			members.Add(m)
		}
		f.Add(id, members)
	}
	return nil
}
