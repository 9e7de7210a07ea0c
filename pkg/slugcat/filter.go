package slugcat

import (
	"strings"
)

// Filter is a character filter as written in world files: "White,Yellow",
// "(White,Yellow)" or "X-Saint" meaning everyone except Saint.
type Filter struct {
	Names   Characters
	Except  bool
	Unknown []string // names the roster did not recognise
}

// Resolve expands the filter against the given universe of characters.
func (f Filter) Resolve(all Characters) Characters {
	if f.Except {
		return all.Minus(f.Names)
	}
	return f.Names.Intersect(all)
}

// Matches reports whether the filter admits the character.
func (f Filter) Matches(n Name) bool {
	if f.Except {
		return !f.Names.Has(n)
	}
	return f.Names.Has(n)
}

func (f Filter) String() string {
	if f.Except {
		return "X-" + strings.ReplaceAll(f.Names.String(), "|", ",")
	}
	return strings.ReplaceAll(f.Names.String(), "|", ",")
}

// ParseFilter parses a character filter. Unrecognised names are collected in
// Filter.Unknown rather than failing, since world files routinely mention characters
// from mods that are not installed.
func (r *Roster) ParseFilter(raw string) Filter {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	f := Filter{Names: make(Characters)}
	if strings.HasPrefix(s, "X-") {
		f.Except = true
		s = strings.TrimPrefix(s, "X-")
		s = strings.TrimPrefix(s, "(")
		s = strings.TrimSuffix(s, ")")
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, err := r.ParseName(part)
		if err != nil {
			f.Unknown = append(f.Unknown, part)
			continue
		}
		f.Names.Add(name)
	}
	return f
}

// SplitLeadingFilter separates a "(A,B)REST" prefix from the rest of a line.
// ok is false when the line does not start with a parenthesised filter.
func SplitLeadingFilter(line string) (filter, rest string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "(") {
		return "", trimmed, false
	}
	end := strings.Index(trimmed, ")")
	if end < 0 {
		return "", trimmed, false
	}
	return trimmed[1:end], strings.TrimSpace(trimmed[end+1:]), true
}
