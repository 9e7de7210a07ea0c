package slugcat

import (
	"slices"
	"strings"
)

// Set is a value-comparable set of names. The nil Set is empty and safe to read.
type Set[T ~string] map[T]struct{}

// NewSet returns a set holding the given values.
func NewSet[T ~string](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Remove(v T) {
	delete(s, v)
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) Empty() bool {
	return len(s) == 0
}

// Clone returns an independent copy. Cloning a nil set yields an empty, non-nil set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Union returns a new set with the members of both sets.
func (s Set[T]) Union(o Set[T]) Set[T] {
	out := s.Clone()
	for v := range o {
		out[v] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members present in both sets.
func (s Set[T]) Intersect(o Set[T]) Set[T] {
	out := make(Set[T])
	for v := range s {
		if o.Has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Minus returns a new set with the members of s that are not in o.
func (s Set[T]) Minus(o Set[T]) Set[T] {
	out := make(Set[T])
	for v := range s {
		if !o.Has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for v := range s {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// String renders the set the way the cache file stores it: "A|B|C".
func (s Set[T]) String() string {
	parts := make([]string, 0, len(s))
	for _, v := range s.Sorted() {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, "|")
}
