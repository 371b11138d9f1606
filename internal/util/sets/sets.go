// Package sets holds a generic set used for de-duplication.
package sets

// Set is a hash set of comparable keys.
type Set[T comparable] map[T]struct{}

// New returns a set holding vals.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has reports whether v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Insert adds v and reports whether it was absent.
func (s Set[T]) Insert(v T) bool {
	if s.Has(v) {
		return false
	}
	s.Add(v)
	return true
}

// Unique returns vals without repeats, keeping first occurrences in order.
func Unique[T comparable](vals []T) []T {
	seen := make(Set[T], len(vals))
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if seen.Insert(v) {
			out = append(out, v)
		}
	}
	return out
}
