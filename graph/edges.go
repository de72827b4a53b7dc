package graph

import "sort"

// EdgeSet is a set of directed edges. Order and multiplicity are irrelevant.
type EdgeSet map[Edge]struct{}

// NewEdgeSet builds a set from the given edges, collapsing duplicates.
func NewEdgeSet(edges ...Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s.Add(e)
	}
	return s
}

// Add inserts e into the set.
func (s EdgeSet) Add(e Edge) {
	s[e] = struct{}{}
}

// Has reports whether e is in the set.
func (s EdgeSet) Has(e Edge) bool {
	_, ok := s[e]
	return ok
}

// Len returns the number of distinct edges.
func (s EdgeSet) Len() int {
	return len(s)
}

// IntersectLen returns |s ∩ other|.
func (s EdgeSet) IntersectLen(other EdgeSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for e := range small {
		if large.Has(e) {
			n++
		}
	}
	return n
}

// Equal reports whether both sets contain exactly the same edges.
func (s EdgeSet) Equal(other EdgeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for e := range s {
		if !other.Has(e) {
			return false
		}
	}
	return true
}

// Sorted returns the edges ordered by (source, target).
func (s EdgeSet) Sorted() []Edge {
	out := make([]Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}
