// Package grouping implements the single-pass group-then-reduce used to turn
// flat comment and message records into threads and conversation summaries.
package grouping

// Groups holds reduced values keyed by group, in first-seen key order.
type Groups[K comparable, A any] struct {
	keys   []K
	values map[K]A
}

// GroupBy walks items once. For each item, reduce receives the group's
// current accumulator (the zero value on first sight, with first=true) and
// returns the new accumulator.
func GroupBy[T any, K comparable, A any](items []T, key func(T) K, reduce func(acc A, item T, first bool) A) *Groups[K, A] {
	g := &Groups[K, A]{values: make(map[K]A)}
	for _, item := range items {
		k := key(item)
		acc, seen := g.values[k]
		if !seen {
			g.keys = append(g.keys, k)
		}
		g.values[k] = reduce(acc, item, !seen)
	}
	return g
}

// Keys returns group keys in the order each was first seen.
func (g *Groups[K, A]) Keys() []K {
	return g.keys
}

// Get returns the accumulator for k.
func (g *Groups[K, A]) Get(k K) (A, bool) {
	v, ok := g.values[k]
	return v, ok
}

// Values returns accumulators in first-seen key order.
func (g *Groups[K, A]) Values() []A {
	out := make([]A, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.values[k])
	}
	return out
}

// Len returns the number of groups.
func (g *Groups[K, A]) Len() int {
	return len(g.keys)
}
