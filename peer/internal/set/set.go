// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package set provides a small generic set, used by the peer manager for
// the per-proof Pending-node sets and the dangling/invalidated proof memos.
package set

import "golang.org/x/exp/maps"

// The minimum capacity of a set.
const minSetSize = 16

// Set is a set of elements.
type Set[T comparable] map[T]struct{}

// NewSet returns a new set with initial capacity [size]. More or fewer than
// [size] elements can be added to this set.
func NewSet[T comparable](size int) Set[T] {
	if size < 0 {
		return Set[T]{}
	}
	return make(map[T]struct{}, size)
}

func (s *Set[T]) resize(size int) {
	if *s == nil {
		if minSetSize > size {
			size = minSetSize
		}
		*s = make(map[T]struct{}, size)
	}
}

// Add adds all the elements to this set. Adding an element already present
// is a no-op.
func (s *Set[T]) Add(elts ...T) {
	s.resize(2 * len(elts))
	for _, elt := range elts {
		(*s)[elt] = struct{}{}
	}
}

// Contains returns true iff the set contains this element.
func (s *Set[T]) Contains(elt T) bool {
	_, contains := (*s)[elt]
	return contains
}

// Len returns the number of elements in this set.
func (s Set[_]) Len() int {
	return len(s)
}

// List converts this set into a slice. Order is unspecified.
func (s Set[T]) List() []T {
	return maps.Keys(s)
}

// Remove removes [elts] from the set.
func (s *Set[T]) Remove(elts ...T) {
	for _, elt := range elts {
		delete(*s, elt)
	}
}
