// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lattice

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// BitSet is a set of bits
type BitSet map[Bit]struct{}

// NewBitSet returns a set containing bits
func NewBitSet(bits ...Bit) BitSet {
	s := make(BitSet, len(bits))
	for _, b := range bits {
		s[b] = struct{}{}
	}
	return s
}

// Add adds bits to the set
func (s BitSet) Add(bits ...Bit) {
	for _, b := range bits {
		s[b] = struct{}{}
	}
}

// AddAll adds all the bits of o to s
func (s BitSet) AddAll(o BitSet) {
	for b := range o {
		s[b] = struct{}{}
	}
}

// Has returns true if b is in the set
func (s BitSet) Has(b Bit) bool {
	_, ok := s[b]
	return ok
}

// Len returns the size of the set
func (s BitSet) Len() int {
	return len(s)
}

// Sorted returns the elements of the set in increasing order
func (s BitSet) Sorted() []Bit {
	bits := maps.Keys(s)
	slices.Sort(bits)
	return bits
}

// Clone returns a copy of the set
func (s BitSet) Clone() BitSet {
	c := make(BitSet, len(s))
	c.AddAll(s)
	return c
}

// Union returns a new set with the elements of all sets
func Union(sets ...BitSet) BitSet {
	u := BitSet{}
	for _, s := range sets {
		u.AddAll(s)
	}
	return u
}

// Equal returns true if both sets have the same elements
func (s BitSet) Equal(o BitSet) bool {
	if len(s) != len(o) {
		return false
	}
	for b := range s {
		if !o.Has(b) {
			return false
		}
	}
	return true
}
