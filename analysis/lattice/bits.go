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
	"fmt"
	"math"
	"sort"
)

// B is the abstract value of a single bit.
type B uint8

const (
	// X means the bit has not been evaluated yet. It is the bottom of the lattice.
	X B = iota
	// Zero is the constant bit 0
	Zero
	// One is the constant bit 1
	One
	// E marks a bit that might not be present
	E
	// U is an unknown bit, it can be 0 or 1
	U
	// N is a bit that is either unknown or not present
	N
	// S is a star bit: it stands for an unbounded sequence of unknown bits
	S
)

// Level returns the height of b in the bit lattice
func (b B) Level() int {
	switch b {
	case X:
		return 0
	case Zero, One, E:
		return 1
	case U:
		return 2
	case N:
		return 3
	default:
		return 4
	}
}

// Leq returns true if b is lower or equal to o in the bit lattice
func (b B) Leq(o B) bool {
	return b == o || b.Level() < o.Level()
}

// IsConstant returns true for the constant bits 0 and 1
func (b B) IsConstant() bool {
	return b == Zero || b == One
}

// IsAtLeastUnknown returns true if the bit's value is not known at analysis time
func (b B) IsAtLeastUnknown() bool {
	return b.Level() >= U.Level()
}

func (b B) String() string {
	switch b {
	case X:
		return "x"
	case Zero:
		return "0"
	case One:
		return "1"
	case E:
		return "e"
	case U:
		return "u"
	case N:
		return "n"
	case S:
		return "s"
	}
	return "?"
}

// ParseB parses the textual representation of a bit value
func ParseB(s string) (B, error) {
	switch s {
	case "x":
		return X, nil
	case "0":
		return Zero, nil
	case "1":
		return One, nil
	case "e":
		return E, nil
	case "u", "":
		return U, nil
	case "n":
		return N, nil
	case "s", "*":
		return S, nil
	}
	return X, fmt.Errorf("unknown bit value %q", s)
}

// Bit is the identifier of a bit in an Arena. The zero value is the null bit.
type Bit int32

// NoBit is the null bit
const NoBit Bit = 0

func (b Bit) String() string {
	return fmt.Sprintf("b%d", int32(b))
}

// Infinity is the weight of bits that can never be part of a cut
var Infinity = math.Inf(1)

// IsInfinite returns true if w is the infinite weight
func IsInfinite(w float64) bool {
	return math.IsInf(w, 1)
}

type bitData struct {
	val       B
	deps      []Bit
	weight    float64
	hasWeight bool
	input     bool
	sec       Sec
	interval  int // 1-based index in Arena.intervals, 0 if none
	tag       string
}

// An Arena owns all the bits of an analysis. Bits are never deleted; cloning allocates new slots.
// An Arena is not safe for concurrent use.
type Arena struct {
	bits      []bitData
	intervals []Interval
}

// NewArena returns an empty arena. The slot 0 is reserved for NoBit.
func NewArena() *Arena {
	return &Arena{bits: make([]bitData, 1, 1024)}
}

// Len returns the number of bits allocated in the arena, the null bit included.
func (a *Arena) Len() int {
	return len(a.bits)
}

func (a *Arena) data(b Bit) *bitData {
	if b <= NoBit || int(b) >= len(a.bits) {
		panic(fmt.Errorf("invalid bit %s (arena has %d bits)", b, len(a.bits)))
	}
	return &a.bits[b]
}

// Valid returns true if b is a non-null bit of the arena
func (a *Arena) Valid(b Bit) bool {
	return b > NoBit && int(b) < len(a.bits)
}

// New allocates a new bit with value val and dependencies deps. Constant bits have no dependencies.
func (a *Arena) New(val B, deps ...Bit) Bit {
	id := Bit(len(a.bits))
	a.bits = append(a.bits, bitData{val: val})
	if val.IsAtLeastUnknown() {
		a.SetDeps(id, deps...)
	}
	return id
}

// Val returns the value of bit b
func (a *Arena) Val(b Bit) B {
	return a.data(b).val
}

// SetVal sets the value of bit b
func (a *Arena) SetVal(b Bit, v B) {
	a.data(b).val = v
}

// IsConstant returns true if b is a constant bit
func (a *Arena) IsConstant(b Bit) bool {
	return a.data(b).val.IsConstant()
}

// Deps returns the sorted dependencies of b. The returned slice must not be modified.
func (a *Arena) Deps(b Bit) []Bit {
	return a.data(b).deps
}

// HasDeps returns true if b depends on at least one bit
func (a *Arena) HasDeps(b Bit) bool {
	return len(a.data(b).deps) > 0
}

// DependsOn returns true if d is a direct dependency of b
func (a *Arena) DependsOn(b Bit, d Bit) bool {
	deps := a.data(b).deps
	i := sort.Search(len(deps), func(i int) bool { return deps[i] >= d })
	return i < len(deps) && deps[i] == d
}

// SetDeps replaces the dependencies of b
func (a *Arena) SetDeps(b Bit, deps ...Bit) {
	for _, d := range deps {
		a.data(d)
	}
	a.data(b).deps = normalize(deps)
}

// AddDeps adds dependencies to b
func (a *Arena) AddDeps(b Bit, deps ...Bit) {
	cur := a.data(b).deps
	a.SetDeps(b, append(append([]Bit{}, cur...), deps...)...)
}

// MapDeps rewrites the dependencies of b through f. Dependencies mapped to NoBit are dropped.
func (a *Arena) MapDeps(b Bit, f func(Bit) Bit) {
	cur := a.data(b).deps
	next := make([]Bit, 0, len(cur))
	for _, d := range cur {
		if m := f(d); m != NoBit {
			next = append(next, m)
		}
	}
	a.SetDeps(b, next...)
}

// Weight returns the weight of a bit: its explicit weight if one was set, infinity for star bits, at least
// log2(3) for N bits and 1 otherwise.
func (a *Arena) Weight(b Bit) float64 {
	d := a.data(b)
	w := 1.0
	if d.hasWeight {
		w = d.weight
	}
	switch d.val {
	case S:
		return Infinity
	case N:
		return math.Max(math.Log2(3), w)
	}
	return w
}

// SetWeight sets the weight of bit b
func (a *Arena) SetWeight(b Bit, w float64) {
	d := a.data(b)
	d.weight = w
	d.hasWeight = true
}

// MarkInput marks b as an input bit with security level sec
func (a *Arena) MarkInput(b Bit, sec Sec) {
	d := a.data(b)
	d.input = true
	d.sec = sec
}

// InputLevel returns the security level of an input bit, and false if b is not an input bit
func (a *Arena) InputLevel(b Bit) (Sec, bool) {
	d := a.data(b)
	return d.sec, d.input
}

// Tag returns the diagnostic tag of b
func (a *Arena) Tag(b Bit) string {
	return a.data(b).tag
}

// SetTag sets the diagnostic tag of b
func (a *Arena) SetTag(b Bit, tag string) {
	a.data(b).tag = tag
}

// Clone allocates a copy of b with dependencies deps. Bits that are not at least unknown are cloned as constants.
// The weight, input marker, interval and tag are copied.
func (a *Arena) Clone(b Bit, deps ...Bit) Bit {
	orig := *a.data(b)
	c := a.New(orig.val)
	if orig.val.IsAtLeastUnknown() {
		a.SetDeps(c, deps...)
	}
	d := a.data(c)
	d.weight = orig.weight
	d.hasWeight = orig.hasWeight
	d.input = orig.input
	d.sec = orig.sec
	d.interval = orig.interval
	d.tag = orig.tag
	return c
}

// String returns a short representation of the bit: its id, value and dependencies
func (a *Arena) String(b Bit) string {
	d := a.data(b)
	return fmt.Sprintf("(%s %s %v)", b, d.val, d.deps)
}

func normalize(deps []Bit) []Bit {
	if len(deps) == 0 {
		return nil
	}
	out := append([]Bit{}, deps...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	j := 0
	for i := 1; i < len(out); i++ {
		if out[i] != out[j] {
			j++
			out[j] = out[i]
		}
	}
	return out[:j+1]
}
