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
	"strings"
)

// Value is an integer as an ordered sequence of bits, least significant bit first.
type Value struct {
	Bits []Bit
	// Tag is a diagnostic description of the value, e.g. the name of the expression it was computed from
	Tag string
}

// NewValue returns a value with the given bits
func NewValue(bits ...Bit) Value {
	return Value{Bits: append([]Bit{}, bits...)}
}

// Width returns the number of bits of v
func (v Value) Width() int {
	return len(v.Bits)
}

// At returns the i-th bit (0-based) of v, or NoBit if v is shorter
func (v Value) At(i int) Bit {
	if i < 0 || i >= len(v.Bits) {
		return NoBit
	}
	return v.Bits[i]
}

// Map returns a new value whose bits are f applied to the bits of v. The tag is kept.
func (v Value) Map(f func(Bit) Bit) Value {
	bits := make([]Bit, len(v.Bits))
	for i, b := range v.Bits {
		bits[i] = f(b)
	}
	return Value{Bits: bits, Tag: v.Tag}
}

// BitSet returns the bits of v as a set
func (v Value) BitSet() BitSet {
	return NewBitSet(v.Bits...)
}

// Repr returns a human-readable representation of v, most significant bit first
func (v Value) Repr(a *Arena) string {
	var sb strings.Builder
	for i := len(v.Bits) - 1; i >= 0; i-- {
		sb.WriteString(a.Val(v.Bits[i]).String())
	}
	return sb.String()
}

// Combine concatenates the values into one value
func Combine(values ...Value) Value {
	var bits []Bit
	for _, v := range values {
		bits = append(bits, v.Bits...)
	}
	return Value{Bits: bits}
}

// AppendOnlyValue is a value that can only grow by appending bits. Globals are append-only values.
type AppendOnlyValue struct {
	Bits []Bit
}

// Append returns a new value with the bits of vs appended to the bits of v
func (v AppendOnlyValue) Append(vs ...Value) AppendOnlyValue {
	bits := append([]Bit{}, v.Bits...)
	for _, x := range vs {
		bits = append(bits, x.Bits...)
	}
	return AppendOnlyValue{Bits: bits}
}

// AppendBits returns a new value with bits appended at the end
func (v AppendOnlyValue) AppendBits(bits ...Bit) AppendOnlyValue {
	return AppendOnlyValue{Bits: append(append([]Bit{}, v.Bits...), bits...)}
}

// Len returns the number of bits of v
func (v AppendOnlyValue) Len() int {
	return len(v.Bits)
}

// IsEmpty returns true if no bit has been appended
func (v AppendOnlyValue) IsEmpty() bool {
	return len(v.Bits) == 0
}

// SizeWithoutEs returns the number of bits that are not E bits
func (v AppendOnlyValue) SizeWithoutEs(a *Arena) int {
	n := 0
	for _, b := range v.Bits {
		if a.Val(b) != E {
			n++
		}
	}
	return n
}

// WithoutEs returns a copy of v without its E bits
func (v AppendOnlyValue) WithoutEs(a *Arena) AppendOnlyValue {
	var bits []Bit
	for _, b := range v.Bits {
		if a.Val(b) != E {
			bits = append(bits, b)
		}
	}
	return AppendOnlyValue{Bits: bits}
}

// Map returns a new value whose bits are f applied to the bits of v
func (v AppendOnlyValue) Map(f func(Bit) Bit) AppendOnlyValue {
	bits := make([]Bit, len(v.Bits))
	for i, b := range v.Bits {
		bits[i] = f(b)
	}
	return AppendOnlyValue{Bits: bits}
}

// Value returns v as a plain value
func (v AppendOnlyValue) Value() Value {
	return NewValue(v.Bits...)
}

// Sec is a security level. The lattice is Low <= High.
type Sec uint8

const (
	// Low is the level observable by the attacker
	Low Sec = iota
	// High is the level of secrets
	High
)

// Leq returns true if s is lower or equal to o
func (s Sec) Leq(o Sec) bool {
	return s <= o
}

func (s Sec) String() string {
	if s == High {
		return "h"
	}
	return "l"
}

// ParseSec parses "h"/"high" or "l"/"low"
func ParseSec(s string) (Sec, error) {
	switch strings.ToLower(s) {
	case "h", "high":
		return High, nil
	case "l", "low":
		return Low, nil
	}
	return Low, fmt.Errorf("unknown security level %q", s)
}

// Interval is an inclusive range of integers a value is known to belong to
type Interval struct {
	Lo int64
	Hi int64
}

// Entropy returns the number of bits needed to encode a member of the interval
func (i Interval) Entropy() float64 {
	if i.Hi < i.Lo {
		return 0
	}
	return math.Log2(float64(i.Hi-i.Lo) + 1)
}

// AddInterval registers an interval and annotates the bits of v with it. It returns the interval's id.
func (a *Arena) AddInterval(v Value, i Interval) int {
	a.intervals = append(a.intervals, i)
	id := len(a.intervals)
	for _, b := range v.Bits {
		a.data(b).interval = id
	}
	return id
}

// IntervalOf returns the interval id of b and the interval, or 0 if b does not belong to an interval
func (a *Arena) IntervalOf(b Bit) (int, Interval) {
	id := a.data(b).interval
	if id == 0 {
		return 0, Interval{}
	}
	return id, a.intervals[id-1]
}
