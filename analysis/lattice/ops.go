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

// Const returns a fresh value of the given width holding the two's complement representation of x
func (a *Arena) Const(x int64, width int) Value {
	bits := make([]Bit, width)
	for i := 0; i < width; i++ {
		if i < 64 && (x>>uint(i))&1 == 1 {
			bits[i] = a.New(One)
		} else if i >= 64 && x < 0 {
			bits[i] = a.New(One)
		} else {
			bits[i] = a.New(Zero)
		}
	}
	return Value{Bits: bits}
}

// Unknown returns a fresh value of unknown bits, each depending on deps
func (a *Arena) Unknown(width int, deps ...Bit) Value {
	bits := make([]Bit, width)
	for i := range bits {
		bits[i] = a.New(U, deps...)
	}
	return Value{Bits: bits}
}

// Bot returns a value of not-yet-evaluated bits
func (a *Arena) Bot(width int) Value {
	bits := make([]Bit, width)
	for i := range bits {
		bits[i] = a.New(X)
	}
	return Value{Bits: bits}
}

// And computes the bitwise conjunction of x and y
func (a *Arena) And(x, y Value) Value {
	return a.bitwise(x, y, func(p, q B) (B, bool) {
		switch {
		case p == Zero || q == Zero:
			return Zero, true
		case p == One && q == One:
			return One, true
		}
		return U, false
	})
}

// Or computes the bitwise disjunction of x and y
func (a *Arena) Or(x, y Value) Value {
	return a.bitwise(x, y, func(p, q B) (B, bool) {
		switch {
		case p == One || q == One:
			return One, true
		case p == Zero && q == Zero:
			return Zero, true
		}
		return U, false
	})
}

// Xor computes the bitwise exclusive or of x and y
func (a *Arena) Xor(x, y Value) Value {
	return a.bitwise(x, y, func(p, q B) (B, bool) {
		if p.IsConstant() && q.IsConstant() {
			if p == q {
				return Zero, true
			}
			return One, true
		}
		return U, false
	})
}

// Join computes the least upper bound of x and y: X is the identity, bits that agree on a constant stay constant,
// the other bits become unknown and depend on both operands
func (a *Arena) Join(x, y Value) Value {
	width := x.Width()
	if y.Width() > width {
		width = y.Width()
	}
	bits := make([]Bit, width)
	for i := range bits {
		p, q := a.valOrZero(x, i), a.valOrZero(y, i)
		switch {
		case p == X:
			bits[i] = a.copyOf(y.At(i), q)
		case q == X:
			bits[i] = a.copyOf(x.At(i), p)
		case p.IsConstant() && p == q:
			bits[i] = a.New(p)
		default:
			var deps []Bit
			for _, b := range []Bit{x.At(i), y.At(i)} {
				if b != NoBit && !a.IsConstant(b) {
					deps = append(deps, b)
				}
			}
			bits[i] = a.New(U, deps...)
		}
	}
	return Value{Bits: bits}
}

// copyOf returns a fresh bit with the value v of b that depends on b unless v is constant or X
func (a *Arena) copyOf(b Bit, v B) Bit {
	if v.IsConstant() || v == X || b == NoBit {
		return a.New(v)
	}
	return a.New(v, b)
}

// Not computes the bitwise negation of x
func (a *Arena) Not(x Value) Value {
	bits := make([]Bit, len(x.Bits))
	for i, b := range x.Bits {
		switch a.Val(b) {
		case Zero:
			bits[i] = a.New(One)
		case One:
			bits[i] = a.New(Zero)
		default:
			bits[i] = a.New(U, b)
		}
	}
	return Value{Bits: bits}
}

func (a *Arena) bitwise(x, y Value, op func(p, q B) (B, bool)) Value {
	width := x.Width()
	if y.Width() > width {
		width = y.Width()
	}
	bits := make([]Bit, width)
	for i := range bits {
		p, q := a.valOrZero(x, i), a.valOrZero(y, i)
		if v, constant := op(p, q); constant {
			bits[i] = a.New(v)
			continue
		}
		var deps []Bit
		for _, b := range []Bit{x.At(i), y.At(i)} {
			if b != NoBit && !a.IsConstant(b) {
				deps = append(deps, b)
			}
		}
		bits[i] = a.New(U, deps...)
	}
	return Value{Bits: bits}
}

func (a *Arena) valOrZero(v Value, i int) B {
	b := v.At(i)
	if b == NoBit {
		return Zero
	}
	return a.Val(b)
}
