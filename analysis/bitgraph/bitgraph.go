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

// Package bitgraph contains the summary of a method: the dependencies between its return values and globals on
// one side and its parameters and inputs on the other side. A summary is applied at a call site by cloning its
// bits and substituting the parameter bits with the argument bits.
package bitgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/leakage"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
	"github.com/mitchellh/hashstructure"
)

// MethodReturnValue is the result of a method invocation
type MethodReturnValue struct {
	// Values are the return values
	Values []lattice.Value
	// Globals are the values of the globals after the call
	Globals map[string]lattice.AppendOnlyValue
	// NewInputBits are the input bits introduced by the call
	NewInputBits lattice.BitSet
}

// NewMethodReturnValue returns a method return value with non-nil maps
func NewMethodReturnValue(values []lattice.Value) *MethodReturnValue {
	return &MethodReturnValue{
		Values:       values,
		Globals:      map[string]lattice.AppendOnlyValue{},
		NewInputBits: lattice.BitSet{},
	}
}

// Bits returns all the bits of the return values and globals
func (m *MethodReturnValue) Bits() []lattice.Bit {
	var bits []lattice.Bit
	for _, v := range m.Values {
		bits = append(bits, v.Bits...)
	}
	for _, k := range funcutil.SortedKeys(m.Globals) {
		bits = append(bits, m.Globals[k].Bits...)
	}
	return bits
}

// BitInfo is the position of a parameter bit: the index of the parameter and of the bit in the parameter value
type BitInfo struct {
	Param int
	Index int
}

// BitGraph is the summary of a method
type BitGraph struct {
	Arena      *lattice.Arena
	Parameters []lattice.Value
	// ParameterBits contains the bits of all parameters
	ParameterBits lattice.BitSet
	Result        *MethodReturnValue
	// InputBits are the input bits read by the method
	InputBits lattice.BitSet

	bitInfo map[lattice.Bit]BitInfo
}

// New creates the summary of a method from its parameters, its result and its input bits. It panics if a null
// bit is part of the parameters, the result or the inputs.
func New(arena *lattice.Arena, parameters []lattice.Value, ret *MethodReturnValue, inputBits lattice.BitSet) *BitGraph {
	g := &BitGraph{
		Arena:         arena,
		Parameters:    parameters,
		ParameterBits: lattice.BitSet{},
		Result:        ret,
		InputBits:     inputBits,
		bitInfo:       map[lattice.Bit]BitInfo{},
	}
	if g.InputBits == nil {
		g.InputBits = lattice.BitSet{}
	}
	for i, p := range parameters {
		for j, b := range p.Bits {
			g.checkBit(b, "parameter %d", i)
			g.ParameterBits.Add(b)
			g.bitInfo[b] = BitInfo{Param: i, Index: j}
		}
	}
	for i, v := range ret.Values {
		for _, b := range v.Bits {
			g.checkBit(b, "return value %d", i)
		}
	}
	for k, v := range ret.Globals {
		for _, b := range v.Bits {
			g.checkBit(b, "global %s", k)
		}
	}
	for b := range g.InputBits {
		g.checkBit(b, "input bits")
	}
	return g
}

func (g *BitGraph) checkBit(b lattice.Bit, format string, args ...any) {
	if !g.Arena.Valid(b) {
		panic(fmt.Errorf("invalid bit %s in %s", b, fmt.Sprintf(format, args...)))
	}
}

// ParamInfo returns the position of a parameter bit
func (g *BitGraph) ParamInfo(b lattice.Bit) (BitInfo, bool) {
	info, ok := g.bitInfo[b]
	return info, ok
}

// roots returns the input bits, the return bits and the global bits
func (g *BitGraph) roots() []lattice.Bit {
	return append(g.InputBits.Sorted(), g.Result.Bits()...)
}

// ApplyToArgs instantiates the summary at a call site. Every bit reachable from the inputs, returns and globals is
// cloned, except the parameter bits, which are replaced by the matching argument bits (or fresh unknown bits if
// an argument is too short). The globals of the result are the old globals extended by the globals of the
// summary.
func (g *BitGraph) ApplyToArgs(arena *lattice.Arena, arguments []lattice.Value,
	oldGlobals map[string]lattice.AppendOnlyValue) *MethodReturnValue {
	subst := map[lattice.Bit]lattice.Bit{}
	for i, p := range g.Parameters {
		for j, b := range p.Bits {
			var arg lattice.Bit
			if i < len(arguments) {
				arg = arguments[i].At(j)
			}
			if arg == lattice.NoBit {
				arg = arena.New(lattice.U)
			}
			subst[b] = arg
		}
	}
	var cloned []lattice.Bit
	arena.Walk(g.roots(), func(b lattice.Bit) bool {
		if g.ParameterBits.Has(b) {
			return false
		}
		subst[b] = arena.Clone(b)
		cloned = append(cloned, b)
		return true
	})
	for _, b := range cloned {
		c := subst[b]
		if arena.Val(c).IsAtLeastUnknown() {
			arena.SetDeps(c, funcutil.Map(arena.Deps(b), func(d lattice.Bit) lattice.Bit { return subst[d] })...)
		}
	}
	mapBit := func(b lattice.Bit) lattice.Bit { return subst[b] }

	res := NewMethodReturnValue(funcutil.Map(g.Result.Values, func(v lattice.Value) lattice.Value {
		return v.Map(mapBit)
	}))
	for k, v := range oldGlobals {
		res.Globals[k] = v
	}
	for k, v := range g.Result.Globals {
		res.Globals[k] = oldGlobals[k].Append(v.Map(mapBit).Value())
	}
	for b := range g.InputBits {
		res.NewInputBits.Add(subst[b])
	}
	return res
}

// CalcReachableParamBits returns the parameter bits bit depends on
func (g *BitGraph) CalcReachableParamBits(bit lattice.Bit) lattice.BitSet {
	return g.Arena.Reachable([]lattice.Bit{bit}, g.ParameterBits)
}

// CalcReachableInputAndParameterBits returns the parameter and input bits bit depends on
func (g *BitGraph) CalcReachableInputAndParameterBits(bit lattice.Bit) lattice.BitSet {
	return g.Arena.Reachable([]lattice.Bit{bit}, g.Anchors())
}

// Anchors returns the parameter and input bits
func (g *BitGraph) Anchors() lattice.BitSet {
	return lattice.Union(g.ParameterBits, g.InputBits)
}

// MinCutBits computes the minimum cut between out and in, out being the sources at outputWeight and in the
// sinks. It returns the cut and its weight.
func (g *BitGraph) MinCutBits(ctx context.Context, alg leakage.Algorithm, out, in lattice.BitSet,
	outputWeight float64) (lattice.BitSet, float64, error) {
	s := leakage.NewSourcesAndSinks(out, in)
	for b := range out {
		s.Weights[b] = outputWeight
	}
	res, err := alg.Compute(ctx, g.Arena, s)
	if err != nil {
		return nil, 0, err
	}
	return res.MinCut, res.MaxFlow, nil
}

// paramBitsPerReturnValue returns, for every bit of every return value, the sorted positions of the parameter
// bits it depends on
func (g *BitGraph) paramBitsPerReturnValue() [][][]BitInfo {
	res := make([][][]BitInfo, len(g.Result.Values))
	for i, v := range g.Result.Values {
		res[i] = make([][]BitInfo, len(v.Bits))
		for j, b := range v.Bits {
			infos := funcutil.Map(g.CalcReachableParamBits(b).Sorted(), func(p lattice.Bit) BitInfo {
				return g.bitInfo[p]
			})
			sort.Slice(infos, func(x, y int) bool {
				if infos[x].Param != infos[y].Param {
					return infos[x].Param < infos[y].Param
				}
				return infos[x].Index < infos[y].Index
			})
			res[i][j] = infos
		}
	}
	return res
}

// shape is the canonical form compared by EqualReturnValues
type shape struct {
	Widths    []int
	ParamBits [][][]BitInfo
	Globals   map[string]int
}

func (g *BitGraph) shape() shape {
	s := shape{
		Widths:    funcutil.Map(g.Result.Values, lattice.Value.Width),
		ParamBits: g.paramBitsPerReturnValue(),
		Globals:   map[string]int{},
	}
	for k, v := range g.Result.Globals {
		s.Globals[k] = v.SizeWithoutEs(g.Arena)
	}
	return s
}

// Fingerprint returns a hash of the canonical form compared by EqualReturnValues. Summaries with different
// fingerprints are different.
func (g *BitGraph) Fingerprint() uint64 {
	h, err := hashstructure.Hash(g.shape(), nil)
	if err != nil {
		panic(fmt.Errorf("could not hash summary: %w", err))
	}
	return h
}

// EqualReturnValues returns true if both summaries have the same return shapes, the same parameter dependencies
// for every return bit, the same globals and the same number of non-E bits in every global.
func EqualReturnValues(a, b *BitGraph) bool {
	sa, sb := a.shape(), b.shape()
	if len(sa.Widths) != len(sb.Widths) || len(sa.Globals) != len(sb.Globals) {
		return false
	}
	for i := range sa.Widths {
		if sa.Widths[i] != sb.Widths[i] {
			return false
		}
	}
	for k, n := range sa.Globals {
		if m, ok := sb.Globals[k]; !ok || m != n {
			return false
		}
	}
	for i := range sa.ParamBits {
		for j := range sa.ParamBits[i] {
			x, y := sa.ParamBits[i][j], sb.ParamBits[i][j]
			if len(x) != len(y) {
				return false
			}
			for k := range x {
				if x[k] != y[k] {
					return false
				}
			}
		}
	}
	return true
}

// String returns a short description of the summary
func (g *BitGraph) String() string {
	s := g.shape()
	return fmt.Sprintf("returns %v, param deps %v, globals %v, %d inputs", s.Widths, s.ParamBits, s.Globals,
		len(g.InputBits))
}
