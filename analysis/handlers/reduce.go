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

package handlers

import (
	"errors"

	"github.com/awslabs/ar-qif-tools/analysis/bitgraph"
	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/solver"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
)

func (h *Summary) reduce(ctx *Context, g *bitgraph.BitGraph) (*bitgraph.BitGraph, error) {
	if h.Config.Reduction == BasicReduction {
		return BasicReduce(ctx.Arena(), g), nil
	}
	return MinCutReduce(ctx, g)
}

// BasicReduce returns a copy of g where every bit of the results and inputs depends directly on the parameter and
// input bits it reaches
func BasicReduce(a *lattice.Arena, g *bitgraph.BitGraph) *bitgraph.BitGraph {
	return rebuild(a, g, g.Anchors(), nil)
}

// MinCutReduce returns a copy of g that keeps the bits of a minimum cut between the results and the parameter
// and input bits: the results depend on the cut bits and the cut bits on the parameters. If the cut cannot be
// computed, the graph is reduced with BasicReduce.
func MinCutReduce(ctx *Context, g *bitgraph.BitGraph) (*bitgraph.BitGraph, error) {
	anchors := g.Anchors()
	out := lattice.NewBitSet(g.Result.Bits()...)
	cut, _, err := g.MinCutBits(ctx.Ctx(), ctx.Leakage, out, anchors, lattice.Infinity)
	if errors.Is(err, solver.ErrNoResult) {
		ctx.Logger.Warnf("no min cut for the summary, using the basic reduction: %v", err)
		return BasicReduce(ctx.Arena(), g), nil
	}
	if err != nil {
		return nil, err
	}
	return rebuild(ctx.Arena(), g, lattice.Union(anchors, cut), cut.Sorted()), nil
}

// rebuild clones the input bits, the result bits and the extra bits of g. Each clone depends on the clones of
// the anchors reached from the dependencies of its original. The parameter bits are kept as is.
func rebuild(a *lattice.Arena, g *bitgraph.BitGraph, anchors lattice.BitSet, extra []lattice.Bit) *bitgraph.BitGraph {
	clones := map[lattice.Bit]lattice.Bit{}
	for b := range g.ParameterBits {
		clones[b] = b
	}
	var order []lattice.Bit
	clone := func(b lattice.Bit) lattice.Bit {
		if c, ok := clones[b]; ok {
			return c
		}
		c := a.Clone(b)
		clones[b] = c
		order = append(order, b)
		return c
	}
	for _, b := range g.InputBits.Sorted() {
		clone(b)
	}
	for _, b := range g.Result.Bits() {
		clone(b)
	}
	for _, b := range extra {
		clone(b)
	}
	for i := 0; i < len(order); i++ {
		b := order[i]
		if !a.Val(b).IsAtLeastUnknown() {
			continue
		}
		deps := a.ReachableFromDeps(b, anchors).Sorted()
		a.SetDeps(clones[b], funcutil.Map(deps, clone)...)
	}
	mapBit := func(b lattice.Bit) lattice.Bit { return clones[b] }
	res := bitgraph.NewMethodReturnValue(funcutil.Map(g.Result.Values, func(v lattice.Value) lattice.Value {
		return v.Map(mapBit)
	}))
	for k, v := range g.Result.Globals {
		res.Globals[k] = v.Map(mapBit)
	}
	for b := range g.InputBits {
		res.NewInputBits.Add(clones[b])
	}
	return bitgraph.New(a, g.Parameters, res, res.NewInputBits)
}

// *************** append-only globals **********************

// globalHistory is the value of a global in the summary of one iteration, compared to the previous iteration
type globalHistory struct {
	prev       *globalHistory
	value      lattice.AppendOnlyValue
	difference lattice.AppendOnlyValue
	// reachable are the parameter bits the value depends on
	reachable lattice.BitSet
	// reachableForDiff are the parameter bits the difference depends on
	reachableForDiff lattice.BitSet
}

func newGlobalHistory(g *bitgraph.BitGraph, v lattice.AppendOnlyValue, prev *globalHistory) *globalHistory {
	h := &globalHistory{prev: prev, value: v, difference: v}
	if prev != nil {
		h.difference = difference(g.Arena, prev.value, v)
	}
	h.reachable = reachableParamBits(g, v.Bits)
	h.reachableForDiff = reachableParamBits(g, h.difference.Bits)
	return h
}

func reachableParamBits(g *bitgraph.BitGraph, bits []lattice.Bit) lattice.BitSet {
	res := lattice.BitSet{}
	for _, b := range bits {
		res.AddAll(g.CalcReachableParamBits(b))
	}
	return res
}

// difference returns the bits the longer of x and y has in addition to the shorter one
func difference(a *lattice.Arena, x, y lattice.AppendOnlyValue) lattice.AppendOnlyValue {
	nx, ny := x.SizeWithoutEs(a), y.SizeWithoutEs(a)
	if ny < nx {
		x, y = y, x
		nx, ny = ny, nx
	}
	if nx == ny {
		return lattice.AppendOnlyValue{}
	}
	end := ny
	if end > y.Len() {
		end = y.Len()
	}
	if nx >= end {
		return lattice.AppendOnlyValue{}
	}
	return lattice.AppendOnlyValue{Bits: append([]lattice.Bit{}, y.Bits[nx:end]...)}
}

// dominates returns true if x is a star bit that depends on every dependency of s
func dominates(a *lattice.Arena, x, s lattice.Bit) bool {
	if a.Val(x) != lattice.S {
		return false
	}
	for _, d := range a.Deps(s) {
		if !a.DependsOn(x, d) {
			return false
		}
	}
	return true
}

// reduce returns the value of the global for the summary, and true if a new star bit was appended. A global
// that grows the same way in two successive iterations is closed with a star bit that depends on the parameter
// bits of the growth.
func (h *globalHistory) reduce(a *lattice.Arena, name string) (lattice.AppendOnlyValue, bool) {
	prev := h.prev
	if prev == nil || h.value.SizeWithoutEs(a) == 0 {
		return h.value, false
	}
	if h.reachable.Len() != prev.reachable.Len() || h.reachableForDiff.Len() > prev.reachableForDiff.Len() {
		return h.value, false
	}
	prevDiff, curDiff := prev.difference.SizeWithoutEs(a), h.difference.SizeWithoutEs(a)
	if prevDiff > 0 {
		if curDiff > prevDiff {
			return h.value, false
		}
		for i := 0; i < prev.difference.Len() && i < h.difference.Len(); i++ {
			if !a.Val(h.difference.Bits[i]).Leq(a.Val(prev.difference.Bits[i])) {
				return h.value, false
			}
		}
	}
	s := a.New(lattice.S, h.reachableForDiff.Sorted()...)
	if n := prev.difference.Len(); n > 0 && dominates(a, prev.difference.Bits[n-1], s) {
		return prev.value.WithoutEs(a), false
	}
	if funcutil.Exists(prev.value.Bits, func(b lattice.Bit) bool { return dominates(a, b, s) }) {
		return prev.value.WithoutEs(a), false
	}
	if name == lang.InputGlobal {
		for _, d := range a.Deps(s) {
			a.SetWeight(d, lattice.Infinity)
		}
	}
	return h.value.AppendBits(s), true
}

// reduceGlobals reduces the globals of g against the history of st and records the new history. It returns true
// if a star bit was appended to a global.
func reduceGlobals(a *lattice.Arena, g *bitgraph.BitGraph, st *summaryState) (*bitgraph.BitGraph, bool) {
	if len(g.Result.Globals) == 0 {
		st.history = nil
		return g, false
	}
	res := bitgraph.NewMethodReturnValue(g.Result.Values)
	addedStar := false
	for _, name := range funcutil.SortedKeys(g.Result.Globals) {
		cur := newGlobalHistory(g, g.Result.Globals[name], st.history[name])
		v, added := cur.reduce(a, name)
		res.Globals[name] = v
		addedStar = addedStar || added
	}
	res.NewInputBits = g.InputBits
	reduced := bitgraph.New(a, g.Parameters, res, g.InputBits)
	history := make(map[string]*globalHistory, len(res.Globals))
	for name, v := range res.Globals {
		history[name] = newGlobalHistory(reduced, v, st.history[name])
	}
	st.history = history
	return reduced, addedStar
}
