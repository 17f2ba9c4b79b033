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

package leakage

import (
	"context"
	"fmt"
	"io"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/solver"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
)

// Kind is the kind of a variable of the MaxSAT encoding
type Kind uint8

const (
	// KindBit is true if the bit is part of the cut
	KindBit Kind = iota
	// KindDependencies is true if all the dependencies of the bit are cut off from the sinks
	KindDependencies
	// KindEither is true if the bit is cut off from the sinks: it is cut, its dependencies are, or its
	// interval is
	KindEither
	// KindIsInterval is true if the interval of a value is part of the cut
	KindIsInterval
)

func (k Kind) String() string {
	switch k {
	case KindBit:
		return "c"
	case KindDependencies:
		return "r"
	case KindEither:
		return "d"
	case KindIsInterval:
		return "inter"
	}
	return "?"
}

// Variable is a variable of the MaxSAT encoding. Interval variables have an interval id and no bit.
type Variable struct {
	Kind     Kind
	Bit      lattice.Bit
	Interval int
}

func (v Variable) String() string {
	if v.Kind == KindIsInterval {
		return fmt.Sprintf("i%d[%s]", v.Interval, v.Kind)
	}
	return fmt.Sprintf("%s[%s]", v.Bit, v.Kind)
}

func bitVar(b lattice.Bit, k Kind) Variable {
	return Variable{Kind: k, Bit: b}
}

// Encoding records what Encode added to a problem
type Encoding struct {
	// Bits are the bits with a weighted variable, in order of registration
	Bits []lattice.Bit
	// Intervals maps interval ids to their entropy
	Intervals map[int]float64
}

// Encode adds the min-cut problem of s to dst. The bits reachable from the sources are visited once. For every
// bit b that is not constant and either has dependencies or is a sink:
//
//	Either(b) ↔ Bit(b) ∨ Dependencies(b) ∨ IsInterval(interval of b)
//	Dependencies(b) → Either(d) for every dependency d
//
// and Either(src) holds for every source. Bit variables are weighted with the bit weights, interval variables
// with the entropy of the interval.
func Encode(a *lattice.Arena, s SourcesAndSinks, dst solver.Builder[Variable]) (*Encoding, error) {
	enc := &Encoding{Intervals: map[int]float64{}}
	var visited []lattice.Bit
	seen := lattice.BitSet{}
	sources := s.Sources.Sorted()
	a.Walk(sources, func(b lattice.Bit) bool {
		visited = append(visited, b)
		seen.Add(b)
		if a.IsConstant(b) {
			return true
		}
		vars := []Variable{bitVar(b, KindBit)}
		if a.HasDeps(b) {
			vars = append(vars, bitVar(b, KindDependencies))
		} else if !s.Sinks.Has(b) {
			return true
		}
		if id, interval := a.IntervalOf(b); id != 0 {
			if _, ok := enc.Intervals[id]; !ok {
				enc.Intervals[id] = interval.Entropy()
			}
			vars = append(vars, Variable{Kind: KindIsInterval, Interval: id})
		}
		either := bitVar(b, KindEither)
		dst.AddOrImplication(either, vars...)
		for _, v := range vars {
			dst.AddOrImplication(v, either)
		}
		for _, d := range a.Deps(b) {
			dst.AddOrImplication(bitVar(b, KindDependencies), bitVar(d, KindEither))
		}
		return true
	})
	for _, src := range sources {
		dst.AddUnit(bitVar(src, KindEither))
	}
	for _, b := range append(s.Sinks.Sorted(), sources...) {
		if !seen.Has(b) {
			visited = append(visited, b)
			seen.Add(b)
		}
	}
	for _, b := range visited {
		w := s.Weight(a, b)
		var err error
		if lattice.IsInfinite(w) {
			err = dst.AddInfiniteWeight(bitVar(b, KindBit))
		} else {
			err = dst.AddWeight(bitVar(b, KindBit), w)
		}
		if err != nil {
			return nil, err
		}
		enc.Bits = append(enc.Bits, b)
	}
	for _, id := range funcutil.SortedKeys(enc.Intervals) {
		if err := dst.AddWeight(Variable{Kind: KindIsInterval, Interval: id}, enc.Intervals[id]); err != nil {
			return nil, err
		}
	}
	return enc, nil
}

// MaxSAT computes the cut with a MaxSAT solver on the encoding of Encode. A fresh solver is used for every
// computation.
type MaxSAT struct {
	name      string
	newSolver func() solver.Solver[Variable]
}

// NewMaxSAT returns a MaxSAT algorithm using solvers created by newSolver
func NewMaxSAT(name string, newSolver func() solver.Solver[Variable]) *MaxSAT {
	return &MaxSAT{name: name, newSolver: newSolver}
}

// Name returns the name of the algorithm
func (m *MaxSAT) Name() string {
	return m.name
}

// Compute encodes and solves the problem. The leakage is the sum of the weights of the cut bits and cut intervals.
func (m *MaxSAT) Compute(ctx context.Context, a *lattice.Arena, s SourcesAndSinks) (ComputationResult, error) {
	if len(s.Sources) == 0 || len(s.Sinks) == 0 {
		return ComputationResult{MaxFlow: 0, MinCut: lattice.BitSet{}}, nil
	}
	sv := m.newSolver()
	enc, err := Encode(a, s, sv)
	if err != nil {
		return ComputationResult{}, err
	}
	res, err := sv.Solve(ctx)
	if err != nil {
		return ComputationResult{}, err
	}
	cut := lattice.BitSet{}
	flow := 0.0
	for _, b := range enc.Bits {
		if res.IsTrue(bitVar(b, KindBit)) {
			cut.Add(b)
			flow += s.Weight(a, b)
		}
	}
	for id, entropy := range enc.Intervals {
		if res.IsTrue(Variable{Kind: KindIsInterval, Interval: id}) {
			flow += entropy
		}
	}
	return ComputationResult{MaxFlow: flow, MinCut: cut}, nil
}

// WriteWDIMACS writes the MaxSAT encoding of s in the WDIMACS format
func WriteWDIMACS(w io.Writer, a *lattice.Arena, s SourcesAndSinks, bitWidth int, roundUp bool) error {
	p := solver.NewProblem[Variable](bitWidth)
	if _, err := Encode(a, s, p); err != nil {
		return err
	}
	return p.WriteWDIMACS(w, roundUp)
}
