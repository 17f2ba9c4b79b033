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

// Package leakage computes upper bounds on the information flowing from a set of bits to another: the weight of
// a minimum vertex cut separating the sources from the sinks in the dependency graph of the bits.
//
// Two families of algorithms are available: MaxSAT encodings of the cut problem, solved in-process with gini or
// by an external solver binary, and a max-flow computation on a vertex-split flow network.
package leakage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/analysis/solver"
	"golang.org/x/exp/maps"
)

const (
	// MaxSATGini is the in-process MaxSAT algorithm
	MaxSATGini = "maxsat-gini"
	// MaxFlowName is the max-flow algorithm
	MaxFlowName = "maxflow"
)

// SourcesAndSinks is the input of a min-cut computation. Information flows from the sources to the sinks: a bit
// is reachable from a source if the source depends on it, directly or transitively.
type SourcesAndSinks struct {
	// SourceWeight is the capacity of the edges from the source set to every source
	SourceWeight float64
	Sources      lattice.BitSet
	// SinkWeight is the capacity of the edges from every sink to the sink set
	SinkWeight float64
	Sinks      lattice.BitSet
	// Weights override the arena weights of some bits
	Weights map[lattice.Bit]float64
}

// NewSourcesAndSinks returns sources and sinks with infinite source and sink capacities
func NewSourcesAndSinks(sources, sinks lattice.BitSet) SourcesAndSinks {
	return SourcesAndSinks{
		SourceWeight: lattice.Infinity,
		Sources:      sources,
		SinkWeight:   lattice.Infinity,
		Sinks:        sinks,
		Weights:      map[lattice.Bit]float64{},
	}
}

// Weight returns the weight of b in the computation
func (s SourcesAndSinks) Weight(a *lattice.Arena, b lattice.Bit) float64 {
	if w, ok := s.Weights[b]; ok {
		return w
	}
	return a.Weight(b)
}

// ComputationResult is the result of a min-cut computation
type ComputationResult struct {
	// MaxFlow is the weight of the cut, the upper bound on the leakage. It is +Inf if no finite cut exists.
	MaxFlow float64
	MinCut  lattice.BitSet
}

// InfiniteResult is the result reported when no bound could be computed
func InfiniteResult() ComputationResult {
	return ComputationResult{MaxFlow: lattice.Infinity, MinCut: lattice.BitSet{}}
}

// Algorithm is a min-cut algorithm. An algorithm returns solver.ErrNoResult when its backend could not produce a
// cut.
type Algorithm interface {
	Name() string
	Compute(ctx context.Context, a *lattice.Arena, s SourcesAndSinks) (ComputationResult, error)
}

// Names returns the names of the available algorithms
func Names() []string {
	names := append([]string{MaxSATGini, MaxFlowName}, maps.Keys(solver.Presets)...)
	sort.Strings(names[2:])
	return names
}

// New returns the algorithm with the given name. External solvers take their binary and options from the
// configuration.
func New(name string, cfg *config.Config, logger *config.LogGroup) (Algorithm, error) {
	switch name {
	case MaxSATGini:
		return &MaxSAT{
			name: name,
			newSolver: func() solver.Solver[Variable] {
				return solver.NewGini[Variable](cfg.BitWidth, cfg.MaxReplicatedWeight, cfg.RoundUp(), logger)
			},
		}, nil
	case MaxFlowName:
		return &MaxFlow{}, nil
	}
	if preset, ok := solver.Presets[name]; ok {
		binary := cfg.SolverBinary(name, preset.Binary)
		options := append(append([]string{}, preset.Options...), cfg.SolverOptions[name]...)
		return &MaxSAT{
			name: name,
			newSolver: func() solver.Solver[Variable] {
				return solver.NewExternal[Variable](name, binary, options, cfg.BitWidth, cfg.RoundUp(), logger)
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown leakage algorithm %s, possible algorithms are: %s", name,
		strings.Join(Names(), ", "))
}
