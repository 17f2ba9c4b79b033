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
	"math"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/internal/graphutil"
	"github.com/yourbasic/graph"
)

// maxFlowScale is the precision non-integer weights are kept with in the integer capacities of the flow network
const maxFlowScale = 1000

// MaxFlow computes the cut as a maximum flow on a vertex-split network: every bit b reachable from the sources
// becomes an edge in(b) -> out(b) with the capacity of its weight, every dependency d of b an uncuttable edge
// out(b) -> in(d). The walk stops at sinks. Intervals are ignored.
type MaxFlow struct{}

// Name returns the name of the algorithm
func (*MaxFlow) Name() string {
	return MaxFlowName
}

// Compute builds the network and reads the cut off the residual graph of a maximum flow
func (*MaxFlow) Compute(ctx context.Context, a *lattice.Arena, s SourcesAndSinks) (ComputationResult, error) {
	if err := ctx.Err(); err != nil {
		return ComputationResult{}, err
	}
	if len(s.Sources) == 0 || len(s.Sinks) == 0 {
		return ComputationResult{MaxFlow: 0, MinCut: lattice.BitSet{}}, nil
	}
	var bits []lattice.Bit
	index := map[lattice.Bit]int{}
	add := func(b lattice.Bit) {
		if _, ok := index[b]; !ok {
			index[b] = len(bits)
			bits = append(bits, b)
		}
	}
	a.Walk(s.Sources.Sorted(), func(b lattice.Bit) bool {
		add(b)
		return !s.Sinks.Has(b)
	})

	scale := 1.0
	for _, b := range bits {
		if w := s.Weight(a, b); !lattice.IsInfinite(w) && w != math.Trunc(w) {
			scale = maxFlowScale
			break
		}
	}
	capacity := func(w float64) int64 {
		return int64(math.Ceil(w * scale))
	}
	// uncuttable is larger than any sum of finite capacities
	var uncuttable int64 = 1
	for _, b := range bits {
		if w := s.Weight(a, b); !lattice.IsInfinite(w) {
			uncuttable += capacity(w)
		}
	}
	edgeCapacity := func(w float64) int64 {
		if lattice.IsInfinite(w) {
			return uncuttable
		}
		return capacity(w)
	}

	n := len(bits)
	in := func(i int) int { return 2 * i }
	out := func(i int) int { return 2*i + 1 }
	source, sink := 2*n, 2*n+1
	network := graphutil.NewDigraph(2*n + 2)
	for i, b := range bits {
		network.AddCost(in(i), out(i), edgeCapacity(s.Weight(a, b)))
		if s.Sinks.Has(b) {
			network.AddCost(out(i), sink, edgeCapacity(s.SinkWeight))
			continue
		}
		for _, d := range a.Deps(b) {
			if j, ok := index[d]; ok {
				network.AddCost(out(i), in(j), uncuttable)
			}
		}
	}
	for _, b := range s.Sources.Sorted() {
		network.AddCost(source, in(index[b]), edgeCapacity(s.SourceWeight))
	}

	total, flowGraph := graph.MaxFlow(network, source, sink)
	if total >= uncuttable {
		return InfiniteResult(), nil
	}
	flow := make([]map[int]int64, network.Order())
	for v := range flow {
		flow[v] = map[int]int64{}
		flowGraph.Visit(v, func(w int, c int64) bool {
			flow[v][w] = c
			return false
		})
	}
	reached := residualReachable(network, flow, source)

	cut := lattice.BitSet{}
	weight := 0.0
	for i, b := range bits {
		if reached[in(i)] && !reached[out(i)] {
			cut.Add(b)
			weight += s.Weight(a, b)
		}
		// saturated edges of the source and sink sets are part of the cut without a bit
		if s.Sources.Has(b) && !reached[in(i)] {
			weight += s.SourceWeight
		}
		if s.Sinks.Has(b) && reached[out(i)] {
			weight += s.SinkWeight
		}
	}
	return ComputationResult{MaxFlow: weight, MinCut: cut}, nil
}

// residualReachable returns the vertices reachable from start in the residual network of flow
func residualReachable(network *graphutil.Digraph, flow []map[int]int64, start int) []bool {
	reached := make([]bool, network.Order())
	reached[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		var next []int
		for _, w := range network.Successors(v) {
			c, _ := network.Cost(v, w)
			if c-flow[v][w] > 0 {
				next = append(next, w)
			}
		}
		for _, w := range network.Predecessors(v) {
			if flow[w][v] > 0 {
				next = append(next, w)
			}
		}
		for _, w := range next {
			if !reached[w] {
				reached[w] = true
				queue = append(queue, w)
			}
		}
	}
	return reached
}
