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

package graphutil

import (
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
	"github.com/yourbasic/graph"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// Digraph is a directed graph over the vertices 0..n-1 that works with existing graph libraries. It implements the
// methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Directed.
// Iteration over successors is in increasing order, so that algorithms run on a Digraph are deterministic.
type Digraph struct {
	// The order of the graph
	order int

	// succ[v][w] is the cost of the edge v -> w
	succ []map[int]int64

	// pred[w][v] is true iff there is an edge v -> w
	pred []map[int]bool
}

// NewDigraph returns a graph with n vertices and no edges
func NewDigraph(n int) *Digraph {
	g := &Digraph{order: n, succ: make([]map[int]int64, n), pred: make([]map[int]bool, n)}
	for i := 0; i < n; i++ {
		g.succ[i] = map[int]int64{}
		g.pred[i] = map[int]bool{}
	}
	return g
}

// AddEdge adds the edge v -> w with cost 1
func (g *Digraph) AddEdge(v, w int) {
	g.AddCost(v, w, 1)
}

// AddCost adds the edge v -> w with cost c. An existing edge gets its cost replaced.
func (g *Digraph) AddCost(v, w int, c int64) {
	g.succ[v][w] = c
	g.pred[w][v] = true
}

// Successors returns the successors of v in increasing order
func (g *Digraph) Successors(v int) []int {
	return funcutil.SortedKeys(g.succ[v])
}

// Predecessors returns the predecessors of v in increasing order
func (g *Digraph) Predecessors(v int) []int {
	return funcutil.SortedKeys(g.pred[v])
}

// HasEdge returns true if there is an edge v -> w
func (g *Digraph) HasEdge(v, w int) bool {
	_, ok := g.succ[v][w]
	return ok
}

// Cost returns the cost of the edge v -> w, and false if there is no such edge
func (g *Digraph) Cost(v, w int) (int64, bool) {
	c, ok := g.succ[v][w]
	return c, ok
}

// *************** yourbasic graph.Iterator implementation **********************

// Order implements the order of the graph.Iterator interface for the Digraph
func (g *Digraph) Order() int {
	return g.order
}

// Visit implements the graph.Iterator interface for the Digraph
func (g *Digraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if v < 0 || v >= g.order {
		return false
	}
	for _, w := range g.Successors(v) {
		if do(w, g.succ[v][w]) {
			return true
		}
	}
	return false
}

// *************** Gonum graph.Directed implementation **********************

func (g *Digraph) valid(id int64) bool {
	return id >= 0 && id < int64(g.order)
}

func (g *Digraph) nodes(ids []int) gonum.Nodes {
	nodes := make([]gonum.Node, len(ids))
	for i, id := range ids {
		nodes[i] = simple.Node(id)
	}
	return iterator.NewOrderedNodes(nodes)
}

// Node implements the Graph interface
func (g *Digraph) Node(id int64) gonum.Node {
	if !g.valid(id) {
		return nil
	}
	return simple.Node(id)
}

// Nodes returns the set of nodes in the graph
func (g *Digraph) Nodes() gonum.Nodes {
	ids := make([]int, g.order)
	for i := range ids {
		ids[i] = i
	}
	return g.nodes(ids)
}

// From returns the nodes that can be reached directly from the node id
func (g *Digraph) From(id int64) gonum.Nodes {
	if !g.valid(id) {
		return gonum.Empty
	}
	return g.nodes(g.Successors(int(id)))
}

// To returns the nodes that can reach the node id directly
func (g *Digraph) To(id int64) gonum.Nodes {
	if !g.valid(id) {
		return gonum.Empty
	}
	return g.nodes(g.Predecessors(int(id)))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers, in any
// direction
func (g *Digraph) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

// HasEdgeFromTo returns whether an edge exists from u to v
func (g *Digraph) HasEdgeFromTo(uid, vid int64) bool {
	return g.valid(uid) && g.valid(vid) && g.HasEdge(int(uid), int(vid))
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (g *Digraph) Edge(uid, vid int64) gonum.Edge {
	if !g.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// *************** Strongly connected components **********************

// Cycles returns the strongly connected components of g that contain a cycle: the components with at least two
// vertices and the vertices with a self loop.
func Cycles(g *Digraph) [][]int {
	var res [][]int
	for _, component := range graph.StrongComponents(g) {
		if len(component) >= 2 || (len(component) == 1 && g.HasEdge(component[0], component[0])) {
			res = append(res, component)
		}
	}
	return res
}

// HasCycle returns true if g contains a directed cycle
func HasCycle(g *Digraph) bool {
	return len(Cycles(g)) > 0
}
