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

// Package callgraph contains the call graph of a program: which methods call which, the dominance relation from
// the main method and the loop depth of each method. The summary fixpoint uses it to order its worklist.
package callgraph

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-qif-tools/analysis/lang"
	"github.com/awslabs/ar-qif-tools/internal/graphutil"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// CallNode is the node of a method in the call graph
type CallNode struct {
	Method *lang.Method
	// Callers are the methods calling this method, in order of first call
	Callers []*CallNode
	// Callees are the methods called by this method, in order of first call
	Callees []*CallNode
	// LoopDepth is the number of call graph loops the method is part of
	LoopDepth int

	id        int
	reachable bool
}

func (n *CallNode) String() string {
	return n.Method.Name
}

// IsMain returns true if n is the node of the main method
func (n *CallNode) IsMain() bool {
	return n.Method.IsMain()
}

// CallGraph is the call graph of a program
type CallGraph struct {
	Program *lang.Program
	Main    *CallNode
	// Nodes are all the nodes, in the declaration order of their methods
	Nodes []*CallNode

	byMethod map[*lang.Method]*CallNode
	graph    *graphutil.Digraph
	dom      flow.DominatorTree
}

// Build builds the call graph of the program from the call sites declared by its methods
func Build(p *lang.Program) *CallGraph {
	cg := &CallGraph{
		Program:  p,
		byMethod: make(map[*lang.Method]*CallNode, len(p.Methods)),
		graph:    graphutil.NewDigraph(len(p.Methods)),
	}
	for i, m := range p.Methods {
		n := &CallNode{Method: m, id: i}
		cg.Nodes = append(cg.Nodes, n)
		cg.byMethod[m] = n
	}
	cg.Main = cg.byMethod[p.Main]
	for _, caller := range cg.Nodes {
		for _, site := range caller.Method.Sites {
			callee, ok := cg.byMethod[site.Callee]
			if !ok {
				continue
			}
			if !cg.graph.HasEdge(caller.id, callee.id) {
				cg.graph.AddEdge(caller.id, callee.id)
				caller.Callees = append(caller.Callees, callee)
				callee.Callers = append(callee.Callers, caller)
			}
		}
	}
	cg.dom = flow.Dominators(simple.Node(cg.Main.id), cg.graph)
	cg.markReachable()
	cg.computeLoopDepths()
	return cg
}

// Node returns the node of method m, nil if m is not part of the program
func (cg *CallGraph) Node(m *lang.Method) *CallNode {
	return cg.byMethod[m]
}

// IsReachable returns true if the method of n can be called from main
func (cg *CallGraph) IsReachable(n *CallNode) bool {
	return n.reachable
}

func (cg *CallGraph) markReachable() {
	stack := []*CallNode{cg.Main}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.reachable {
			continue
		}
		n.reachable = true
		stack = append(stack, n.Callees...)
	}
}

// ImmediateDominator returns the immediate dominator of n, or nil for main and methods not reachable from main
func (cg *CallGraph) ImmediateDominator(n *CallNode) *CallNode {
	d := cg.dom.DominatorOf(int64(n.id))
	if d == nil {
		return nil
	}
	return cg.Nodes[d.ID()]
}

// Dominates returns true if every call path from main to b goes through a. Every node dominates itself.
func (cg *CallGraph) Dominates(a, b *CallNode) bool {
	if !b.reachable {
		return false
	}
	for cur := b; cur != nil; cur = cg.ImmediateDominator(cur) {
		if cur == a {
			return true
		}
	}
	return false
}

// Recursion returns the groups of mutually recursive methods
func (cg *CallGraph) Recursion() [][]*CallNode {
	var res [][]*CallNode
	for _, component := range graphutil.Cycles(cg.graph) {
		group := make([]*CallNode, len(component))
		for i, id := range component {
			group[i] = cg.Nodes[id]
		}
		res = append(res, group)
	}
	return res
}

// ContainsRecursion returns true if some method can call itself, directly or indirectly
func (cg *CallGraph) ContainsRecursion() bool {
	return graphutil.HasCycle(cg.graph)
}

// PostOrder returns the nodes in post-order of a depth-first traversal from main, callees first. The methods that
// are not reachable from main come after, in post-order of traversals started in declaration order.
func (cg *CallGraph) PostOrder() []*CallNode {
	visited := make([]bool, len(cg.Nodes))
	order := make([]*CallNode, 0, len(cg.Nodes))
	var visit func(n *CallNode)
	visit = func(n *CallNode) {
		visited[n.id] = true
		for _, c := range n.Callees {
			if !visited[c.id] {
				visit(c)
			}
		}
		order = append(order, n)
	}
	visit(cg.Main)
	for _, n := range cg.Nodes {
		if !visited[n.id] {
			visit(n)
		}
	}
	return order
}

// String returns a textual representation of the call graph, one line per method
func (cg *CallGraph) String() string {
	var sb strings.Builder
	for _, n := range cg.Nodes {
		names := make([]string, len(n.Callees))
		for i, c := range n.Callees {
			names[i] = c.Method.Name
		}
		fmt.Fprintf(&sb, "%s (depth %d) -> [%s]\n", n.Method.Name, n.LoopDepth, strings.Join(names, ", "))
	}
	return sb.String()
}
