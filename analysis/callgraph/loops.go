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

package callgraph

// computeLoopDepths sets the loop depth of every node. A loop is the natural loop of a back edge, i.e. a call
// from a node to one of its dominators; loops sharing a header are merged. Cycles without a dominating head
// (irreducible recursion) count as one loop for their members.
func (cg *CallGraph) computeLoopDepths() {
	loops := map[int]map[int]bool{} // header -> members
	for _, n := range cg.Nodes {
		if !n.reachable {
			continue
		}
		for _, h := range n.Callees {
			if cg.Dominates(h, n) {
				members, ok := loops[h.id]
				if !ok {
					members = map[int]bool{}
					loops[h.id] = members
				}
				cg.naturalLoop(n, h, members)
			}
		}
	}
	depth := make([]int, len(cg.Nodes))
	for _, members := range loops {
		for id := range members {
			depth[id]++
		}
	}
	for _, group := range cg.Recursion() {
		for _, n := range group {
			if depth[n.id] == 0 {
				depth[n.id] = 1
			}
		}
	}
	for _, n := range cg.Nodes {
		n.LoopDepth = depth[n.id]
	}
}

// naturalLoop adds to members the header and every node that reaches the tail of the back edge without going
// through the header
func (cg *CallGraph) naturalLoop(tail, header *CallNode, members map[int]bool) {
	members[header.id] = true
	stack := []*CallNode{tail}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if members[n.id] || !n.reachable {
			continue
		}
		members[n.id] = true
		stack = append(stack, n.Callers...)
	}
}
