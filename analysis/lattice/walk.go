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

// Walk visits every bit reachable from roots along dependency edges, each bit at most once.
// The dependencies of a bit are explored only if visit returns true.
func (a *Arena) Walk(roots []Bit, visit func(Bit) bool) {
	visited := map[Bit]bool{}
	stack := append([]Bit{}, roots...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if visit(cur) {
			for _, d := range a.Deps(cur) {
				if !visited[d] {
					stack = append(stack, d)
				}
			}
		}
	}
}

// ReachableAll returns every bit reachable from roots, roots included
func (a *Arena) ReachableAll(roots []Bit) BitSet {
	res := BitSet{}
	a.Walk(roots, func(b Bit) bool {
		res.Add(b)
		return true
	})
	return res
}

// Reachable returns the anchor bits reachable from roots. The walk does not continue past an anchor, so the
// interdependencies of anchors are not looked at. Roots that are anchors are part of the result.
func (a *Arena) Reachable(roots []Bit, anchors BitSet) BitSet {
	res := BitSet{}
	a.Walk(roots, func(b Bit) bool {
		if anchors.Has(b) {
			res.Add(b)
			return false
		}
		return true
	})
	return res
}

// ReachableFromDeps is Reachable started at the dependencies of b instead of b itself, so that b can be an anchor.
func (a *Arena) ReachableFromDeps(b Bit, anchors BitSet) BitSet {
	return a.Reachable(a.Deps(b), anchors)
}
