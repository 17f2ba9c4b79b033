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

package bitgraph

import (
	"bufio"
	"fmt"
	"io"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
)

// Dot writes the summary as a Graphviz digraph. Edges go from a bit to its dependencies. Parameter bits are boxes,
// input bits are diamonds and the bits of return values and globals are labelled with their position.
func (g *BitGraph) Dot(w io.Writer, name string) error {
	a := g.Arena
	labels := map[lattice.Bit]string{}
	for i, v := range g.Result.Values {
		for j, b := range v.Bits {
			labels[b] = fmt.Sprintf("r%d[%d]", i, j)
		}
	}
	for _, k := range funcutil.SortedKeys(g.Result.Globals) {
		for j, b := range g.Result.Globals[k].Bits {
			labels[b] = fmt.Sprintf("%s[%d]", k, j)
		}
	}
	for b, info := range g.bitInfo {
		labels[b] = fmt.Sprintf("p%d[%d]", info.Param, info.Index)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %q {\n", name)
	a.Walk(g.roots(), func(b lattice.Bit) bool {
		shape := "ellipse"
		switch {
		case g.ParameterBits.Has(b):
			shape = "box"
		case g.InputBits.Has(b):
			shape = "diamond"
		}
		label := fmt.Sprintf("%s %s", b, a.Val(b))
		if l, ok := labels[b]; ok {
			label += "\\n" + l
		}
		fmt.Fprintf(bw, "  %q [label=\"%s\", shape=%s];\n", b.String(), label, shape)
		for _, d := range a.Deps(b) {
			fmt.Fprintf(bw, "  %q -> %q;\n", b.String(), d.String())
		}
		return !g.ParameterBits.Has(b)
	})
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
