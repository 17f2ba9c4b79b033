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
	"fmt"
	"io"

	"github.com/awslabs/ar-qif-tools/analysis/lattice"
	"github.com/awslabs/ar-qif-tools/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// GraphFile is the yaml description of a bit graph and of the sources and sinks of a leakage computation:
//
//	bits:
//	  - id: o
//	    val: u
//	    deps: [h]
//	  - id: h
//	    val: u
//	    weight: 3
//	    input: h
//	sources: [o]
//	sinks: [h]
//
// Values are written as in the lattice ("0", "1", "u", "*" ...). An infinite weight is written .inf. Bits with
// the same interval name share an interval declared in the intervals section.
type GraphFile struct {
	Bits         []BitDecl           `yaml:"bits"`
	Intervals    map[string]Interval `yaml:"intervals"`
	Sources      []string            `yaml:"sources"`
	Sinks        []string            `yaml:"sinks"`
	SourceWeight *float64            `yaml:"source-weight"`
	SinkWeight   *float64            `yaml:"sink-weight"`
}

// BitDecl declares a bit of a graph file
type BitDecl struct {
	ID       string   `yaml:"id"`
	Val      string   `yaml:"val"`
	Deps     []string `yaml:"deps"`
	Weight   *float64 `yaml:"weight"`
	Input    string   `yaml:"input"`
	Interval string   `yaml:"interval"`
}

// Interval declares an interval of a graph file
type Interval struct {
	Lo int64 `yaml:"lo"`
	Hi int64 `yaml:"hi"`
}

// Graph is a loaded graph file
type Graph struct {
	Arena *lattice.Arena
	// Bits maps the ids of the file to bits, Names is the reverse map
	Bits  map[string]lattice.Bit
	Names map[lattice.Bit]string
	SourcesAndSinks
}

// LoadGraph reads a graph file
func LoadGraph(r io.Reader) (*Graph, error) {
	var f GraphFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("could not parse graph file: %w", err)
	}
	return f.Build()
}

// Build allocates the bits of the file in a fresh arena
func (f *GraphFile) Build() (*Graph, error) {
	g := &Graph{Arena: lattice.NewArena(), Bits: map[string]lattice.Bit{}, Names: map[lattice.Bit]string{}}
	a := g.Arena
	intervals := map[string][]lattice.Bit{}
	for _, decl := range f.Bits {
		if _, ok := g.Bits[decl.ID]; ok || decl.ID == "" {
			return nil, fmt.Errorf("bit id %q is empty or defined twice", decl.ID)
		}
		val := lattice.U
		if decl.Val != "" {
			v, err := lattice.ParseB(decl.Val)
			if err != nil {
				return nil, fmt.Errorf("bit %s: %w", decl.ID, err)
			}
			val = v
		}
		b := a.New(val)
		a.SetTag(b, decl.ID)
		g.Bits[decl.ID] = b
		g.Names[b] = decl.ID
		if decl.Weight != nil {
			a.SetWeight(b, *decl.Weight)
		}
		if decl.Input != "" {
			sec, err := lattice.ParseSec(decl.Input)
			if err != nil {
				return nil, fmt.Errorf("bit %s: %w", decl.ID, err)
			}
			a.MarkInput(b, sec)
		}
		if decl.Interval != "" {
			intervals[decl.Interval] = append(intervals[decl.Interval], b)
		}
	}
	for _, decl := range f.Bits {
		b := g.Bits[decl.ID]
		if len(decl.Deps) > 0 && a.IsConstant(b) {
			return nil, fmt.Errorf("constant bit %s cannot have dependencies", decl.ID)
		}
		deps, err := g.lookup(decl.Deps)
		if err != nil {
			return nil, fmt.Errorf("dependencies of %s: %w", decl.ID, err)
		}
		a.SetDeps(b, deps...)
	}
	for _, name := range funcutil.SortedKeys(intervals) {
		bits := intervals[name]
		i, ok := f.Intervals[name]
		if !ok {
			return nil, fmt.Errorf("undeclared interval %s", name)
		}
		a.AddInterval(lattice.NewValue(bits...), lattice.Interval{Lo: i.Lo, Hi: i.Hi})
	}
	sources, err := g.lookup(f.Sources)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	sinks, err := g.lookup(f.Sinks)
	if err != nil {
		return nil, fmt.Errorf("sinks: %w", err)
	}
	g.SourcesAndSinks = NewSourcesAndSinks(lattice.NewBitSet(sources...), lattice.NewBitSet(sinks...))
	if f.SourceWeight != nil {
		g.SourceWeight = *f.SourceWeight
	}
	if f.SinkWeight != nil {
		g.SinkWeight = *f.SinkWeight
	}
	return g, nil
}

func (g *Graph) lookup(ids []string) ([]lattice.Bit, error) {
	bits := make([]lattice.Bit, len(ids))
	for i, id := range ids {
		b, ok := g.Bits[id]
		if !ok {
			return nil, fmt.Errorf("unknown bit %s", id)
		}
		bits[i] = b
	}
	return bits, nil
}

// Describe returns the ids of the bits of a set, sorted by bit
func (g *Graph) Describe(bits lattice.BitSet) []string {
	ids := make([]string, 0, len(bits))
	for _, b := range bits.Sorted() {
		ids = append(ids, g.Names[b])
	}
	return ids
}
