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

package solver

import (
	"fmt"
	"math"
)

// maxTopWeight bounds the top weight of a WDIMACS instance so that solvers using 64 bit integers do not overflow
const maxTopWeight = float64(1 << 62)

// Problem is the clause store shared by all backends. Variables are numbered from 1 in order of first use.
type Problem[V comparable] struct {
	// BitWidth is the width of the integers of the analyzed program. It determines the precision of the rounding
	// of non-integer weights.
	BitWidth int

	ids        map[V]int
	vars       []V // vars[i] has id i+1
	clauses    [][]int
	weights    map[int]float64
	weighted   []int // finite weighted ids in order of AddWeight
	infinite   []int
	isInfinite map[int]bool
	weightSum  float64
	nonInteger bool
}

// NewProblem returns an empty problem
func NewProblem[V comparable](bitWidth int) *Problem[V] {
	return &Problem[V]{
		BitWidth:   bitWidth,
		ids:        map[V]int{},
		weights:    map[int]float64{},
		isInfinite: map[int]bool{},
	}
}

// Var returns the id of v, registering it if needed
func (p *Problem[V]) Var(v V) int {
	if id, ok := p.ids[v]; ok {
		return id
	}
	p.vars = append(p.vars, v)
	id := len(p.vars)
	p.ids[v] = id
	return id
}

// Lookup returns the variable with the given id
func (p *Problem[V]) Lookup(id int) (V, bool) {
	if id < 1 || id > len(p.vars) {
		var zero V
		return zero, false
	}
	return p.vars[id-1], true
}

// NumVars returns the number of variables
func (p *Problem[V]) NumVars() int {
	return len(p.vars)
}

// NumClauses returns the number of hard clauses
func (p *Problem[V]) NumClauses() int {
	return len(p.clauses)
}

// AddClause adds a hard clause over literals: id for a positive literal, -id for a negative one.
func (p *Problem[V]) AddClause(lits ...int) {
	for _, l := range lits {
		if l == 0 || abs(l) > len(p.vars) {
			panic(fmt.Errorf("invalid literal %d in clause %v", l, lits))
		}
	}
	p.clauses = append(p.clauses, append([]int{}, lits...))
}

// AddOrImplication adds a → (ors[0] ∨ ors[1] ∨ ...)
func (p *Problem[V]) AddOrImplication(a V, ors ...V) {
	clause := []int{-p.Var(a)}
	for _, o := range ors {
		clause = append(clause, p.Var(o))
	}
	p.AddClause(clause...)
}

// AddAndImplication adds a → (ands[0] ∧ ands[1] ∧ ...), one binary clause per conjunct
func (p *Problem[V]) AddAndImplication(a V, ands ...V) {
	x := p.Var(a)
	for _, o := range ands {
		p.AddClause(-x, p.Var(o))
	}
}

// AddUnit requires a to be true
func (p *Problem[V]) AddUnit(a V) {
	p.AddClause(p.Var(a))
}

// AddWeight sets the weight of v. Infinite weights are recorded as with AddInfiniteWeight.
func (p *Problem[V]) AddWeight(v V, w float64) error {
	if math.IsInf(w, 1) {
		return p.AddInfiniteWeight(v)
	}
	if w < 0 || math.IsNaN(w) {
		return fmt.Errorf("invalid weight %v for variable %v", w, v)
	}
	id := p.Var(v)
	if err := p.checkUnweighted(v, id); err != nil {
		return err
	}
	p.weights[id] = w
	p.weighted = append(p.weighted, id)
	p.weightSum += w
	if w != math.Trunc(w) {
		p.nonInteger = true
	}
	return nil
}

// AddInfiniteWeight gives v an infinite weight
func (p *Problem[V]) AddInfiniteWeight(v V) error {
	id := p.Var(v)
	if err := p.checkUnweighted(v, id); err != nil {
		return err
	}
	p.isInfinite[id] = true
	p.infinite = append(p.infinite, id)
	return nil
}

func (p *Problem[V]) checkUnweighted(v V, id int) error {
	if _, ok := p.weights[id]; ok || p.isInfinite[id] {
		return fmt.Errorf("weight of variable %v already set", v)
	}
	return nil
}

// Weight returns the weight of the variable with the given id, 0 if it has none
func (p *Problem[V]) Weight(id int) float64 {
	if p.isInfinite[id] {
		return math.Inf(1)
	}
	return p.weights[id]
}

// WeightSum returns the sum of all finite weights
func (p *Problem[V]) WeightSum() float64 {
	return p.weightSum
}

// Multiplier returns the factor non-integer weights are scaled with before they are rounded up. The factor is
// chosen so that the smallest difference between two entropies of bitWidth-bit values is still visible after
// rounding: ceil(1/(log2(2^bw) - log2(2^bw - 1))). It is 1 if all weights are integers or rounding is disabled.
func (p *Problem[V]) Multiplier(roundUp bool) float64 {
	if !roundUp || !p.nonInteger {
		return 1
	}
	bw := p.BitWidth
	if bw > 32 {
		bw = 32
	}
	if bw < 1 {
		bw = 1
	}
	m := math.Exp2(float64(bw))
	return math.Ceil(1 / (math.Log2(m) - math.Log2(m-1)))
}

// TopWeight returns the weight of hard clauses: (#infinite + 1) * (weightSum + 1) * multiplier + 1
func (p *Problem[V]) TopWeight(roundUp bool) float64 {
	return float64(len(p.infinite)+1)*(p.weightSum+1)*p.Multiplier(roundUp) + 1
}

// InfiniteWeight returns the weight written for variables with an infinite weight. It is larger than the sum of
// all finite weights, so that a single infinite variable outweighs every finite assignment.
func (p *Problem[V]) InfiniteWeight(roundUp bool) float64 {
	return math.Ceil(p.weightSum*p.Multiplier(roundUp)) + 1
}

// cost returns the cost of an assignment indexed by variable id
func (p *Problem[V]) cost(values []bool) float64 {
	c := 0.0
	for _, id := range p.infinite {
		if values[id] {
			return math.Inf(1)
		}
	}
	for _, id := range p.weighted {
		if values[id] {
			c += p.weights[id]
		}
	}
	return c
}

// result builds a result from an assignment indexed by variable id
func (p *Problem[V]) result(values []bool) Result[V] {
	assignment := make(map[V]bool, len(p.vars))
	for i, v := range p.vars {
		assignment[v] = values[i+1]
	}
	return Result[V]{Assignment: assignment, Cost: p.cost(values)}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
