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
	"context"
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/awslabs/ar-qif-tools/analysis/config"
	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

const (
	satisfiable   = 1
	unsatisfiable = -1

	// maxScaledWeight bounds the sum of the scaled integer weights so that the cost never overflows
	maxScaledWeight = float64(1 << 62)
	// pollInterval is how often a running solve checks for cancellation
	pollInterval = 10 * time.Millisecond
)

// Gini is the in-process backend. It minimizes lexicographically: first the number of true variables with an
// infinite weight, bounded with a sorting network, then the finite cost, bounded with a binary adder network over
// the integer weights. Non-integer weights are scaled with Multiplier and rounded up, like in a WDIMACS instance.
type Gini[V comparable] struct {
	*Problem[V]
	// MaxReplicated bounds the number of finite weighted variables of the cost network
	MaxReplicated int
	// RoundUp scales non-integer weights with the bit width multiplier before they are rounded up
	RoundUp bool
	Logger  *config.LogGroup
}

// NewGini returns an empty in-process backend
func NewGini[V comparable](bitWidth int, maxReplicated int, roundUp bool, logger *config.LogGroup) *Gini[V] {
	if maxReplicated <= 0 {
		maxReplicated = config.DefaultMaxReplicatedWeight
	}
	return &Gini[V]{Problem: NewProblem[V](bitWidth), MaxReplicated: maxReplicated, RoundUp: roundUp, Logger: logger}
}

// Solve finds an optimal assignment. Unsatisfiable problems and problems whose cost network would be larger than
// MaxReplicated give ErrNoResult.
func (s *Gini[V]) Solve(ctx context.Context) (Result[V], error) {
	n := s.NumVars()
	c := logic.NewCCap(2*n + 2)
	lits := make([]z.Lit, n+1)
	for i := 1; i <= n; i++ {
		lits[i] = c.Lit()
	}
	infLits := make([]z.Lit, len(s.infinite))
	for i, id := range s.infinite {
		infLits[i] = lits[id]
	}
	inf := &cardinality{card: c.CardSort(infLits), ids: s.infinite}
	fin, err := s.adder(c, lits)
	if err != nil {
		s.Logger.Warnf("gini backend: %v", err)
		return Result[V]{}, fmt.Errorf("%v: %w", err, ErrNoResult)
	}

	g := gini.New()
	c.ToCnf(g)
	marks := make([]int8, c.Len())
	for i := range marks {
		marks[i] = 1
	}
	for _, clause := range s.clauses {
		for _, l := range clause {
			if l > 0 {
				g.Add(lits[l])
			} else {
				g.Add(lits[-l].Not())
			}
		}
		g.Add(z.LitNull)
	}

	switch solveContext(ctx, g) {
	case unsatisfiable:
		s.Logger.Debugf("gini backend: hard clauses are unsatisfiable")
		return Result[V]{}, fmt.Errorf("unsatisfiable problem: %w", ErrNoResult)
	case satisfiable:
	default:
		return Result[V]{}, ctx.Err()
	}
	best := s.values(g, lits)

	k, best, marks, err := s.minimize(ctx, g, c, marks, inf, best, lits)
	if err != nil {
		return Result[V]{}, err
	}
	g.Add(inf.atMost(k))
	g.Add(z.LitNull)
	_, best, _, err = s.minimize(ctx, g, c, marks, fin, best, lits)
	if err != nil {
		return Result[V]{}, err
	}
	return s.result(best), nil
}

// costNetwork is a circuit over the variable literals whose output atMost(k) holds iff the cost of the assignment
// is at most k
type costNetwork interface {
	atMost(k int64) z.Lit
	cost(values []bool) int64
}

// minimize searches the smallest k such that the cost of net is at most k, starting from the model best. Circuit
// nodes created for the bounds are added to g with marks. It returns k and a model reaching it.
func (s *Gini[V]) minimize(ctx context.Context, g *gini.Gini, c *logic.C, marks []int8, net costNetwork,
	best []bool, lits []z.Lit) (int64, []bool, []int8, error) {
	lo, hi := int64(0), net.cost(best)
	for lo < hi {
		mid := lo + (hi-lo)/2
		bound := net.atMost(mid)
		marks, _ = c.CnfSince(g, marks, bound)
		g.Assume(bound)
		switch solveContext(ctx, g) {
		case satisfiable:
			best = s.values(g, lits)
			hi = net.cost(best)
		case unsatisfiable:
			lo = mid + 1
		default:
			return 0, nil, marks, ctx.Err()
		}
	}
	marks, _ = c.CnfSince(g, marks, net.atMost(hi))
	return hi, best, marks, nil
}

// cardinality counts the true variables among ids with a sorting network
type cardinality struct {
	card *logic.CardSort
	ids  []int
}

func (n *cardinality) atMost(k int64) z.Lit {
	if k > int64(n.card.N()) {
		k = int64(n.card.N())
	}
	return n.card.Leq(int(k))
}

func (n *cardinality) cost(values []bool) int64 {
	k := int64(0)
	for _, id := range n.ids {
		if values[id] {
			k++
		}
	}
	return k
}

// weightedSum sums the integer weights of the true variables among ids with a tree of ripple carry adders
type weightedSum struct {
	c       *logic.C
	ids     []int
	weights []int64
	// sum holds the bits of the sum, least significant first
	sum []z.Lit
}

// adder builds the finite cost network. Weights are scaled if some are not integers, then divided by their gcd.
func (s *Gini[V]) adder(c *logic.C, lits []z.Lit) (*weightedSum, error) {
	if len(s.weighted) > s.MaxReplicated {
		return nil, fmt.Errorf("%d weighted variables exceed the limit of %d", len(s.weighted), s.MaxReplicated)
	}
	mult := s.Multiplier(s.RoundUp)
	net := &weightedSum{c: c}
	total := 0.0
	var d int64
	for _, id := range s.weighted {
		w := s.weights[id]
		if s.nonInteger {
			w = math.Ceil(w * mult)
		}
		if w == 0 {
			continue
		}
		total += w
		if total > maxScaledWeight {
			return nil, fmt.Errorf("scaled weights sum to more than %g", maxScaledWeight)
		}
		net.ids = append(net.ids, id)
		net.weights = append(net.weights, int64(w))
		d = gcd(d, int64(w))
	}
	terms := make([][]z.Lit, len(net.ids))
	for i, id := range net.ids {
		net.weights[i] /= d
		w := uint64(net.weights[i])
		term := make([]z.Lit, bits.Len64(w))
		for j := range term {
			term[j] = c.F
			if w>>uint(j)&1 == 1 {
				term[j] = lits[id]
			}
		}
		terms[i] = term
	}
	// pairwise sums keep the carry chains short
	for len(terms) > 1 {
		var next [][]z.Lit
		for i := 0; i+1 < len(terms); i += 2 {
			next = append(next, addBits(c, terms[i], terms[i+1]))
		}
		if len(terms)%2 == 1 {
			next = append(next, terms[len(terms)-1])
		}
		terms = next
	}
	if len(terms) == 1 {
		net.sum = terms[0]
	}
	return net, nil
}

// addBits returns the bits of a + b
func addBits(c *logic.C, a, b []z.Lit) []z.Lit {
	if len(a) < len(b) {
		a, b = b, a
	}
	res := make([]z.Lit, 0, len(a)+1)
	carry := c.F
	for i, x := range a {
		y := c.F
		if i < len(b) {
			y = b[i]
		}
		t := c.Xor(x, y)
		res = append(res, c.Xor(t, carry))
		carry = c.Or(c.And(x, y), c.And(carry, t))
	}
	if carry != c.F {
		res = append(res, carry)
	}
	return res
}

// atMost compares the sum with k from the least significant bit up
func (n *weightedSum) atMost(k int64) z.Lit {
	if k < 0 {
		return n.c.F
	}
	if len(n.sum) < 63 && k>>uint(len(n.sum)) != 0 {
		return n.c.T
	}
	le := n.c.T
	for i, b := range n.sum {
		if k>>uint(i)&1 == 1 {
			le = n.c.Or(b.Not(), le)
		} else {
			le = n.c.And(b.Not(), le)
		}
	}
	return le
}

func (n *weightedSum) cost(values []bool) int64 {
	k := int64(0)
	for i, id := range n.ids {
		if values[id] {
			k += n.weights[i]
		}
	}
	return k
}

func (s *Gini[V]) values(g *gini.Gini, lits []z.Lit) []bool {
	values := make([]bool, len(lits))
	max := g.MaxVar()
	for i := 1; i < len(lits); i++ {
		values[i] = lits[i].Var() <= max && g.Value(lits[i])
	}
	return values
}

// solveContext runs the solver until it returns or ctx is done, in which case it returns 0
func solveContext(ctx context.Context, g *gini.Gini) int {
	if ctx.Done() == nil {
		return g.Solve()
	}
	sv := g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if res, done := sv.Test(); done {
			return res
		}
		select {
		case <-ctx.Done():
			sv.Stop()
			return 0
		case <-ticker.C:
		}
	}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
