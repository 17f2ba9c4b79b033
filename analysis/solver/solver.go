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

// Package solver contains weighted MaxSAT backends. Problems are built from implications between variables of
// any comparable type and weights on variables: the solver finds an assignment satisfying all the clauses that
// minimizes the sum of the weights of the true variables, true variables with an infinite weight being avoided
// first.
//
// The in-process backend uses gini with cardinality networks. External backends write a WDIMACS instance and
// run a solver binary.
package solver

import (
	"context"
	"errors"
	"math"
)

// ErrNoResult is returned when a solver did not produce an assignment: the problem is unsatisfiable, the solver
// gave up, or the solver could not be run
var ErrNoResult = errors.New("solver produced no result")

// Builder collects the clauses and weights of a weighted MaxSAT problem over variables of type V
type Builder[V comparable] interface {
	// AddOrImplication adds a → (ors[0] ∨ ors[1] ∨ ...)
	AddOrImplication(a V, ors ...V)

	// AddAndImplication adds a → (ands[0] ∧ ands[1] ∧ ...)
	AddAndImplication(a V, ands ...V)

	// AddUnit requires a to be true
	AddUnit(a V)

	// AddWeight sets the weight of v. The weight of a variable can only be set once.
	AddWeight(v V, w float64) error

	// AddInfiniteWeight gives v an infinite weight
	AddInfiniteWeight(v V) error
}

// Solver is a weighted MaxSAT solver over variables of type V. A Solver is used by a single goroutine.
type Solver[V comparable] interface {
	Builder[V]

	// Solve returns the assignment minimizing the cost
	Solve(ctx context.Context) (Result[V], error)
}

// Result is the assignment found by a solver
type Result[V comparable] struct {
	// Assignment maps every variable of the problem to its value
	Assignment map[V]bool
	// Cost is the sum of the weights of the true variables, +Inf if a variable with an infinite weight is true
	Cost float64
}

// IsTrue returns true if v is assigned true
func (r Result[V]) IsTrue(v V) bool {
	return r.Assignment[v]
}

// HasInfiniteCost returns true if some variable with an infinite weight is true
func (r Result[V]) HasInfiniteCost() bool {
	return math.IsInf(r.Cost, 1)
}
